package okx

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultRESTURL     = "https://www.okx.com"
	DefaultPublicWSURL = "wss://ws.okx.com:8443/ws/v5/public"
)

// ===== Credentials 凭证 =====

// Credentials 包含 OKX API 凭证和签名方法
type Credentials struct {
	apiKey     string
	apiSecret  string
	passphrase string
}

// NewCredentials 创建凭证对象
func NewCredentials(apiKey, apiSecret, passphrase string) *Credentials {
	return &Credentials{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		passphrase: passphrase,
	}
}

// Sign 生成 OKX HMAC-SHA256 签名
// OKX 签名: BASE64(HMAC-SHA256(timestamp + method + requestPath + body, secretKey))
func (c *Credentials) Sign(data string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// APIKey 返回 API Key
func (c *Credentials) APIKey() string {
	return c.apiKey
}

// Passphrase 返回 Passphrase
func (c *Credentials) Passphrase() string {
	return c.passphrase
}

// Options REST 客户端配置
type Options struct {
	BaseURL    string
	APIKey     string
	APISecret  string
	Passphrase string
	Timeout    time.Duration
	// RatePerSec 每秒请求数，<=0 不限速
	RatePerSec float64
	// Simulated 模拟盘（x-simulated-trading: 1）
	Simulated bool
}

// APIClient 封装访问 OKX REST API 所需的共享依赖
type APIClient struct {
	credentials *Credentials
	httpClient  *http.Client
	baseURL     string
	limiter     *rate.Limiter
	simulated   bool
}

// NewAPIClient 创建共享客户端；订单、账户、合约、账单客户端都基于它
func NewAPIClient(opts Options) *APIClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultRESTURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), 1)
	}
	return &APIClient{
		credentials: NewCredentials(opts.APIKey, opts.APISecret, opts.Passphrase),
		httpClient:  &http.Client{Timeout: opts.Timeout},
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		limiter:     limiter,
		simulated:   opts.Simulated,
	}
}

// Client OKX 统一入口
type Client struct {
	Orders      *OrderClient
	Account     *AccountClient
	Instruments *InstrumentClient
	Bills       *BillsClient
}

// NewClient 通过一组凭证同时创建所有 REST 客户端
func NewClient(opts Options) *Client {
	api := NewAPIClient(opts)
	instruments := NewInstrumentClient(api)
	return &Client{
		Orders:      NewOrderClient(api),
		Account:     NewAccountClient(api, instruments),
		Instruments: instruments,
		Bills:       NewBillsClient(api),
	}
}
