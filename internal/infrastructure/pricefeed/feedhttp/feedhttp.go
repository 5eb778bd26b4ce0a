// Package feedhttp 行情源共用的 HTTP 与时间序列匹配工具
package feedhttp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"mdrisk/internal/domain/model"
	"mdrisk/internal/domain/service"
)

const (
	DefaultTimeout   = 120 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Options 行情源 HTTP 配置
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Client 带浏览器 UA 的 GET 客户端，不重试
type Client struct {
	http      *http.Client
	userAgent string
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &Client{http: &http.Client{Timeout: opts.Timeout}, userAgent: opts.UserAgent}
}

// Get 非 2xx 与网络错误都包装为 ErrFeedTransport
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrFeedTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrFeedTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http %d from %s", model.ErrFeedTransport, resp.StatusCode, req.URL.Host)
	}
	return body, nil
}

// CheckInterval 目前只支持 1d
func CheckInterval(interval model.Interval) error {
	if interval != model.Interval1d {
		return fmt.Errorf("%w: %s", model.ErrUnsupportedInterval, interval)
	}
	return nil
}

// Point 一条观测，Ts 的单位由行情源决定
type Point struct {
	Ts    int64
	Price decimal.Decimal
}

// Unit 观测时间戳单位
type Unit int

const (
	Seconds Unit = iota
	Millis
)

func (u Unit) of(t time.Time) int64 {
	if u == Millis {
		return t.UnixMilli()
	}
	return t.Unix()
}

func (u Unit) time(ts int64) time.Time {
	if u == Millis {
		return time.UnixMilli(ts).UTC()
	}
	return time.Unix(ts, 0).UTC()
}

// Match 对每个查询时间取 Ts <= 查询时间的最后一条观测，结果按 queries 顺序返回
func Match(points []Point, queries []time.Time, unit Unit) []model.QueryResult {
	sort.SliceStable(points, func(i, j int) bool { return points[i].Ts < points[j].Ts })

	out := make([]model.QueryResult, 0, len(queries))
	for _, q := range queries {
		res := model.QueryResult{QueryTime: q}
		if i, ok := service.MatchIndex(points, unit.of(q), func(p Point) int64 { return p.Ts }); ok {
			at := unit.time(points[i].Ts)
			px := points[i].Price
			res.MatchedTime = &at
			res.MatchedPrice = &px
		}
		out = append(out, res)
	}
	return out
}

// Bounds 查询时间的最小/最大值；queries 非空
func Bounds(queries []time.Time) (lo, hi time.Time) {
	lo, hi = queries[0], queries[0]
	for _, q := range queries[1:] {
		if q.Before(lo) {
			lo = q
		}
		if q.After(hi) {
			hi = q
		}
	}
	return lo, hi
}
