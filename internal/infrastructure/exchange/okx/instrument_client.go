package okx

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"mdrisk/internal/domain/model"
)

// InstrumentClient 公共合约信息，按 instType/instId 缓存
type InstrumentClient struct {
	*APIClient

	mu    sync.Mutex
	cache map[string]InstrumentInfo
}

func NewInstrumentClient(client *APIClient) *InstrumentClient {
	return &InstrumentClient{APIClient: client, cache: make(map[string]InstrumentInfo)}
}

// InstrumentInfo /api/v5/public/instruments 的一行
type InstrumentInfo struct {
	InstID    string `json:"instId"`
	InstType  string `json:"instType"`
	BaseCcy   string `json:"baseCcy"`
	QuoteCcy  string `json:"quoteCcy"`
	SettleCcy string `json:"settleCcy"`
	CtVal     string `json:"ctVal"`
	CtValCcy  string `json:"ctValCcy"`
	LotSz     string `json:"lotSz"`
	MinSz     string `json:"minSz"`
	TickSz    string `json:"tickSz"`
	ExpTime   string `json:"expTime"` // 交割/行权时间，毫秒
}

// Expiry 交易所给出的到期时间，没有 expTime 时 ok=false
func (d InstrumentInfo) Expiry() (time.Time, bool) {
	ms, err := strconv.ParseInt(d.ExpTime, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

// LegSpec 杠杆或永续腿的下单精度
func (c *InstrumentClient) LegSpec(ctx context.Context, market model.Market, instID string) (model.LegSpec, error) {
	instType := InstMargin
	if market == model.MarketSwap {
		instType = InstSwap
	}
	d, err := c.Lookup(ctx, instType, instID)
	if err != nil {
		return model.LegSpec{}, err
	}
	return toLegSpec(d, market)
}

// Lookup GET /api/v5/public/instruments
func (c *InstrumentClient) Lookup(ctx context.Context, instType, instID string) (InstrumentInfo, error) {
	key := instType + "/" + instID

	c.mu.Lock()
	if d, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return d, nil
	}
	c.mu.Unlock()

	params := url.Values{}
	params.Set("instType", instType)
	params.Set("instId", instID)
	if instType == InstOption {
		params.Set("instFamily", optionFamily(instID))
	}
	raw, err := c.publicRequest(ctx, "/api/v5/public/instruments", params)
	if err != nil {
		return InstrumentInfo{}, fmt.Errorf("instrument %s: %w", instID, err)
	}
	data, err := decodeData[InstrumentInfo](raw)
	if err != nil {
		return InstrumentInfo{}, fmt.Errorf("instrument %s: %w", instID, err)
	}
	if len(data) == 0 {
		return InstrumentInfo{}, fmt.Errorf("instrument %s: %w", instID, model.ErrNotFound)
	}

	c.mu.Lock()
	c.cache[key] = data[0]
	c.mu.Unlock()
	return data[0], nil
}

// optionFamily BTC-USD-240329-60000-C -> BTC-USD
func optionFamily(instID string) string {
	parts := strings.SplitN(instID, "-", 3)
	if len(parts) < 2 {
		return instID
	}
	return parts[0] + "-" + parts[1]
}

func toLegSpec(d InstrumentInfo, market model.Market) (model.LegSpec, error) {
	lot, err := decimal.NewFromString(d.LotSz)
	if err != nil {
		return model.LegSpec{}, fmt.Errorf("instrument %s lotSz %q: %w", d.InstID, d.LotSz, err)
	}
	minSz, err := decimal.NewFromString(d.MinSz)
	if err != nil {
		return model.LegSpec{}, fmt.Errorf("instrument %s minSz %q: %w", d.InstID, d.MinSz, err)
	}
	spec := model.LegSpec{
		InstID:   d.InstID,
		LotSize:  lot,
		MinSize:  minSz,
		Quote:    d.QuoteCcy,
		BaseCcy:  d.BaseCcy,
		Category: market,
	}
	if market == model.MarketSwap {
		ct, err := decimal.NewFromString(d.CtVal)
		if err != nil {
			return model.LegSpec{}, fmt.Errorf("instrument %s ctVal %q: %w", d.InstID, d.CtVal, err)
		}
		spec.CtVal = ct
	}
	return spec, nil
}
