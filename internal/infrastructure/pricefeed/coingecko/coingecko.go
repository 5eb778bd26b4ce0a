// Package coingecko CoinGecko price_charts 全量历史
package coingecko

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"mdrisk/internal/domain/model"
	"mdrisk/internal/infrastructure/pricefeed/feedhttp"
)

const (
	Name           = "coingecko"
	DefaultBaseURL = "https://www.coingecko.com"
)

type Feed struct {
	baseURL string
	client  *feedhttp.Client
	// ids 资产符号 -> CoinGecko 标识（BTC -> bitcoin），未配置时用小写符号
	ids map[string]string
}

func New(opts feedhttp.Options, ids map[string]string) *Feed {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	norm := make(map[string]string, len(ids))
	for k, v := range ids {
		norm[strings.ToUpper(k)] = v
	}
	return &Feed{baseURL: base, client: feedhttp.NewClient(opts), ids: norm}
}

func (f *Feed) Name() string { return Name }

func (f *Feed) id(sym string) string {
	if id, ok := f.ids[strings.ToUpper(sym)]; ok {
		return id
	}
	return strings.ToLower(sym)
}

type chartResponse struct {
	Stats [][]json.Number `json:"stats"`
}

// FetchPrices GET /price_charts/{base}/{quote}/max.json，stats 为 [[ms, price], ...]
func (f *Feed) FetchPrices(ctx context.Context, symbol string, interval model.Interval, queries []time.Time) ([]model.QueryResult, error) {
	if err := feedhttp.CheckInterval(interval); err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		return nil, nil
	}
	parts := strings.Split(symbol, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: coingecko needs BASE_QUOTE, got %q", model.ErrInvalidSymbol, symbol)
	}

	u := fmt.Sprintf("%s/price_charts/%s/%s/max.json", f.baseURL, url.PathEscape(f.id(parts[0])), url.PathEscape(f.id(parts[1])))
	body, err := f.client.Get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("coingecko %s: %w", symbol, err)
	}
	points, err := parseStats(body)
	if err != nil {
		return nil, fmt.Errorf("coingecko %s: %w", symbol, err)
	}
	return feedhttp.Match(points, queries, feedhttp.Millis), nil
}

func parseStats(body []byte) ([]feedhttp.Point, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var resp chartResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: decode stats: %v", model.ErrFeedTransport, err)
	}

	points := make([]feedhttp.Point, 0, len(resp.Stats))
	for _, row := range resp.Stats {
		if len(row) < 2 {
			continue
		}
		ts, err := row[0].Int64()
		if err != nil {
			// 部分接口返回 1.7e12 这样的浮点毫秒
			f, ferr := row[0].Float64()
			if ferr != nil {
				continue
			}
			ts = int64(f)
		}
		px, err := decimal.NewFromString(row[1].String())
		if err != nil {
			continue
		}
		points = append(points, feedhttp.Point{Ts: ts, Price: px})
	}
	return points, nil
}
