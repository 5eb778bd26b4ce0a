// Package yahoo Yahoo Finance 日线收盘价（外汇对）
package yahoo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"mdrisk/internal/domain/model"
	"mdrisk/internal/infrastructure/pricefeed/feedhttp"
)

const (
	Name           = "yahoo_finance"
	DefaultBaseURL = "https://query1.finance.yahoo.com"
)

// lookback 查询区间向前多取一段，周末/假日的查询点也能匹配到上一个交易日
const lookback = 7 * 24 * time.Hour

type Feed struct {
	baseURL string
	client  *feedhttp.Client
}

func New(opts feedhttp.Options) *Feed {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Feed{baseURL: base, client: feedhttp.NewClient(opts)}
}

func (f *Feed) Name() string { return Name }

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Adjclose []struct {
					Adjclose []*json.Number `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Ticker USD_JPY -> USDJPY=X
func Ticker(symbol string) (string, error) {
	parts := strings.Split(symbol, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("%w: yahoo needs BASE_QUOTE, got %q", model.ErrInvalidSymbol, symbol)
	}
	return strings.ToUpper(parts[0]+parts[1]) + "=X", nil
}

// FetchPrices GET /v8/finance/chart/{BASE}{QUOTE}=X，取 adjclose，按秒级时间戳匹配
func (f *Feed) FetchPrices(ctx context.Context, symbol string, interval model.Interval, queries []time.Time) ([]model.QueryResult, error) {
	if err := feedhttp.CheckInterval(interval); err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		return nil, nil
	}
	ticker, err := Ticker(symbol)
	if err != nil {
		return nil, err
	}

	lo, hi := feedhttp.Bounds(queries)
	params := url.Values{}
	params.Set("period1", strconv.FormatInt(lo.Add(-lookback).Unix(), 10))
	params.Set("period2", strconv.FormatInt(hi.Add(24*time.Hour).Unix(), 10))
	params.Set("interval", string(interval))

	body, err := f.client.Get(ctx, f.baseURL+"/v8/finance/chart/"+url.PathEscape(ticker)+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", ticker, err)
	}
	points, err := parseChart(body)
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", ticker, err)
	}
	return feedhttp.Match(points, queries, feedhttp.Seconds), nil
}

func parseChart(body []byte) ([]feedhttp.Point, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var resp chartResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: decode chart: %v", model.ErrFeedTransport, err)
	}
	if e := resp.Chart.Error; e != nil {
		return nil, fmt.Errorf("%w: %s %s", model.ErrFeedTransport, e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, nil
	}

	r := resp.Chart.Result[0]
	// 用复权收盘价 adjclose，和 timestamp 平行
	if len(r.Indicators.Adjclose) == 0 {
		return nil, nil
	}
	closes := r.Indicators.Adjclose[0].Adjclose

	points := make([]feedhttp.Point, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		// 未收盘或缺失的 bar 为 null
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		px, err := decimal.NewFromString(closes[i].String())
		if err != nil {
			continue
		}
		points = append(points, feedhttp.Point{Ts: ts, Price: px})
	}
	return points, nil
}
