package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"mdrisk/internal/application/port"
	"mdrisk/internal/domain/model"
	domainsvc "mdrisk/internal/domain/service"
)

// RiskService 从交易所重建持仓，用价格库的标记价计算希腊值
type RiskService struct {
	prices   *PriceService
	store    port.Store
	account  port.AccountClient
	engine   *domainsvc.RiskEngine
	currency string
	maxDelta time.Duration
}

func NewRiskService(prices *PriceService, store port.Store, account port.AccountClient, engine *domainsvc.RiskEngine, currency string, maxDelta time.Duration) *RiskService {
	return &RiskService{
		prices:   prices,
		store:    store,
		account:  account,
		engine:   engine,
		currency: currency,
		maxDelta: maxDelta,
	}
}

// Report 计算 asOf 时刻的风险报告
func (s *RiskService) Report(ctx context.Context, user string, asOf time.Time) (model.RiskReport, error) {
	positions, err := s.account.Positions(ctx)
	if err != nil {
		return model.RiskReport{}, fmt.Errorf("positions: %w", err)
	}
	md, err := s.MarketData(ctx, user, asOf)
	if err != nil {
		return model.RiskReport{}, err
	}
	report, err := s.engine.Compute(asOf, s.currency, positions, md)
	if err != nil {
		return model.RiskReport{}, err
	}
	for _, p := range report.Positions {
		if p.Warning != "" {
			log.Warn().Str("symbol", p.Position.Instrument.Symbol()).Msg(p.Warning)
		}
	}
	return report, nil
}

// MarketData 以报告币种为 base 的标记价构造汇率表
func (s *RiskService) MarketData(ctx context.Context, user string, asOf time.Time) (*StoreMarketData, error) {
	assets, err := s.store.ListAssets(ctx, user)
	if err != nil {
		return nil, err
	}
	var base *model.Asset
	for i := range assets {
		if assets[i].Symbol == s.currency {
			base = &assets[i]
			break
		}
	}
	md := &StoreMarketData{currency: s.currency, perUnit: map[string]decimal.Decimal{}}
	if base == nil {
		return md, nil
	}

	pairs := make([]model.Pair, 0, len(assets))
	symbols := make(map[string]string, len(assets))
	for _, a := range assets {
		if a.Reference == base.Reference {
			continue
		}
		pairs = append(pairs, model.Pair{Base: base.Reference, Quote: a.Reference})
		symbols[a.Reference] = a.Symbol
	}
	marks, err := s.prices.QueryMarkPrices(ctx, user, pairs, []time.Time{asOf}, s.maxDelta)
	if err != nil {
		return nil, err
	}
	for _, m := range marks {
		if m.Price.Value.IsZero() {
			continue
		}
		md.perUnit[symbols[m.Pair.Quote]] = m.Price.Value
	}
	return md, nil
}

// StoreMarketData 价格 value 表示 1 单位报告币种可换多少该资产
type StoreMarketData struct {
	currency string
	perUnit  map[string]decimal.Decimal
}

// NewStoreMarketData builds rates from "asset per one unit of currency" quotes.
func NewStoreMarketData(currency string, perUnit map[string]decimal.Decimal) *StoreMarketData {
	return &StoreMarketData{currency: currency, perUnit: perUnit}
}

func (m *StoreMarketData) Rate(asset string) (decimal.Decimal, error) {
	if asset == m.currency {
		return decimal.NewFromInt(1), nil
	}
	v, ok := m.perUnit[asset]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s/%s", model.ErrNoMarkPrice, m.currency, asset)
	}
	return decimal.NewFromInt(1).Div(v), nil
}

func (m *StoreMarketData) Spot(base, quote string) (decimal.Decimal, error) {
	b, err := m.Rate(base)
	if err != nil {
		return decimal.Zero, err
	}
	q, err := m.Rate(quote)
	if err != nil {
		return decimal.Zero, err
	}
	return b.Div(q), nil
}
