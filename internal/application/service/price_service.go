package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"mdrisk/internal/application/port"
	"mdrisk/internal/domain/model"
	domainsvc "mdrisk/internal/domain/service"
)

// PriceService 价格存储门面
type PriceService struct {
	store port.Store
	ids   port.IDGenerator
}

func NewPriceService(store port.Store, ids port.IDGenerator) *PriceService {
	return &PriceService{store: store, ids: ids}
}

// ListPrices 按时间倒序
func (s *PriceService) ListPrices(ctx context.Context, user string, f model.PriceFilter) ([]model.Price, error) {
	return s.store.ListPrices(ctx, user, f)
}

// PutPrice 同一 (user, base, quote, confirmed_time) 已存在时返回 model.ErrPriceConflict
func (s *PriceService) PutPrice(ctx context.Context, user string, pair model.Pair, value decimal.Decimal, at time.Time) (model.Price, error) {
	p := model.Price{
		Reference:           s.ids.NewID(),
		UserReference:       user,
		BaseAssetReference:  pair.Base,
		QuoteAssetReference: pair.Quote,
		Value:               value,
		ConfirmedTime:       at.UTC(),
	}
	if err := s.store.InsertPrice(ctx, p); err != nil {
		return model.Price{}, fmt.Errorf("put price %s/%s@%s: %w", pair.Base, pair.Quote, at.Format(time.RFC3339), err)
	}
	return p, nil
}

// QueryMarkPrices 对每个 (pair, t) 取 confirmed_time <= t 且 t-confirmed_time <= maxDelta 的最新价格。
// 找不到的组合直接省略。maxDelta < 0 表示不限制。
func (s *PriceService) QueryMarkPrices(ctx context.Context, user string, pairs []model.Pair, at []time.Time, maxDelta time.Duration) ([]model.MarkPrice, error) {
	if len(pairs) == 0 || len(at) == 0 {
		return nil, nil
	}
	queries := append([]time.Time(nil), at...)
	sort.Slice(queries, func(i, j int) bool { return queries[i].Before(queries[j]) })

	var gte time.Time
	if maxDelta >= 0 {
		gte = queries[0].Add(-maxDelta)
	}
	lte := queries[len(queries)-1]

	rows, err := s.store.ScanPrices(ctx, user, pairs, gte, lte)
	if err != nil {
		return nil, fmt.Errorf("scan prices: %w", err)
	}
	byPair := make(map[model.Pair][]model.Price, len(pairs))
	for _, p := range rows {
		k := model.Pair{Base: p.BaseAssetReference, Quote: p.QuoteAssetReference}
		byPair[k] = append(byPair[k], p)
	}

	key := func(p model.Price) int64 { return p.ConfirmedTime.UnixMilli() }
	var out []model.MarkPrice
	for _, pair := range pairs {
		series := byPair[pair]
		for _, q := range at {
			i, ok := domainsvc.MatchIndex(series, q.UnixMilli(), key)
			if !ok {
				continue
			}
			if maxDelta >= 0 && q.Sub(series[i].ConfirmedTime) > maxDelta {
				continue
			}
			out = append(out, model.MarkPrice{Pair: pair, QueryTime: q, Price: series[i]})
		}
	}
	log.Debug().Str("user", user).Int("pairs", len(pairs)).Int("scanned", len(rows)).Int("matched", len(out)).Msg("mark prices")
	return out, nil
}
