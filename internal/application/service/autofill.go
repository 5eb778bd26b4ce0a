package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"mdrisk/internal/application/port"
	"mdrisk/internal/domain/model"
)

// canonicalBase 自动补价的基准资产
const canonicalBase = "USD"

// AutoFillService 在资产负债表时间点上补齐缺失价格
type AutoFillService struct {
	store port.Store
	feeds port.FeedResolver
	ids   port.IDGenerator
}

func NewAutoFillService(store port.Store, feeds port.FeedResolver, ids port.IDGenerator) *AutoFillService {
	return &AutoFillService{store: store, feeds: feeds, ids: ids}
}

// AutoFillResult 本次插入的价格
type AutoFillResult struct {
	Operator string
	Inserted []model.Price
	// Unmatched 行情源没有返回价格的时间点，按 quote 符号分组
	Unmatched map[string][]time.Time
}

type fillPlan struct {
	quote    model.Asset
	existing map[int64]struct{}
	results  []model.QueryResult
}

// Run 先拉取行情再在一个事务里写入，任一插入失败整体回滚
func (s *AutoFillService) Run(ctx context.Context, user, operatorRef string) (AutoFillResult, error) {
	op, err := s.store.GetOperator(ctx, user, operatorRef)
	if err != nil {
		return AutoFillResult{}, fmt.Errorf("operator %s: %w", operatorRef, err)
	}
	feed, err := s.feeds.Resolve(op)
	if err != nil {
		return AutoFillResult{}, err
	}

	assets, err := s.store.ListAssets(ctx, user)
	if err != nil {
		return AutoFillResult{}, err
	}
	base, quotes, err := splitSettleable(assets)
	if err != nil {
		return AutoFillResult{}, err
	}

	sheets, err := s.store.ListBalanceSheets(ctx, user)
	if err != nil {
		return AutoFillResult{}, err
	}
	occupied := make(map[int64]time.Time, len(sheets))
	for _, b := range sheets {
		occupied[b.BalancedTime.UnixMilli()] = b.BalancedTime
	}

	res := AutoFillResult{Operator: op.Reference, Unmatched: map[string][]time.Time{}}
	var plans []fillPlan
	for _, q := range quotes {
		pair := model.Pair{Base: base.Reference, Quote: q.Reference}
		times, err := s.store.ConfirmedTimes(ctx, user, pair)
		if err != nil {
			return AutoFillResult{}, err
		}
		existing := make(map[int64]struct{}, len(times))
		for _, t := range times {
			existing[t.UnixMilli()] = struct{}{}
		}

		var target []time.Time
		for ms, t := range occupied {
			if _, ok := existing[ms]; !ok {
				target = append(target, t)
			}
		}
		if len(target) == 0 {
			continue
		}
		sort.Slice(target, func(i, j int) bool { return target[i].Before(target[j]) })

		symbol := base.Symbol + "_" + q.Symbol
		results, err := feed.FetchPrices(ctx, symbol, model.Interval1d, target)
		if err != nil {
			return AutoFillResult{}, fmt.Errorf("%s fetch %s: %w", feed.Name(), symbol, err)
		}
		log.Info().Str("user", user).Str("operator", feed.Name()).Str("quote", q.Symbol).
			Int("target", len(target)).Int("results", len(results)).Msg("auto-fill fetched")
		plans = append(plans, fillPlan{quote: q, existing: existing, results: results})
	}

	err = s.store.WithTx(ctx, func(tx port.Store) error {
		for _, plan := range plans {
			for _, r := range plan.results {
				if !r.Matched() {
					res.Unmatched[plan.quote.Symbol] = append(res.Unmatched[plan.quote.Symbol], r.QueryTime)
					continue
				}
				ms := r.MatchedTime.UnixMilli()
				if _, ok := plan.existing[ms]; ok {
					continue
				}
				p := model.Price{
					Reference:           s.ids.NewID(),
					UserReference:       user,
					BaseAssetReference:  base.Reference,
					QuoteAssetReference: plan.quote.Reference,
					Value:               *r.MatchedPrice,
					ConfirmedTime:       r.MatchedTime.UTC(),
				}
				if err := tx.InsertPrice(ctx, p); err != nil {
					return fmt.Errorf("insert %s/%s@%d: %w", base.Symbol, plan.quote.Symbol, ms, err)
				}
				plan.existing[ms] = struct{}{}
				res.Inserted = append(res.Inserted, p)
			}
		}
		return nil
	})
	if err != nil {
		return AutoFillResult{}, err
	}
	log.Info().Str("user", user).Str("operator", feed.Name()).Int("inserted", len(res.Inserted)).Msg("auto-fill done")
	return res, nil
}

// splitSettleable 选出 USD 作为 base，其它可结算资产作为 quote
func splitSettleable(assets []model.Asset) (model.Asset, []model.Asset, error) {
	var base *model.Asset
	var quotes []model.Asset
	for i := range assets {
		a := assets[i]
		if !a.IsSettleable {
			continue
		}
		if a.Symbol == canonicalBase && base == nil {
			base = &assets[i]
			continue
		}
		quotes = append(quotes, a)
	}
	if base == nil {
		return model.Asset{}, nil, fmt.Errorf("settleable %s asset: %w", canonicalBase, model.ErrNotFound)
	}
	return *base, quotes, nil
}
