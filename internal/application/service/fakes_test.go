package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"mdrisk/internal/application/port"
	"mdrisk/internal/domain/model"
)

type memState struct {
	assets    []model.Asset
	prices    []model.Price
	sheets    []model.BalanceSheet
	operators []model.Operator
}

func (s memState) clone() memState {
	return memState{
		assets:    append([]model.Asset(nil), s.assets...),
		prices:    append([]model.Price(nil), s.prices...),
		sheets:    append([]model.BalanceSheet(nil), s.sheets...),
		operators: append([]model.Operator(nil), s.operators...),
	}
}

// memStore 内存版 port.Store，WithTx 用写时复制实现回滚
type memStore struct {
	mu    *sync.Mutex
	state *memState
	// failInsertAfter >0 时第 n 次插入失败
	failInsertAfter int
	inserts         int
}

func newMemStore() *memStore {
	return &memStore{mu: &sync.Mutex{}, state: &memState{}}
}

func (m *memStore) SaveAsset(_ context.Context, a model.Asset) error {
	m.state.assets = append(m.state.assets, a)
	return nil
}

func (m *memStore) ListAssets(_ context.Context, user string) ([]model.Asset, error) {
	var out []model.Asset
	for _, a := range m.state.assets {
		if a.UserReference == user {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) InsertPrice(_ context.Context, p model.Price) error {
	m.inserts++
	if m.failInsertAfter > 0 && m.inserts >= m.failInsertAfter {
		return errors.New("disk full")
	}
	for _, q := range m.state.prices {
		if q.UserReference == p.UserReference && q.BaseAssetReference == p.BaseAssetReference &&
			q.QuoteAssetReference == p.QuoteAssetReference && q.ConfirmedTime.Equal(p.ConfirmedTime) {
			return fmt.Errorf("%w", model.ErrPriceConflict)
		}
	}
	m.state.prices = append(m.state.prices, p)
	return nil
}

func (m *memStore) ListPrices(_ context.Context, user string, f model.PriceFilter) ([]model.Price, error) {
	var out []model.Price
	for _, p := range m.state.prices {
		if p.UserReference != user || (f.Base != "" && p.BaseAssetReference != f.Base) || (f.Quote != "" && p.QuoteAssetReference != f.Quote) {
			continue
		}
		if !f.Gte.IsZero() && p.ConfirmedTime.Before(f.Gte) || !f.Lt.IsZero() && !p.ConfirmedTime.Before(f.Lt) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConfirmedTime.After(out[j].ConfirmedTime) })
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memStore) ScanPrices(_ context.Context, user string, pairs []model.Pair, gte, lte time.Time) ([]model.Price, error) {
	want := map[model.Pair]bool{}
	for _, p := range pairs {
		want[p] = true
	}
	var out []model.Price
	for _, p := range m.state.prices {
		if p.UserReference != user || !want[model.Pair{Base: p.BaseAssetReference, Quote: p.QuoteAssetReference}] {
			continue
		}
		if p.ConfirmedTime.Before(gte) || p.ConfirmedTime.After(lte) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConfirmedTime.Before(out[j].ConfirmedTime) })
	return out, nil
}

func (m *memStore) ConfirmedTimes(ctx context.Context, user string, pair model.Pair) ([]time.Time, error) {
	ps, _ := m.ListPrices(ctx, user, model.PriceFilter{Base: pair.Base, Quote: pair.Quote})
	out := make([]time.Time, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ConfirmedTime)
	}
	return out, nil
}

func (m *memStore) SaveBalanceSheet(_ context.Context, b model.BalanceSheet) error {
	m.state.sheets = append(m.state.sheets, b)
	return nil
}

func (m *memStore) ListBalanceSheets(_ context.Context, user string) ([]model.BalanceSheet, error) {
	var out []model.BalanceSheet
	for _, b := range m.state.sheets {
		if b.UserReference == user {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) SaveOperator(_ context.Context, op model.Operator) error {
	m.state.operators = append(m.state.operators, op)
	return nil
}

func (m *memStore) GetOperator(_ context.Context, user, ref string) (model.Operator, error) {
	for _, op := range m.state.operators {
		if op.UserReference == user && op.Reference == ref {
			return op, nil
		}
	}
	return model.Operator{}, model.ErrNotFound
}

func (m *memStore) WithTx(_ context.Context, fn func(tx port.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.state.clone()
	tx := &memStore{mu: &sync.Mutex{}, state: &snapshot, failInsertAfter: m.failInsertAfter, inserts: m.inserts}
	if err := fn(tx); err != nil {
		return err
	}
	*m.state = snapshot
	m.inserts = tx.inserts
	return nil
}

func (m *memStore) Close() error { return nil }

type seqIDs struct{ n int }

func (s *seqIDs) NewID() string {
	s.n++
	return fmt.Sprintf("id-%03d", s.n)
}

// stubFeed 对每个查询时间返回预设的匹配
type stubFeed struct {
	byQuery map[int64]model.QueryResult
	calls   [][]time.Time
	err     error
}

func (f *stubFeed) Name() string { return "stub" }

func (f *stubFeed) FetchPrices(_ context.Context, _ string, _ model.Interval, queries []time.Time) ([]model.QueryResult, error) {
	f.calls = append(f.calls, queries)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.QueryResult, 0, len(queries))
	for _, q := range queries {
		r, ok := f.byQuery[q.UnixMilli()]
		if !ok {
			r = model.QueryResult{QueryTime: q}
		}
		out = append(out, r)
	}
	return out, nil
}

type stubResolver struct{ feed port.HistoricalFeed }

func (r stubResolver) Resolve(op model.Operator) (port.HistoricalFeed, error) {
	if op.Discriminator != model.OperatorCoinGecko {
		return nil, model.ErrUnknownOperator
	}
	return r.feed, nil
}

type stubAccount struct {
	positions []model.Position
}

func (a stubAccount) Balance(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (a stubAccount) Contracts(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (a stubAccount) Positions(context.Context) ([]model.Position, error) {
	return a.positions, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func timePtr(t time.Time) *time.Time { return &t }
