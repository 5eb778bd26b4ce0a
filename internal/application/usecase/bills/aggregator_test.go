package bills

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdrisk/internal/domain/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// pagedSource 每页最多 pageSize 条，按 ts 升序
type pagedSource struct {
	bills    []model.RawBill
	pageSize int
	calls    [][2]int64
}

func (s *pagedSource) BillsArchive(_ context.Context, begin, end int64) ([]model.RawBill, error) {
	s.calls = append(s.calls, [2]int64{begin, end})
	var out []model.RawBill
	for _, b := range s.bills {
		if b.Ts >= begin && b.Ts <= end {
			out = append(out, b)
			if len(out) == s.pageSize {
				break
			}
		}
	}
	return out, nil
}

type memWindows struct {
	flows    map[string][]model.CashFlow
	balances map[int64]model.FeeBalances
}

func newMemWindows() *memWindows {
	return &memWindows{flows: map[string][]model.CashFlow{}, balances: map[int64]model.FeeBalances{}}
}

func key(from, to time.Time) string { return from.String() + "|" + to.String() }

func (m *memWindows) HasWindow(from, to time.Time) (bool, error) {
	_, f := m.flows[key(from, to)]
	_, b := m.balances[to.UnixMilli()]
	return f && b, nil
}

func (m *memWindows) OpeningBalances(at time.Time) (model.FeeBalances, bool, error) {
	b, ok := m.balances[at.UnixMilli()]
	return b, ok, nil
}

func (m *memWindows) SaveWindow(from, to time.Time, flows []model.CashFlow, closing model.FeeBalances) error {
	m.flows[key(from, to)] = flows
	m.balances[to.UnixMilli()] = closing
	return nil
}

var day0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func ms(d time.Duration) int64 { return day0.Add(d).UnixMilli() }

func TestFetchPagesUntilEmpty(t *testing.T) {
	src := &pagedSource{pageSize: 2, bills: []model.RawBill{
		{BillID: "1", Ts: 10}, {BillID: "2", Ts: 20}, {BillID: "3", Ts: 20}, {BillID: "4", Ts: 30}, {BillID: "5", Ts: 40},
	}}
	got, err := NewAggregator(src, newMemWindows(), 0).Fetch(context.Background(), 0, 100)
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, b := range got {
		ids = append(ids, b.BillID)
	}
	// max(ts)+1 paging skips bills that share the boundary timestamp
	assert.Equal(t, []string{"1", "2", "4", "5"}, ids)
	assert.Equal(t, int64(21), src.calls[1][0])
	assert.Equal(t, [2]int64{41, 100}, src.calls[len(src.calls)-1])
}

func TestRunRollsDailyWindows(t *testing.T) {
	src := &pagedSource{pageSize: 100, bills: []model.RawBill{
		{BillID: "a", Ts: ms(time.Hour), Ccy: "USDT", Type: "2", Fee: dec("0.1"), InstID: "BTC-USDT", Side: "buy"},
		{BillID: "b", Ts: ms(2 * time.Hour), Ccy: "USDT", Type: "8", BalChg: dec("0.5"), InstID: "BTC-USDT-SWAP"},
		{BillID: "c", Ts: ms(25 * time.Hour), Ccy: "USDT", Type: "7", BalChg: dec("-0.2")},
		{BillID: "d", Ts: ms(26 * time.Hour), Ccy: "USDT", Type: "1", BalChg: dec("1000")},
	}}
	store := newMemWindows()
	agg := NewAggregator(src, store, 24*time.Hour)

	sum, err := agg.Run(context.Background(), day0, day0.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Processed)
	assert.Equal(t, 3, sum.Bills)
	assert.True(t, sum.Closing["USDT"].Equal(dec("0.2")), "closing=%s", sum.Closing["USDT"])

	first := store.flows[key(day0, day0.Add(24*time.Hour))]
	require.Len(t, first, 2)
	assert.True(t, first[0].Balance.Equal(dec("-0.1")))
	assert.True(t, first[1].Balance.Equal(dec("0.4")))

	second := store.flows[key(day0.Add(24*time.Hour), day0.Add(48*time.Hour))]
	require.Len(t, second, 1)
	assert.True(t, second[0].Balance.Equal(dec("0.2")), "carries prior closing balance")

	calls := len(src.calls)
	again, err := agg.Run(context.Background(), day0, day0.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, again.Processed)
	assert.Equal(t, 2, again.Skipped)
	assert.Equal(t, calls, len(src.calls), "existing windows are not fetched again")
}

func TestRunResumesFromStoredBalance(t *testing.T) {
	store := newMemWindows()
	store.balances[day0.UnixMilli()] = model.FeeBalances{"BTC": dec("1")}
	src := &pagedSource{pageSize: 10, bills: []model.RawBill{
		{Ts: ms(time.Hour), Ccy: "BTC", Type: "8", BalChg: dec("-0.25")},
	}}
	sum, err := NewAggregator(src, store, 0).Run(context.Background(), day0, day0.Add(24*time.Hour))
	require.NoError(t, err)
	assert.True(t, sum.Closing["BTC"].Equal(dec("0.75")))
}
