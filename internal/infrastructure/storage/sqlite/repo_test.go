package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdrisk/internal/application/port"
	"mdrisk/internal/domain/model"
	"mdrisk/internal/infrastructure/storage/sqlstore"
)

func newStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	store, err := New(context.Background(), filepath.Join(t.TempDir(), "nested", "mdrisk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func price(ref, base, quote, value string, at time.Time) model.Price {
	return model.Price{
		Reference:           ref,
		UserReference:       "u1",
		BaseAssetReference:  base,
		QuoteAssetReference: quote,
		Value:               decimal.RequireFromString(value),
		ConfirmedTime:       at,
	}
}

func TestInsertPriceConflict(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.InsertPrice(ctx, price("p1", "usd", "jpy", "141.5", at)))
	err := store.InsertPrice(ctx, price("p2", "usd", "jpy", "142", at))
	assert.ErrorIs(t, err, model.ErrPriceConflict)

	// 其他用户同一时间点不冲突
	other := price("p3", "usd", "jpy", "142", at)
	other.UserReference = "u2"
	assert.NoError(t, store.InsertPrice(ctx, other))
}

func TestListPricesFilterAndOrder(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

	for i, d := range []int{1, 3, 2, 4} {
		require.NoError(t, store.InsertPrice(ctx, price("p"+string(rune('a'+i)), "usd", "jpy", "140", day(d))))
	}
	require.NoError(t, store.InsertPrice(ctx, price("px", "usd", "eur", "0.9", day(2))))

	got, err := store.ListPrices(ctx, "u1", model.PriceFilter{Base: "usd", Quote: "jpy", Gte: day(2), Lt: day(4)})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, day(3), got[0].ConfirmedTime)
	assert.Equal(t, day(2), got[1].ConfirmedTime)

	paged, err := store.ListPrices(ctx, "u1", model.PriceFilter{Offset: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, paged, 2)
	assert.Equal(t, day(3), paged[0].ConfirmedTime)

	tail, err := store.ListPrices(ctx, "u1", model.PriceFilter{Offset: 4})
	require.NoError(t, err)
	assert.Len(t, tail, 1)
}

func TestScanPricesAscending(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, store.InsertPrice(ctx, price("a", "usd", "jpy", "141", day(3))))
	require.NoError(t, store.InsertPrice(ctx, price("b", "usd", "jpy", "140", day(1))))
	require.NoError(t, store.InsertPrice(ctx, price("c", "usd", "eur", "0.91", day(2))))
	require.NoError(t, store.InsertPrice(ctx, price("d", "usd", "gbp", "0.8", day(2))))

	pairs := []model.Pair{{Base: "usd", Quote: "jpy"}, {Base: "usd", Quote: "eur"}}
	got, err := store.ScanPrices(ctx, "u1", pairs, day(1), day(3))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].Reference)
	assert.Equal(t, "c", got[1].Reference)
	assert.Equal(t, "141", got[2].Value.String())

	times, err := store.ConfirmedTimes(ctx, "u1", pairs[0])
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(1), day(3)}, times)
}

func TestWithTxRollback(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx port.Store) error {
		require.NoError(t, tx.InsertPrice(ctx, price("p1", "usd", "jpy", "141", at)))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.ListPrices(ctx, "u1", model.PriceFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, store.WithTx(ctx, func(tx port.Store) error {
		return tx.InsertPrice(ctx, price("p1", "usd", "jpy", "141", at))
	}))
	got, err = store.ListPrices(ctx, "u1", model.PriceFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestAssetsSheetsOperators(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAsset(ctx, model.Asset{Reference: "usd", UserReference: "u1", Symbol: "USD", IsSettleable: true}))
	require.NoError(t, store.SaveAsset(ctx, model.Asset{Reference: "btc", UserReference: "u1", Symbol: "BTC", Decimals: 8}))
	assets, err := store.ListAssets(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "BTC", assets[0].Symbol)
	assert.True(t, assets[1].IsSettleable)

	at := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	sheet := model.BalanceSheet{Reference: "bs1", UserReference: "u1", BalancedTime: at, Entries: []model.BalanceEntry{
		{AccountReference: "cash", Amount: decimal.RequireFromString("10.5")},
		{AccountReference: "btc", Amount: decimal.RequireFromString("0.1")},
	}}
	require.NoError(t, store.SaveBalanceSheet(ctx, sheet))
	require.NoError(t, store.SaveBalanceSheet(ctx, model.BalanceSheet{Reference: "bs0", UserReference: "u1", BalancedTime: at.AddDate(0, -1, 0)}))

	sheets, err := store.ListBalanceSheets(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sheets, 2)
	assert.Equal(t, "bs0", sheets[0].Reference)
	assert.Empty(t, sheets[0].Entries)
	assert.Len(t, sheets[1].Entries, 2)
	assert.Equal(t, at, sheets[1].BalancedTime)

	op := model.Operator{Reference: "op1", UserReference: "u1", Discriminator: model.OperatorYahooFinance, Value: []byte(`{}`)}
	require.NoError(t, store.SaveOperator(ctx, op))
	got, err := store.GetOperator(ctx, "u1", "op1")
	require.NoError(t, err)
	assert.Equal(t, op, got)

	_, err = store.GetOperator(ctx, "u2", "op1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
