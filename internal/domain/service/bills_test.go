package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdrisk/internal/domain/model"
)

func TestClassifyBillsScenario(t *testing.T) {
	raws := []model.RawBill{
		{BillID: "3", Ts: 3000, Ccy: "USDT", Type: "8", BalChg: dec("0.42"), InstID: "BTC-USDT-SWAP"},
		{BillID: "1", Ts: 1000, Ccy: "USDT", Type: "2", BalChg: dec("-0.05"), Fee: dec("0.05"), InstID: "BTC-USDT-SWAP", Side: "sell"},
		{BillID: "2", Ts: 2000, Ccy: "USDT", Type: "7", BalChg: dec("-0.01")},
		{BillID: "4", Ts: 4000, Ccy: "USDT", Type: "1", BalChg: dec("100")},
	}
	bills := ClassifyBills(raws)
	require.Len(t, bills, 3)

	assert.Equal(t, model.BillTradeFee, bills[0].Type)
	assert.True(t, bills[0].BalanceChange.Equal(dec("-0.05")))
	assert.Equal(t, "BTC-USDT-SWAP", bills[0].Symbol)
	assert.Equal(t, "sell", bills[0].Side)

	assert.Equal(t, model.BillInterestDeduction, bills[1].Type)
	assert.True(t, bills[1].BalanceChange.IsNegative())

	assert.Equal(t, model.BillFundingFee, bills[2].Type)
	assert.True(t, bills[2].BalanceChange.Equal(dec("0.42")))
	assert.Equal(t, time.UnixMilli(3000).UTC(), bills[2].Timestamp)
}

func TestRollWindowCumulative(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bills := []model.Bill{
		{Timestamp: t0.Add(2 * time.Hour), Currency: "USDT", BalanceChange: dec("2")},
		{Timestamp: t0.Add(time.Hour), Currency: "USDT", BalanceChange: dec("-1")},
		{Timestamp: t0.Add(3 * time.Hour), Currency: "BTC", BalanceChange: dec("0.001")},
	}
	opening := model.FeeBalances{"USDT": dec("10")}

	flows, closing := RollWindow(opening, bills)
	require.Len(t, flows, 3)
	assert.True(t, flows[0].Balance.Equal(dec("9")))
	assert.True(t, flows[1].Balance.Equal(dec("11")))
	assert.True(t, flows[2].Balance.Equal(dec("0.001")))
	assert.True(t, closing["USDT"].Equal(dec("11")))
	assert.True(t, closing["BTC"].Equal(dec("0.001")))
	assert.True(t, opening["USDT"].Equal(dec("10")), "opening balances untouched")
}

func TestSplitWindows(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ws := SplitWindows(t0, t0.Add(50*time.Hour), BillWindow)
	require.Len(t, ws, 3)
	assert.Equal(t, t0.Add(48*time.Hour), ws[2].From)
	assert.Equal(t, t0.Add(50*time.Hour), ws[2].To)
	assert.True(t, ws[0].Contains(t0))
	assert.False(t, ws[0].Contains(t0.Add(24*time.Hour)))

	assert.Empty(t, SplitWindows(t0, t0, BillWindow))
}
