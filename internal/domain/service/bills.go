package service

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"mdrisk/internal/domain/model"
)

// OKX bill type codes
const (
	billTypeTrade    = "2"
	billTypeInterest = "7"
	billTypeFunding  = "8"
)

// BillWindow 默认日窗口
const BillWindow = 24 * time.Hour

// ClassifyBill 把原始账单映射为语义账单；其它类型返回 false
func ClassifyBill(raw model.RawBill) (model.Bill, bool) {
	b := model.Bill{
		Timestamp: time.UnixMilli(raw.Ts).UTC(),
		Currency:  raw.Ccy,
	}
	switch raw.Type {
	case billTypeTrade:
		b.Type = model.BillTradeFee
		b.BalanceChange = raw.Fee.Neg()
		b.Symbol = raw.InstID
		b.Side = raw.Side
	case billTypeInterest:
		b.Type = model.BillInterestDeduction
		b.BalanceChange = raw.BalChg
	case billTypeFunding:
		b.Type = model.BillFundingFee
		b.BalanceChange = raw.BalChg
		b.Symbol = raw.InstID
	default:
		return model.Bill{}, false
	}
	return b, true
}

// ClassifyBills 批量分类，按时间排序
func ClassifyBills(raws []model.RawBill) []model.Bill {
	out := make([]model.Bill, 0, len(raws))
	for _, r := range raws {
		if b, ok := ClassifyBill(r); ok {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// RollWindow 现金流累计：balance = 上一窗口期末余额 + 本币种累计变动
func RollWindow(opening model.FeeBalances, bills []model.Bill) ([]model.CashFlow, model.FeeBalances) {
	closing := make(model.FeeBalances, len(opening))
	for ccy, v := range opening {
		closing[ccy] = v
	}
	sorted := append([]model.Bill(nil), bills...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	flows := make([]model.CashFlow, 0, len(sorted))
	for _, b := range sorted {
		bal := closing[b.Currency].Add(b.BalanceChange)
		closing[b.Currency] = bal
		flows = append(flows, model.CashFlow{Bill: b, Balance: bal})
	}
	return flows, closing
}

// Window [From, To)
type Window struct {
	From time.Time
	To   time.Time
}

// Contains 时间是否落在窗口内
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// SplitWindows 从 since 开始按 step 切分，最后一个窗口不超过 until
func SplitWindows(since, until time.Time, step time.Duration) []Window {
	if step <= 0 || !since.Before(until) {
		return nil
	}
	var out []Window
	for from := since; from.Before(until); from = from.Add(step) {
		to := from.Add(step)
		if to.After(until) {
			to = until
		}
		out = append(out, Window{From: from, To: to})
	}
	return out
}

// SumBalance 所有币种的期末余额合计（仅用于日志）
func SumBalance(b model.FeeBalances) decimal.Decimal {
	total := decimal.Zero
	for _, v := range b {
		total = total.Add(v)
	}
	return total
}
