package bills

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"mdrisk/internal/application/port"
	"mdrisk/internal/domain/model"
	dsvc "mdrisk/internal/domain/service"
)

// Aggregator 拉取账单归档并按窗口滚动现金流；已存在的窗口跳过
type Aggregator struct {
	source port.BillSource
	store  port.WindowStore
	step   time.Duration
}

func NewAggregator(source port.BillSource, store port.WindowStore, step time.Duration) *Aggregator {
	if step <= 0 {
		step = dsvc.BillWindow
	}
	return &Aggregator{source: source, store: store, step: step}
}

// Summary 一次运行的统计
type Summary struct {
	Processed int
	Skipped   int
	Bills     int
	Closing   model.FeeBalances
}

// Run 处理 [since, until) 内的每个窗口
func (a *Aggregator) Run(ctx context.Context, since, until time.Time) (Summary, error) {
	var sum Summary
	for _, w := range dsvc.SplitWindows(since.UTC(), until.UTC(), a.step) {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		done, err := a.store.HasWindow(w.From, w.To)
		if err != nil {
			return sum, err
		}
		if done {
			sum.Skipped++
			log.Debug().Time("from", w.From).Time("to", w.To).Msg("window exists, skip")
			continue
		}

		opening, ok, err := a.store.OpeningBalances(w.From)
		if err != nil {
			return sum, err
		}
		if !ok {
			opening = model.FeeBalances{}
		}

		raws, err := a.Fetch(ctx, w.From.UnixMilli(), w.To.UnixMilli()-1)
		if err != nil {
			return sum, fmt.Errorf("window %s: %w", w.From.Format(time.RFC3339), err)
		}
		var inWindow []model.Bill
		for _, b := range dsvc.ClassifyBills(raws) {
			if w.Contains(b.Timestamp) {
				inWindow = append(inWindow, b)
			}
		}

		flows, closing := dsvc.RollWindow(opening, inWindow)
		if err := a.store.SaveWindow(w.From, w.To, flows, closing); err != nil {
			return sum, err
		}
		sum.Processed++
		sum.Bills += len(inWindow)
		sum.Closing = closing
		log.Info().Time("from", w.From).Time("to", w.To).Int("bills", len(inWindow)).
			Str("closing_total", dsvc.SumBalance(closing).String()).Msg("window aggregated")
	}
	return sum, nil
}

// Fetch 分页拉取 [begin, end]，下一页从 max(ts)+1 开始，直到空页
func (a *Aggregator) Fetch(ctx context.Context, begin, end int64) ([]model.RawBill, error) {
	var out []model.RawBill
	for begin <= end {
		page, err := a.source.BillsArchive(ctx, begin, end)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		out = append(out, page...)

		maxTs := page[0].Ts
		for _, b := range page[1:] {
			if b.Ts > maxTs {
				maxTs = b.Ts
			}
		}
		if maxTs+1 <= begin {
			break
		}
		begin = maxTs + 1
	}
	return out, nil
}
