package port

import (
	"context"
	"time"

	"mdrisk/internal/domain/model"
)

// BillSource 账单归档，[begin, end] 毫秒
type BillSource interface {
	BillsArchive(ctx context.Context, begin, end int64) ([]model.RawBill, error)
}

// WindowStore 按窗口持久化现金流与期末余额
type WindowStore interface {
	// HasWindow 两份输出都存在
	HasWindow(from, to time.Time) (bool, error)
	// OpeningBalances 以 at 为期末的余额；不存在时 ok=false
	OpeningBalances(at time.Time) (b model.FeeBalances, ok bool, err error)
	SaveWindow(from, to time.Time, flows []model.CashFlow, closing model.FeeBalances) error
}
