package port

import (
	"context"
	"time"

	"mdrisk/internal/domain/model"
)

type AssetRepository interface {
	SaveAsset(ctx context.Context, a model.Asset) error
	ListAssets(ctx context.Context, user string) ([]model.Asset, error)
}

// PriceRepository 价格观测；(user, base, quote, confirmed_time) 唯一
type PriceRepository interface {
	// InsertPrice 冲突时返回 model.ErrPriceConflict
	InsertPrice(ctx context.Context, p model.Price) error
	// ListPrices 按 confirmed_time 倒序
	ListPrices(ctx context.Context, user string, f model.PriceFilter) ([]model.Price, error)
	// ScanPrices 一次范围扫描，按 confirmed_time 升序
	ScanPrices(ctx context.Context, user string, pairs []model.Pair, gte, lte time.Time) ([]model.Price, error)
	ConfirmedTimes(ctx context.Context, user string, pair model.Pair) ([]time.Time, error)
}

type BalanceSheetRepository interface {
	SaveBalanceSheet(ctx context.Context, b model.BalanceSheet) error
	ListBalanceSheets(ctx context.Context, user string) ([]model.BalanceSheet, error)
}

type OperatorRepository interface {
	SaveOperator(ctx context.Context, op model.Operator) error
	GetOperator(ctx context.Context, user, reference string) (model.Operator, error)
}

// Store 所有仓储，WithTx 内的写入一次提交，fn 返回错误时整体回滚
type Store interface {
	AssetRepository
	PriceRepository
	BalanceSheetRepository
	OperatorRepository
	WithTx(ctx context.Context, fn func(tx Store) error) error
	Close() error
}

// IDGenerator 生成实体 reference
type IDGenerator interface {
	NewID() string
}

// FeedResolver 按 operator 判别符构造行情源
type FeedResolver interface {
	Resolve(op model.Operator) (HistoricalFeed, error)
}
