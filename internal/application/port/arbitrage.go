package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"mdrisk/internal/domain/model"
)

// OrderClient 市价下单
type OrderClient interface {
	PlaceOrder(ctx context.Context, req model.OrderRequest) (model.OrderResult, error)
}

// InstrumentClient 合约精度
type InstrumentClient interface {
	LegSpec(ctx context.Context, market model.Market, instID string) (model.LegSpec, error)
}

// AccountClient 账户状态
type AccountClient interface {
	// Balance 现金余额（杠杆借币时为负）
	Balance(ctx context.Context, ccy string) (decimal.Decimal, error)
	// Contracts 永续净持仓张数（空头为负）
	Contracts(ctx context.Context, instID string) (decimal.Decimal, error)
	// Positions 从交易所状态重建的所有持仓（现货余额 + 衍生品）
	Positions(ctx context.Context) ([]model.Position, error)
}

// SpreadPublisher 对外广播价差 tick
type SpreadPublisher interface {
	PublishSpread(ctx context.Context, tick model.SpreadTick) error
}

// RunLocker 跨进程的策略互斥
type RunLocker interface {
	// Acquire 已被占用时返回 model.ErrAlreadyRunning
	Acquire(ctx context.Context, name string, ttl time.Duration) (RunLease, error)
}

// RunLease 持有中的运行锁
type RunLease interface {
	// Refresh 续期到 ttl；锁已不属于自己时返回 model.ErrLockLost
	Refresh(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}
