package model

import "errors"

// 符号 / 行情
var (
	// ErrInvalidSymbol 符号无法解析为 BASE_QUOTE[_SETTLE[_PERIOD]]
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrAggregatedTerm 非数字交割周期（如 QUARTERLY），不能参与风险计算
	ErrAggregatedTerm = errors.New("aggregated term instrument is not computable")
	// ErrUnsupportedInterval 行情源不支持该周期
	ErrUnsupportedInterval = errors.New("unsupported interval")
	// ErrFeedTransport 行情源 HTTP 传输失败，调用方可以用剩余时间点重试
	ErrFeedTransport = errors.New("feed transport error")
	// ErrNoMarkPrice 找不到标记价格
	ErrNoMarkPrice = errors.New("no mark price")
)

// 存储
var (
	ErrPriceConflict   = errors.New("price already exists for user, pair and confirmed time")
	ErrNotFound        = errors.New("not found")
	ErrUnknownOperator = errors.New("unknown operator discriminator")
)

// 下单 / 策略
var (
	// ErrPrecisionUnderflow 名义金额太小，量化后低于最小下单量
	ErrPrecisionUnderflow = errors.New("too small to derive compatible amount")
	// ErrOrderBookShallow 盘口深度不足（不吃多档）
	ErrOrderBookShallow = errors.New("order book too shallow for size")
	// ErrConvergenceGate 价差方向不满足开/平仓条件
	ErrConvergenceGate = errors.New("spread direction gate not satisfied")
	// ErrOrderPlacement 下单失败，另一条腿不会自动回滚
	ErrOrderPlacement = errors.New("order placement failed")
	// ErrAlreadyRunning 同名策略仍在运行
	ErrAlreadyRunning = errors.New("strategy already running")
	// ErrLockLost 运行锁已过期或被其它进程持有
	ErrLockLost = errors.New("run lock lost")
)
