package arbitrage

import (
	"time"

	"github.com/shopspring/decimal"

	"mdrisk/internal/application/port"
	"mdrisk/internal/domain/model"
)

// defaultRetryInterval 深度或方向不满足时的等待时间
const defaultRetryInterval = 100 * time.Millisecond

type ServiceDeps struct {
	Venue       string
	Books       port.BookStream
	Orders      port.OrderClient
	Instruments port.InstrumentClient
	Account     port.AccountClient
	IDs         port.IDGenerator

	// Publisher 和 Sink 可为空
	Publisher     port.SpreadPublisher
	Sink          port.Sink
	RetryInterval time.Duration
}

// Params 一次开/平仓
type Params struct {
	Mode         model.ArbMode
	Side         model.ArbSide
	Base         string
	Quote        string
	MarginInstID string
	PerpInstID   string

	// MaxNotional 开仓名义价值（计价币），平仓时忽略
	MaxNotional decimal.Decimal
}

type legs struct {
	margin model.LegSpec
	perp   model.LegSpec
}
