package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ArbMode 开仓或平仓
type ArbMode string

const (
	ArbOpen  ArbMode = "open"
	ArbClose ArbMode = "close"
)

// ArbSide 杠杆腿方向，永续腿总是相反
type ArbSide string

const (
	LongMarginShortPerp ArbSide = "long_margin_short_perp"
	ShortMarginLongPerp ArbSide = "short_margin_long_perp"
)

// ParseArbSide accepts the full name or the short forms "long"/"short".
func ParseArbSide(s string) (ArbSide, bool) {
	switch s {
	case string(LongMarginShortPerp), "long":
		return LongMarginShortPerp, true
	case string(ShortMarginLongPerp), "short":
		return ShortMarginLongPerp, true
	}
	return "", false
}

// OrderSide 下单方向
type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

// LegSides 返回 (杠杆腿, 永续腿) 的下单方向。
// 平仓与开仓相反。
func LegSides(mode ArbMode, side ArbSide) (margin, perp OrderSide) {
	margin, perp = Buy, Sell
	if side == ShortMarginLongPerp {
		margin, perp = Sell, Buy
	}
	if mode == ArbClose {
		margin, perp = perp, margin
	}
	return margin, perp
}

// Market 下单市场
type Market string

const (
	MarketMargin Market = "margin"
	MarketSwap   Market = "swap"
)

// SizeUnit 市价单数量的单位
type SizeUnit string

const (
	SizeBase     SizeUnit = "base"
	SizeQuote    SizeUnit = "quote"
	SizeContract SizeUnit = "contract"
)

// LegSpec 一条腿的精度约束：LotSize/MinSize 以该腿自己的单位计（杠杆为币，永续为张）
type LegSpec struct {
	InstID   string
	LotSize  decimal.Decimal
	MinSize  decimal.Decimal
	CtVal    decimal.Decimal
	Quote    string
	BaseCcy  string
	Category Market
}

// OrderRequest 一笔市价单
type OrderRequest struct {
	InstID        string
	Market        Market
	Side          OrderSide
	Size          decimal.Decimal
	Unit          SizeUnit
	ClientOrderID string
	Ccy           string
}

// OrderResult 交易所返回
type OrderResult struct {
	OrderID       string
	ClientOrderID string
	InstID        string
}

// SpreadTick 一次盘口更新后的价差快照
type SpreadTick struct {
	Time       time.Time
	Mode       ArbMode
	Side       ArbSide
	MarginBid  decimal.Decimal
	MarginAsk  decimal.Decimal
	PerpBid    decimal.Decimal
	PerpAsk    decimal.Decimal
	Spread     decimal.Decimal
	LastSpread *decimal.Decimal
	Converging *bool
}

// Arrow ▲ diverging, ▼ converging, blank on the first tick.
func (t SpreadTick) Arrow() string {
	if t.Converging == nil {
		return " "
	}
	if *t.Converging {
		return "▼"
	}
	return "▲"
}

// ArbResult 一次开/平仓的结果
type ArbResult struct {
	Mode   ArbMode
	Side   ArbSide
	Size   decimal.Decimal
	Margin OrderResult
	Perp   OrderResult
	Spread decimal.Decimal
}
