package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Sign returns +1 for long and -1 for short.
func (s Side) Sign() decimal.Decimal {
	if s == SideShort {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// Position 从交易所状态重建的临时持仓，只存活于一次风险计算
type Position struct {
	Symbol           string
	Instrument       Instrument
	Side             Side
	TokenAmount      decimal.Decimal
	ContractAmount   *decimal.Decimal
	EntryPrice       *decimal.Decimal
	MarkPrice        *decimal.Decimal
	LiquidationPrice *decimal.Decimal
	MarginMode       string
	Margin           *decimal.Decimal
}

// Greeks 单个持仓的风险指标（Delta 以 1% 变动计）
type Greeks struct {
	Delta decimal.Decimal
	Gamma decimal.Decimal
	Vega  decimal.Decimal
	Theta decimal.Decimal
	DV01  decimal.Decimal
	Rho   decimal.Decimal
}

// Add 累加
func (g Greeks) Add(o Greeks) Greeks {
	return Greeks{
		Delta: g.Delta.Add(o.Delta),
		Gamma: g.Gamma.Add(o.Gamma),
		Vega:  g.Vega.Add(o.Vega),
		Theta: g.Theta.Add(o.Theta),
		DV01:  g.DV01.Add(o.DV01),
		Rho:   g.Rho.Add(o.Rho),
	}
}

// PositionRisk 风险引擎对一个持仓的输出；Warning 非空时 Greeks 为零值
type PositionRisk struct {
	Position   Position
	Greeks     Greeks
	ImpliedVol *float64
	Warning    string
}

// RiskReport 一次风险计算的结果
type RiskReport struct {
	AsOf      time.Time
	Currency  string
	Positions []PositionRisk
	Total     Greeks
}
