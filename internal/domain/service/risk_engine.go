package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"mdrisk/internal/domain/model"
)

var (
	one        = decimal.NewFromInt(1)
	onePercent = decimal.RequireFromString("0.01")
	daysYear   = decimal.NewFromInt(365)
)

// MarketData 风险引擎需要的行情
// 找不到价格时返回 model.ErrNoMarkPrice，引擎不会编造价格
type MarketData interface {
	// Rate 1 单位 asset 折合报告币种
	Rate(asset string) (decimal.Decimal, error)
	// Spot base 以 quote 计价的现货价
	Spot(base, quote string) (decimal.Decimal, error)
}

// RiskEngine 按合约类型计算 FX 与利率希腊值
type RiskEngine struct {
	RiskFreeRate float64
}

func NewRiskEngine(riskFreeRate float64) *RiskEngine {
	return &RiskEngine{RiskFreeRate: riskFreeRate}
}

// Compute 计算所有持仓并汇总
func (e *RiskEngine) Compute(asOf time.Time, currency string, positions []model.Position, md MarketData) (model.RiskReport, error) {
	report := model.RiskReport{AsOf: asOf, Currency: currency}
	for _, p := range positions {
		pr, err := e.PositionRisk(asOf, p, md)
		if err != nil {
			return model.RiskReport{}, fmt.Errorf("position %s: %w", p.Symbol, err)
		}
		report.Positions = append(report.Positions, pr)
		report.Total = report.Total.Add(pr.Greeks)
	}
	return report, nil
}

// PositionRisk 单个持仓
func (e *RiskEngine) PositionRisk(asOf time.Time, p model.Position, md MarketData) (model.PositionRisk, error) {
	out := model.PositionRisk{Position: p}
	var err error
	switch p.Instrument.Kind {
	case model.KindSpot:
		out.Greeks, err = e.spot(p, md)
	case model.KindPerpetual:
		out.Greeks, err = e.perpetual(p, md)
	case model.KindDatedFuture:
		out.Greeks, err = e.datedFuture(asOf, p, md)
	case model.KindOption:
		out.Greeks, out.ImpliedVol, err = e.option(asOf, p, md)
	default:
		out.Warning = fmt.Sprintf("%s instrument %s skipped", p.Instrument.Kind, p.Instrument.Symbol())
		return out, nil
	}
	if err != nil {
		return model.PositionRisk{}, err
	}
	return out, nil
}

// deltaPerPercent signed token_amount * 0.01 * exchange_rate
func deltaPerPercent(p model.Position, md MarketData) (decimal.Decimal, error) {
	rate, err := md.Rate(p.Instrument.Base)
	if err != nil {
		return decimal.Zero, err
	}
	return p.Side.Sign().Mul(p.TokenAmount).Mul(onePercent).Mul(rate), nil
}

func (e *RiskEngine) spot(p model.Position, md MarketData) (model.Greeks, error) {
	if p.Instrument.Base == p.Instrument.Quote {
		return model.Greeks{}, nil
	}
	delta, err := deltaPerPercent(p, md)
	if err != nil {
		return model.Greeks{}, err
	}
	return model.Greeks{Delta: delta}, nil
}

func (e *RiskEngine) perpetual(p model.Position, md MarketData) (model.Greeks, error) {
	delta, err := deltaPerPercent(p, md)
	if err != nil {
		return model.Greeks{}, err
	}
	return model.Greeks{Delta: delta}, nil
}

// datedFuture cash-and-carry：用隐含期限利率把期货价拉回今天与明天
func (e *RiskEngine) datedFuture(asOf time.Time, p model.Position, md MarketData) (model.Greeks, error) {
	delta, err := deltaPerPercent(p, md)
	if err != nil {
		return model.Greeks{}, err
	}
	g := model.Greeks{Delta: delta}

	if p.MarkPrice == nil {
		return model.Greeks{}, fmt.Errorf("%w: future %s", model.ErrNoMarkPrice, p.Instrument.Symbol())
	}
	spot, err := md.Spot(p.Instrument.Base, p.Instrument.Quote)
	if err != nil {
		return model.Greeks{}, err
	}
	quoteRate, err := md.Rate(p.Instrument.Quote)
	if err != nil {
		return model.Greeks{}, err
	}

	th, dv01 := CarryTheta(spot, *p.MarkPrice, DaysToExpiry(asOf, p.Instrument.Expiry))
	scale := p.TokenAmount.Mul(p.Side.Sign()).Mul(quoteRate)
	g.Theta = th.Mul(scale)
	g.DV01 = dv01.Mul(scale)
	return g, nil
}

// CarryTheta 返回每单位 token 的一日 theta 与 1pp DV01（报价币种）。
// days_to_expiry <= 1 时两者都为零。
func CarryTheta(spot, future, days decimal.Decimal) (theta, dv01 decimal.Decimal) {
	if days.LessThanOrEqual(one) || spot.IsZero() {
		return decimal.Zero, decimal.Zero
	}
	ttm := days.Div(daysYear)
	ttmNext := decimal.Max(decimal.Zero, days.Sub(one)).Div(daysYear)

	rate := future.Sub(spot).Div(spot).Div(ttm)
	fToday := spot.Mul(one.Add(rate.Mul(ttm)))
	fTomorrow := spot.Mul(one.Add(rate.Mul(ttmNext)))

	theta = fTomorrow.Sub(fToday)
	dv01 = spot.Mul(one.Add(rate.Add(onePercent).Mul(ttm))).Sub(fToday)
	return theta, dv01
}

// DaysToExpiry 剩余天数（小数）
func DaysToExpiry(asOf, expiry time.Time) decimal.Decimal {
	return decimal.NewFromFloat(expiry.Sub(asOf).Hours() / 24)
}

func (e *RiskEngine) option(asOf time.Time, p model.Position, md MarketData) (model.Greeks, *float64, error) {
	inst := p.Instrument
	if p.MarkPrice == nil {
		return model.Greeks{}, nil, fmt.Errorf("%w: option %s", model.ErrNoMarkPrice, inst.Symbol())
	}
	spot, err := md.Spot(inst.Base, inst.Quote)
	if err != nil {
		return model.Greeks{}, nil, err
	}
	quoteRate, err := md.Rate(inst.Quote)
	if err != nil {
		return model.Greeks{}, nil, err
	}

	// coin-margined premiums are quoted in the base coin
	premium := *p.MarkPrice
	if inst.Settle == inst.Base {
		premium = premium.Mul(spot)
	}

	in := BSInput{
		S:    spot.InexactFloat64(),
		K:    inst.Strike.InexactFloat64(),
		T:    DaysToExpiry(asOf, inst.Expiry).InexactFloat64() / 365,
		R:    e.RiskFreeRate,
		Call: inst.OptionKind == model.OptionCall,
	}
	sigma, _ := ImpliedVol(premium.InexactFloat64(), in)
	in.Sigma = sigma
	bs := CalculateBSGreeks(in)

	scale := p.Side.Sign().Mul(p.TokenAmount).Mul(quoteRate)
	s := in.S
	g := model.Greeks{
		Delta: decimal.NewFromFloat(bs.Delta * s * 0.01).Mul(scale),
		Gamma: decimal.NewFromFloat(bs.Gamma * s * s * 1e-4).Mul(scale),
		Vega:  decimal.NewFromFloat(bs.Vega / 100).Mul(scale),
		Theta: decimal.NewFromFloat(bs.Theta / 365).Mul(scale),
		Rho:   decimal.NewFromFloat(bs.Rho / 100).Mul(scale),
	}
	return g, &sigma, nil
}
