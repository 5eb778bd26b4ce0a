package service

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"mdrisk/internal/domain/model"
)

// gridScale 精度网格的公共小数位数
const gridScale = 16

// LCMGrid 两个精度网格的最小公倍数，按 10^16 放大后在整数上计算
func LCMGrid(a, b decimal.Decimal) (decimal.Decimal, error) {
	if !a.IsPositive() || !b.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: non-positive precision %s / %s", model.ErrPrecisionUnderflow, a, b)
	}
	ai, err := scaled(a)
	if err != nil {
		return decimal.Zero, err
	}
	bi, err := scaled(b)
	if err != nil {
		return decimal.Zero, err
	}
	g := new(big.Int).GCD(nil, nil, ai, bi)
	l := new(big.Int).Mul(ai, bi)
	l.Quo(l, g)
	return decimal.NewFromBigInt(l, -gridScale), nil
}

func scaled(d decimal.Decimal) (*big.Int, error) {
	s := d.Shift(gridScale)
	if !s.Equal(s.Truncate(0)) {
		return nil, fmt.Errorf("precision %s finer than 1e-%d", d, gridScale)
	}
	return s.BigInt(), nil
}

// QuantizeDown 向下取整到 grid 的整数倍
func QuantizeDown(v, grid decimal.Decimal) decimal.Decimal {
	if !grid.IsPositive() {
		return v
	}
	return v.Div(grid).Floor().Mul(grid)
}

// OpenGrid 开仓数量（以币计）必须同时落在杠杆 lotSz 和永续 lotSz*ctVal 上
func OpenGrid(margin, perp model.LegSpec) (decimal.Decimal, error) {
	return LCMGrid(margin.LotSize, perp.LotSize.Mul(perp.CtVal))
}

// OpenSize 按最大名义价值求开仓数量（币），取两条腿中较小者并向下量化。
// 量化后低于任一腿最小下单量时返回 ErrPrecisionUnderflow。
func OpenSize(maxNotional, marginPx, perpPx decimal.Decimal, margin, perp model.LegSpec) (decimal.Decimal, error) {
	if !marginPx.IsPositive() || !perpPx.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: no price", model.ErrOrderBookShallow)
	}
	grid, err := OpenGrid(margin, perp)
	if err != nil {
		return decimal.Zero, err
	}
	base := decimal.Min(maxNotional.Div(marginPx), maxNotional.Div(perpPx))
	size := QuantizeDown(base, grid)
	if size.LessThan(margin.MinSize) || Contracts(size, perp).LessThan(perp.MinSize) || size.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: notional %s grid %s", model.ErrPrecisionUnderflow, maxNotional, grid)
	}
	return size, nil
}

// Contracts 币数量换算为永续张数
func Contracts(base decimal.Decimal, perp model.LegSpec) decimal.Decimal {
	if !perp.CtVal.IsPositive() {
		return base
	}
	return base.Div(perp.CtVal)
}

// CheckDepth 数量不能超过两边盘口一档的量（永续盘口以张计）
func CheckDepth(size decimal.Decimal, marginTop, perpTop model.Level, perp model.LegSpec) error {
	if size.GreaterThan(marginTop.Size) {
		return fmt.Errorf("%w: margin top %s < %s", model.ErrOrderBookShallow, marginTop.Size, size)
	}
	if c := Contracts(size, perp); c.GreaterThan(perpTop.Size) {
		return fmt.Errorf("%w: perp top %s < %s contracts", model.ErrOrderBookShallow, perpTop.Size, c)
	}
	return nil
}

// CloseSizes 平仓数量：杠杆余额与永续张数各自截断到自己的 lotSz
func CloseSizes(marginBalance, perpContracts decimal.Decimal, margin, perp model.LegSpec) (base, contracts decimal.Decimal, err error) {
	base = QuantizeDown(marginBalance.Abs(), margin.LotSize)
	contracts = QuantizeDown(perpContracts.Abs(), perp.LotSize)
	if base.IsZero() || base.LessThan(margin.MinSize) || contracts.IsZero() || contracts.LessThan(perp.MinSize) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: balance %s contracts %s", model.ErrPrecisionUnderflow, marginBalance, perpContracts)
	}
	return base, contracts, nil
}
