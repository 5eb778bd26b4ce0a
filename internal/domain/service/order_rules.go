package service

import (
	"github.com/shopspring/decimal"

	"mdrisk/internal/domain/model"
)

// sizeRule 市价单数量单位规则
type sizeRule struct {
	venue   string
	market  model.Market
	side    model.OrderSide
	ordType string
	unit    model.SizeUnit
}

// OKX 杠杆市价买单按计价币金额下单，其余按交易币或张数
var sizeRules = []sizeRule{
	{venue: "okx", market: model.MarketMargin, side: model.Buy, ordType: "market", unit: model.SizeQuote},
	{venue: "okx", market: model.MarketMargin, side: model.Sell, ordType: "market", unit: model.SizeBase},
	{venue: "okx", market: model.MarketMargin, side: model.Buy, ordType: "limit", unit: model.SizeBase},
	{venue: "okx", market: model.MarketMargin, side: model.Sell, ordType: "limit", unit: model.SizeBase},
	{venue: "okx", market: model.MarketSwap, side: model.Buy, ordType: "market", unit: model.SizeContract},
	{venue: "okx", market: model.MarketSwap, side: model.Sell, ordType: "market", unit: model.SizeContract},
}

// SizeUnitFor 查表；未登记的组合按交易币计
func SizeUnitFor(venue string, market model.Market, side model.OrderSide, ordType string) model.SizeUnit {
	for _, r := range sizeRules {
		if r.venue == venue && r.market == market && r.side == side && r.ordType == ordType {
			return r.unit
		}
	}
	if market == model.MarketSwap {
		return model.SizeContract
	}
	return model.SizeBase
}

// quoteDecimals 计价币金额保留位数
const quoteDecimals = 8

// MarginOrder 杠杆腿市价单，数量按规则表换算
func MarginOrder(venue string, spec model.LegSpec, side model.OrderSide, base, refPrice decimal.Decimal) model.OrderRequest {
	unit := SizeUnitFor(venue, model.MarketMargin, side, "market")
	size := base
	if unit == model.SizeQuote {
		size = base.Mul(refPrice).Truncate(quoteDecimals)
	}
	return model.OrderRequest{
		InstID: spec.InstID,
		Market: model.MarketMargin,
		Side:   side,
		Size:   size,
		Unit:   unit,
		Ccy:    spec.Quote,
	}
}

// PerpOrder 永续腿市价单（张）
func PerpOrder(venue string, spec model.LegSpec, side model.OrderSide, contracts decimal.Decimal) model.OrderRequest {
	return model.OrderRequest{
		InstID: spec.InstID,
		Market: model.MarketSwap,
		Side:   side,
		Size:   contracts,
		Unit:   SizeUnitFor(venue, model.MarketSwap, side, "market"),
	}
}
