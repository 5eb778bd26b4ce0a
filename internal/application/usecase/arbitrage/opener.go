package arbitrage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"mdrisk/internal/domain/model"
	dsvc "mdrisk/internal/domain/service"
)

// openLoop 等到价差收敛，先下杠杆腿再下永续腿
func (s *Service) openLoop(ctx context.Context, ac *dsvc.ArbContext, lg legs, p Params) (model.ArbResult, error) {
	marginSide, perpSide := model.LegSides(model.ArbOpen, p.Side)

	return s.gateLoop(ctx, ac, func(snap dsvc.ArbSnapshot) (model.ArbResult, error) {
		if !snap.Ready() {
			return model.ArbResult{}, model.ErrOrderBookShallow
		}
		marginTop := topOf(snap.MarginBids, snap.MarginAsks, marginSide)
		perpTop := topOf(snap.PerpBids, snap.PerpAsks, perpSide)

		size, err := dsvc.OpenSize(p.MaxNotional, marginTop.Price, perpTop.Price, lg.margin, lg.perp)
		if err != nil {
			return model.ArbResult{}, err
		}
		if err := dsvc.CheckDepth(size, marginTop, perpTop, lg.perp); err != nil {
			return model.ArbResult{}, err
		}
		if snap.Converging == nil || !*snap.Converging {
			return model.ArbResult{}, fmt.Errorf("%w: open needs a converging spread", model.ErrConvergenceGate)
		}

		log.Info().Str("side", string(p.Side)).Str("size", size.String()).Str("spread", snap.Spread.String()).Msg("opening")

		marginReq := dsvc.MarginOrder(s.deps.Venue, lg.margin, marginSide, size, marginTop.Price)
		marginReq.ClientOrderID = s.deps.IDs.NewID()
		marginRes, err := s.deps.Orders.PlaceOrder(ctx, marginReq)
		if err != nil {
			return model.ArbResult{}, fmt.Errorf("%w: margin %s %s: %v", model.ErrOrderPlacement, marginSide, lg.margin.InstID, err)
		}

		perpReq := dsvc.PerpOrder(s.deps.Venue, lg.perp, perpSide, dsvc.Contracts(size, lg.perp))
		perpReq.ClientOrderID = s.deps.IDs.NewID()
		perpRes, err := s.deps.Orders.PlaceOrder(ctx, perpReq)
		if err != nil {
			log.Error().Str("margin_ord", marginRes.OrderID).Msg("margin leg filled without perp leg")
			partial := model.ArbResult{Mode: model.ArbOpen, Side: p.Side, Size: size, Margin: marginRes, Spread: snap.Spread}
			return partial, fmt.Errorf("%w: perp %s %s: %v", model.ErrOrderPlacement, perpSide, lg.perp.InstID, err)
		}

		return model.ArbResult{
			Mode:   model.ArbOpen,
			Side:   p.Side,
			Size:   size,
			Margin: marginRes,
			Perp:   perpRes,
			Spread: snap.Spread,
		}, nil
	})
}

// topOf 买单吃卖一，卖单吃买一
func topOf(bids, asks []model.Level, side model.OrderSide) model.Level {
	if side == model.Buy {
		return asks[0]
	}
	return bids[0]
}
