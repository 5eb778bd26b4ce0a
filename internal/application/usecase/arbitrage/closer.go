package arbitrage

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"mdrisk/internal/domain/model"
	dsvc "mdrisk/internal/domain/service"
)

// closeLoop 按当前持仓平掉两条腿，价差发散时两条腿并发下单
func (s *Service) closeLoop(ctx context.Context, ac *dsvc.ArbContext, lg legs, p Params) (model.ArbResult, error) {
	balance, err := s.deps.Account.Balance(ctx, p.Base)
	if err != nil {
		return model.ArbResult{}, fmt.Errorf("balance %s: %w", p.Base, err)
	}
	held, err := s.deps.Account.Contracts(ctx, p.PerpInstID)
	if err != nil {
		return model.ArbResult{}, fmt.Errorf("contracts %s: %w", p.PerpInstID, err)
	}
	base, contracts, err := dsvc.CloseSizes(balance, held, lg.margin, lg.perp)
	if err != nil {
		return model.ArbResult{}, err
	}
	marginSide, perpSide := model.LegSides(model.ArbClose, p.Side)
	log.Info().Str("balance", balance.String()).Str("contracts", held.String()).
		Str("margin_side", string(marginSide)).Str("perp_side", string(perpSide)).Msg("closing holdings")

	return s.gateLoop(ctx, ac, func(snap dsvc.ArbSnapshot) (model.ArbResult, error) {
		if !snap.Ready() {
			return model.ArbResult{}, model.ErrOrderBookShallow
		}
		marginTop := topOf(snap.MarginBids, snap.MarginAsks, marginSide)
		perpTop := topOf(snap.PerpBids, snap.PerpAsks, perpSide)

		if base.GreaterThan(marginTop.Size) {
			return model.ArbResult{}, fmt.Errorf("%w: margin top %s < %s", model.ErrOrderBookShallow, marginTop.Size, base)
		}
		if contracts.GreaterThan(perpTop.Size) {
			return model.ArbResult{}, fmt.Errorf("%w: perp top %s < %s", model.ErrOrderBookShallow, perpTop.Size, contracts)
		}
		if snap.Converging == nil || *snap.Converging {
			return model.ArbResult{}, fmt.Errorf("%w: close needs a diverging spread", model.ErrConvergenceGate)
		}

		marginReq := dsvc.MarginOrder(s.deps.Venue, lg.margin, marginSide, base, marginTop.Price)
		marginReq.ClientOrderID = s.deps.IDs.NewID()
		perpReq := dsvc.PerpOrder(s.deps.Venue, lg.perp, perpSide, contracts)
		perpReq.ClientOrderID = s.deps.IDs.NewID()

		// 两条腿共用 ctx，一条被拒不能取消另一条正在进行的下单
		var (
			marginRes, perpRes model.OrderResult
			marginErr, perpErr error
			g                  errgroup.Group
		)
		g.Go(func() error {
			r, err := s.deps.Orders.PlaceOrder(ctx, marginReq)
			if err != nil {
				marginErr = fmt.Errorf("%w: margin %s %s: %v", model.ErrOrderPlacement, marginSide, lg.margin.InstID, err)
				return marginErr
			}
			marginRes = r
			return nil
		})
		g.Go(func() error {
			r, err := s.deps.Orders.PlaceOrder(ctx, perpReq)
			if err != nil {
				perpErr = fmt.Errorf("%w: perp %s %s: %v", model.ErrOrderPlacement, perpSide, lg.perp.InstID, err)
				return perpErr
			}
			perpRes = r
			return nil
		})
		_ = g.Wait()

		res := model.ArbResult{
			Mode:   model.ArbClose,
			Side:   p.Side,
			Size:   base,
			Margin: marginRes,
			Perp:   perpRes,
			Spread: snap.Spread,
		}
		if err := errors.Join(marginErr, perpErr); err != nil {
			log.Error().Err(err).Str("margin_ord", marginRes.OrderID).Str("perp_ord", perpRes.OrderID).Msg("close leg failed")
			return res, err
		}
		return res, nil
	})
}
