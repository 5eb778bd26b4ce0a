package arbitrage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"mdrisk/internal/domain/model"
	dsvc "mdrisk/internal/domain/service"
)

// errStreamClosed 盘口流在下单前结束
var errStreamClosed = errors.New("order book stream closed")

type Service struct {
	deps ServiceDeps
}

func NewService(deps ServiceDeps) *Service {
	if deps.Publisher == nil {
		deps.Publisher = noopPublisher{}
	}
	if deps.Sink == nil {
		deps.Sink = noopSink{}
	}
	if deps.RetryInterval <= 0 {
		deps.RetryInterval = defaultRetryInterval
	}
	if deps.Venue == "" {
		deps.Venue = "okx"
	}
	return &Service{deps: deps}
}

type outcome struct {
	from string
	res  model.ArbResult
	err  error
}

// Run 启动 watcher 与下单协程，任一结束即取消另一个
func (s *Service) Run(ctx context.Context, p Params) (model.ArbResult, error) {
	lg, err := s.loadLegs(ctx, p)
	if err != nil {
		return model.ArbResult{}, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	books, err := s.deps.Books.SubscribeBooks(runCtx, []string{p.MarginInstID, p.PerpInstID})
	if err != nil {
		return model.ArbResult{}, fmt.Errorf("subscribe books: %w", err)
	}

	ac := dsvc.NewArbContext(p.Mode, p.Side, p.MarginInstID, p.PerpInstID)
	done := make(chan outcome, 2)

	go func() {
		err := s.watch(runCtx, ac, books)
		done <- outcome{from: "watcher", err: err}
	}()
	go func() {
		var res model.ArbResult
		var err error
		if p.Mode == model.ArbClose {
			res, err = s.closeLoop(runCtx, ac, lg, p)
		} else {
			res, err = s.openLoop(runCtx, ac, lg, p)
		}
		done <- outcome{from: "orders", res: res, err: err}
	}()

	first := <-done
	cancel()
	<-done
	_ = s.deps.Sink.NewLine()

	if first.from == "watcher" {
		if first.err == nil || errors.Is(first.err, context.Canceled) && ctx.Err() == nil {
			first.err = errStreamClosed
		}
		log.Error().Err(first.err).Str("mode", string(p.Mode)).Msg("watcher stopped before orders were placed")
		return model.ArbResult{}, first.err
	}
	if first.err != nil {
		log.Error().Err(first.err).Str("mode", string(p.Mode)).Str("side", string(p.Side)).Msg("order task failed")
		// 已成交的腿保留在结果里
		return first.res, first.err
	}
	log.Info().Str("mode", string(p.Mode)).Str("side", string(p.Side)).
		Str("size", first.res.Size.String()).Str("spread", first.res.Spread.String()).
		Str("margin_ord", first.res.Margin.OrderID).Str("perp_ord", first.res.Perp.OrderID).
		Msg("arbitrage filled")
	return first.res, nil
}

func (s *Service) loadLegs(ctx context.Context, p Params) (legs, error) {
	margin, err := s.deps.Instruments.LegSpec(ctx, model.MarketMargin, p.MarginInstID)
	if err != nil {
		return legs{}, fmt.Errorf("instrument %s: %w", p.MarginInstID, err)
	}
	perp, err := s.deps.Instruments.LegSpec(ctx, model.MarketSwap, p.PerpInstID)
	if err != nil {
		return legs{}, fmt.Errorf("instrument %s: %w", p.PerpInstID, err)
	}
	if margin.Quote == "" {
		margin.Quote = p.Quote
	}
	return legs{margin: margin, perp: perp}, nil
}

// watch 每条盘口推送更新一次上下文并输出价差
func (s *Service) watch(ctx context.Context, ac *dsvc.ArbContext, books <-chan model.BookUpdate) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-books:
			if !ok {
				return nil
			}
			tick, ready := ac.Apply(u)
			if !ready {
				continue
			}
			log.Info().Str("inst", u.InstID).Str("spread", tick.Spread.String()).Str("arrow", tick.Arrow()).Msg("spread")
			_ = s.deps.Sink.WriteLive(RenderTick(tick, true))
			if err := s.deps.Publisher.PublishSpread(ctx, tick); err != nil {
				log.Warn().Err(err).Msg("publish spread")
			}
		}
	}
}

// retryable 两个可重试的闸门
func retryable(err error) bool {
	return errors.Is(err, model.ErrOrderBookShallow) || errors.Is(err, model.ErrConvergenceGate)
}

// gateLoop 在一个 tick 内检查所有条件，不满足时等待后重试
func (s *Service) gateLoop(ctx context.Context, ac *dsvc.ArbContext, try func(dsvc.ArbSnapshot) (model.ArbResult, error)) (model.ArbResult, error) {
	if err := ac.WaitReady(ctx); err != nil {
		return model.ArbResult{}, err
	}
	for {
		snap := ac.Snapshot()
		res, err := try(snap)
		if err == nil {
			return res, nil
		}
		if !retryable(err) {
			return res, err
		}
		log.Debug().Err(err).Msg("gate not satisfied")

		select {
		case <-ctx.Done():
			return model.ArbResult{}, ctx.Err()
		case <-time.After(s.deps.RetryInterval):
		}
	}
}
