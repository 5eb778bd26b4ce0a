package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"mdrisk/internal/domain/model"
)

// ArbContext 杠杆/永续双盘口状态
//
// UNINIT -> ONE_BOOK -> BOTH_BOOKS -> SPREAD_HISTORY
//
// 盘口推送由 watcher 写入，下单协程读取快照。每次写入后通过 Updated() 通知。
type ArbContext struct {
	mode       model.ArbMode
	side       model.ArbSide
	marginInst string
	perpInst   string

	mu         sync.RWMutex
	marginBids []model.Level
	marginAsks []model.Level
	perpBids   []model.Level
	perpAsks   []model.Level
	spread     *decimal.Decimal
	lastSpread *decimal.Decimal
	converging *bool
	updatedAt  time.Time

	notify chan struct{}
}

func NewArbContext(mode model.ArbMode, side model.ArbSide, marginInst, perpInst string) *ArbContext {
	return &ArbContext{
		mode:       mode,
		side:       side,
		marginInst: marginInst,
		perpInst:   perpInst,
		notify:     make(chan struct{}, 1),
	}
}

func (c *ArbContext) Mode() model.ArbMode      { return c.mode }
func (c *ArbContext) Side() model.ArbSide      { return c.side }
func (c *ArbContext) MarginInstID() string     { return c.marginInst }
func (c *ArbContext) PerpInstID() string       { return c.perpInst }
func (c *ArbContext) Updated() <-chan struct{} { return c.notify }

// Apply 写入一条盘口更新。两边盘口都就绪时重新计算价差并返回 tick。
func (c *ArbContext) Apply(u model.BookUpdate) (model.SpreadTick, bool) {
	c.mu.Lock()
	switch u.InstID {
	case c.marginInst:
		c.marginBids, c.marginAsks = u.Bids, u.Asks
	case c.perpInst:
		c.perpBids, c.perpAsks = u.Bids, u.Asks
	default:
		c.mu.Unlock()
		return model.SpreadTick{}, false
	}
	c.updatedAt = u.Ts

	tick, ok := c.recompute()
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
	return tick, ok
}

func (c *ArbContext) recompute() (model.SpreadTick, bool) {
	if !c.booksReady() {
		return model.SpreadTick{}, false
	}
	mb, ma := c.marginBids[0].Price, c.marginAsks[0].Price
	pb, pa := c.perpBids[0].Price, c.perpAsks[0].Price

	spread := CrossMarketSpread(c.mode, c.side, mb, ma, pb, pa)
	if c.spread != nil {
		prev := *c.spread
		c.lastSpread = &prev
		conv := spread.LessThan(prev)
		c.converging = &conv
	}
	c.spread = &spread

	return model.SpreadTick{
		Time:       c.updatedAt,
		Mode:       c.mode,
		Side:       c.side,
		MarginBid:  mb,
		MarginAsk:  ma,
		PerpBid:    pb,
		PerpAsk:    pa,
		Spread:     spread,
		LastSpread: c.lastSpread,
		Converging: c.converging,
	}, true
}

func (c *ArbContext) booksReady() bool {
	return len(c.marginBids) > 0 && len(c.marginAsks) > 0 && len(c.perpBids) > 0 && len(c.perpAsks) > 0
}

// CrossMarketSpread 按开/平仓和方向选择公式，结果非负
func CrossMarketSpread(mode model.ArbMode, side model.ArbSide, marginBid, marginAsk, perpBid, perpAsk decimal.Decimal) decimal.Decimal {
	marginAskVsPerpBid := mode == model.ArbOpen && side == model.LongMarginShortPerp ||
		mode == model.ArbClose && side == model.ShortMarginLongPerp
	if marginAskVsPerpBid {
		if perpBid.IsZero() {
			return decimal.Zero
		}
		return marginAsk.Sub(perpBid).Abs().Div(perpBid)
	}
	if marginBid.IsZero() {
		return decimal.Zero
	}
	return perpAsk.Sub(marginBid).Abs().Div(marginBid)
}

// ArbSnapshot 下单协程读取的一致快照
type ArbSnapshot struct {
	MarginBids []model.Level
	MarginAsks []model.Level
	PerpBids   []model.Level
	PerpAsks   []model.Level
	Spread     decimal.Decimal
	Converging *bool
}

// Ready 价差已定义
func (s ArbSnapshot) Ready() bool {
	return len(s.MarginBids) > 0 && len(s.MarginAsks) > 0 && len(s.PerpBids) > 0 && len(s.PerpAsks) > 0
}

func (c *ArbContext) Snapshot() ArbSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := ArbSnapshot{
		MarginBids: append([]model.Level(nil), c.marginBids...),
		MarginAsks: append([]model.Level(nil), c.marginAsks...),
		PerpBids:   append([]model.Level(nil), c.perpBids...),
		PerpAsks:   append([]model.Level(nil), c.perpAsks...),
	}
	if c.spread != nil && c.booksReady() {
		s.Spread = *c.spread
	}
	if c.converging != nil {
		v := *c.converging
		s.Converging = &v
	}
	return s
}

// Spread 当前价差；未就绪时 ok=false
func (c *ArbContext) Spread() (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.spread == nil {
		return decimal.Zero, false
	}
	return *c.spread, true
}

// IsConverging nil until two spreads were observed.
func (c *ArbContext) IsConverging() *bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.converging == nil {
		return nil
	}
	v := *c.converging
	return &v
}

// WaitReady 阻塞直到价差可用
func (c *ArbContext) WaitReady(ctx context.Context) error {
	for {
		if _, ok := c.Spread(); ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.notify:
		}
	}
}
