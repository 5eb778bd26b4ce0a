package arbitrage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdrisk/internal/domain/model"
)

const (
	marginInst = "BTC-USDT"
	perpInst   = "BTC-USDT-SWAP"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func book(inst, bid, ask string) model.BookUpdate {
	return model.BookUpdate{
		InstID: inst,
		Bids:   []model.Level{{Price: dec(bid), Size: dec("1000")}},
		Asks:   []model.Level{{Price: dec(ask), Size: dec("1000")}},
		Ts:     time.Now(),
	}
}

type scriptedBooks struct {
	updates []model.BookUpdate
	close   bool
}

func (b *scriptedBooks) SubscribeBooks(ctx context.Context, instIDs []string) (<-chan model.BookUpdate, error) {
	ch := make(chan model.BookUpdate, len(b.updates))
	for _, u := range b.updates {
		ch <- u
	}
	if b.close {
		close(ch)
	}
	return ch, nil
}

type recordingOrders struct {
	mu     sync.Mutex
	placed []model.OrderRequest
	failOn string
}

func (o *recordingOrders) PlaceOrder(_ context.Context, req model.OrderRequest) (model.OrderResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if req.InstID == o.failOn {
		return model.OrderResult{}, errors.New("insufficient margin")
	}
	o.placed = append(o.placed, req)
	return model.OrderResult{OrderID: fmt.Sprintf("ord-%d", len(o.placed)), ClientOrderID: req.ClientOrderID, InstID: req.InstID}, nil
}

type fixedInstruments struct{}

func (fixedInstruments) LegSpec(_ context.Context, market model.Market, instID string) (model.LegSpec, error) {
	if market == model.MarketMargin {
		return model.LegSpec{InstID: instID, LotSize: dec("0.0001"), MinSize: dec("0.0001"), Quote: "USDT", Category: market}, nil
	}
	return model.LegSpec{InstID: instID, LotSize: dec("1"), MinSize: dec("1"), CtVal: dec("0.01"), Category: market}, nil
}

type fixedAccount struct {
	balance   decimal.Decimal
	contracts decimal.Decimal
}

func (a fixedAccount) Balance(context.Context, string) (decimal.Decimal, error) {
	return a.balance, nil
}
func (a fixedAccount) Contracts(context.Context, string) (decimal.Decimal, error) {
	return a.contracts, nil
}
func (a fixedAccount) Positions(context.Context) ([]model.Position, error) { return nil, nil }

type counterIDs struct {
	mu sync.Mutex
	n  int
}

func (c *counterIDs) NewID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return fmt.Sprintf("cl%d", c.n)
}

type capturePublisher struct {
	mu    sync.Mutex
	ticks []model.SpreadTick
}

func (p *capturePublisher) PublishSpread(_ context.Context, t model.SpreadTick) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ticks = append(p.ticks, t)
	return nil
}

func newTestService(books *scriptedBooks, orders *recordingOrders, account fixedAccount, pub *capturePublisher) *Service {
	deps := ServiceDeps{
		Books:         books,
		Orders:        orders,
		Instruments:   fixedInstruments{},
		Account:       account,
		IDs:           &counterIDs{},
		RetryInterval: time.Millisecond,
	}
	if pub != nil {
		deps.Publisher = pub
	}
	return NewService(deps)
}

func openParams(notional string) Params {
	return Params{
		Mode:         model.ArbOpen,
		Side:         model.LongMarginShortPerp,
		Base:         "BTC",
		Quote:        "USDT",
		MarginInstID: marginInst,
		PerpInstID:   perpInst,
		MaxNotional:  dec(notional),
	}
}

func TestOpenFiresMarginThenPerpOnConvergence(t *testing.T) {
	books := &scriptedBooks{updates: []model.BookUpdate{
		book(marginInst, "100.00", "100.10"),
		book(perpInst, "100.00", "100.20"),
		book(marginInst, "100.00", "100.05"),
	}}
	orders := &recordingOrders{}
	pub := &capturePublisher{}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := newTestService(books, orders, fixedAccount{}, pub).Run(ctx, openParams("100"))
	require.NoError(t, err)

	require.Len(t, orders.placed, 2)
	margin, perp := orders.placed[0], orders.placed[1]
	assert.Equal(t, marginInst, margin.InstID)
	assert.Equal(t, model.Buy, margin.Side)
	assert.Equal(t, model.SizeQuote, margin.Unit)
	// 0.99 BTC * 100.05 ask, in quote currency
	assert.True(t, margin.Size.Equal(dec("99.0495")), "margin size=%s", margin.Size)

	assert.Equal(t, perpInst, perp.InstID)
	assert.Equal(t, model.Sell, perp.Side)
	assert.True(t, perp.Size.Equal(dec("99")), "contracts=%s", perp.Size)
	assert.NotEqual(t, margin.ClientOrderID, perp.ClientOrderID)

	assert.True(t, res.Size.Equal(dec("0.99")))
	assert.Equal(t, "ord-1", res.Margin.OrderID)
	assert.Equal(t, "ord-2", res.Perp.OrderID)
	assert.True(t, res.Spread.Equal(dec("0.0005")), "spread=%s", res.Spread)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.NotEmpty(t, pub.ticks)
}

func TestOpenStreamEndsBeforeConvergence(t *testing.T) {
	books := &scriptedBooks{close: true, updates: []model.BookUpdate{
		book(marginInst, "100.00", "100.05"),
		book(perpInst, "100.00", "100.20"),
		book(marginInst, "100.00", "100.10"),
	}}
	orders := &recordingOrders{}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := newTestService(books, orders, fixedAccount{}, &capturePublisher{}).Run(ctx, openParams("100"))
	assert.ErrorIs(t, err, errStreamClosed)
	assert.Empty(t, orders.placed)
}

func TestOpenPrecisionUnderflowIsFatal(t *testing.T) {
	books := &scriptedBooks{updates: []model.BookUpdate{
		book(marginInst, "100.00", "100.10"),
		book(perpInst, "100.00", "100.20"),
	}}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := newTestService(books, &recordingOrders{}, fixedAccount{}, nil).Run(ctx, openParams("0.5"))
	assert.ErrorIs(t, err, model.ErrPrecisionUnderflow)
}

func TestOpenPerpFailureKeepsMarginLeg(t *testing.T) {
	books := &scriptedBooks{updates: []model.BookUpdate{
		book(marginInst, "100.00", "100.10"),
		book(perpInst, "100.00", "100.20"),
		book(marginInst, "100.00", "100.05"),
	}}
	orders := &recordingOrders{failOn: perpInst}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := newTestService(books, orders, fixedAccount{}, nil).Run(ctx, openParams("100"))
	assert.ErrorIs(t, err, model.ErrOrderPlacement)
	require.Len(t, orders.placed, 1)
	assert.Equal(t, marginInst, orders.placed[0].InstID)
	assert.Equal(t, "ord-1", res.Margin.OrderID)
}

func TestCloseFiresBothLegsOnDivergence(t *testing.T) {
	books := &scriptedBooks{updates: []model.BookUpdate{
		book(marginInst, "100.00", "100.10"),
		book(perpInst, "99.90", "100.01"),
		book(perpInst, "99.90", "100.50"),
	}}
	orders := &recordingOrders{}
	account := fixedAccount{balance: dec("0.50004"), contracts: dec("-50")}

	p := openParams("0")
	p.Mode = model.ArbClose
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := newTestService(books, orders, account, nil).Run(ctx, p)
	require.NoError(t, err)

	require.Len(t, orders.placed, 2)
	byInst := map[string]model.OrderRequest{}
	for _, o := range orders.placed {
		byInst[o.InstID] = o
	}
	assert.Equal(t, model.Sell, byInst[marginInst].Side)
	assert.Equal(t, model.SizeBase, byInst[marginInst].Unit)
	assert.True(t, byInst[marginInst].Size.Equal(dec("0.5")))
	assert.Equal(t, model.Buy, byInst[perpInst].Side)
	assert.True(t, byInst[perpInst].Size.Equal(dec("50")))
	assert.Equal(t, model.ArbClose, res.Mode)
}

// slowPerpOrders 现货腿立即被拒，合约腿 50ms 后成交且遵守 ctx
type slowPerpOrders struct {
	mu      sync.Mutex
	perpErr error
}

func (o *slowPerpOrders) PlaceOrder(ctx context.Context, req model.OrderRequest) (model.OrderResult, error) {
	if req.InstID == marginInst {
		return model.OrderResult{}, errors.New("margin rejected")
	}
	select {
	case <-ctx.Done():
		o.mu.Lock()
		o.perpErr = ctx.Err()
		o.mu.Unlock()
		return model.OrderResult{}, ctx.Err()
	case <-time.After(50 * time.Millisecond):
	}
	return model.OrderResult{OrderID: "perp-1", ClientOrderID: req.ClientOrderID, InstID: req.InstID}, nil
}

func TestCloseMarginRejectionDoesNotCancelPerpLeg(t *testing.T) {
	books := &scriptedBooks{updates: []model.BookUpdate{
		book(marginInst, "100.00", "100.10"),
		book(perpInst, "99.90", "100.01"),
		book(perpInst, "99.90", "100.50"),
	}}
	orders := &slowPerpOrders{}
	account := fixedAccount{balance: dec("0.50004"), contracts: dec("-50")}

	svc := newTestService(books, &recordingOrders{}, account, nil)
	svc.deps.Orders = orders

	p := openParams("0")
	p.Mode = model.ArbClose
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := svc.Run(ctx, p)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrOrderPlacement)
	assert.Contains(t, err.Error(), "margin rejected")

	orders.mu.Lock()
	defer orders.mu.Unlock()
	assert.NoError(t, orders.perpErr)
	assert.Equal(t, "perp-1", res.Perp.OrderID)
	assert.Empty(t, res.Margin.OrderID)
}

func TestRunCancelled(t *testing.T) {
	books := &scriptedBooks{updates: []model.BookUpdate{book(marginInst, "100", "101")}}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := newTestService(books, &recordingOrders{}, fixedAccount{}, nil).Run(ctx, openParams("100"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRenderTick(t *testing.T) {
	conv := true
	line := RenderTick(model.SpreadTick{
		Mode: model.ArbOpen, Side: model.LongMarginShortPerp,
		MarginBid: dec("100"), MarginAsk: dec("100.05"), PerpBid: dec("100.02"), PerpAsk: dec("100.1"),
		Spread: dec("0.0003"), Converging: &conv,
	}, false)
	assert.Contains(t, line, "▼ 0.0300%")
	assert.Contains(t, line, ansiGreen)
	assert.NotContains(t, line, "\r")
}
