package okx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdrisk/internal/domain/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL, APIKey: "k", APISecret: "s", Passphrase: "p", Simulated: true})
}

func TestPlaceOrderSignsAndSendsMarginCcy(t *testing.T) {
	var got placeOrderRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v5/trade/order", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("OK-ACCESS-KEY"))
		assert.Equal(t, "p", r.Header.Get("OK-ACCESS-PASSPHRASE"))
		assert.Equal(t, "1", r.Header.Get("x-simulated-trading"))

		body, _ := io.ReadAll(r.Body)
		ts := r.Header.Get("OK-ACCESS-TIMESTAMP")
		want := NewCredentials("k", "s", "p").Sign(ts + "POST" + "/api/v5/trade/order" + string(body))
		assert.Equal(t, want, r.Header.Get("OK-ACCESS-SIGN"))

		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"code":"0","msg":"","data":[{"ordId":"42","clOrdId":"c1","sCode":"0"}]}`))
	})

	res, err := c.Orders.PlaceOrder(context.Background(), model.OrderRequest{
		InstID:        "BTC-USDT",
		Market:        model.MarketMargin,
		Side:          model.Buy,
		Size:          decimal.RequireFromString("1000.5"),
		Unit:          model.SizeQuote,
		ClientOrderID: "c1",
		Ccy:           "USDT",
	})
	require.NoError(t, err)
	assert.Equal(t, "42", res.OrderID)
	assert.Equal(t, "cross", got.TdMode)
	assert.Equal(t, "market", got.OrdType)
	assert.Equal(t, "USDT", got.Ccy)
	assert.Equal(t, "1000.5", got.Sz)
}

func TestPlaceOrderRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"1","msg":"All operations failed","data":[{"sCode":"51008","sMsg":"Insufficient balance"}]}`))
	})
	_, err := c.Orders.PlaceOrder(context.Background(), model.OrderRequest{InstID: "BTC-USDT-SWAP", Market: model.MarketSwap, Side: model.Sell, Size: decimal.NewFromInt(1)})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "51008", apiErr.Code)
}

func TestLegSpecCached(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "SWAP", r.URL.Query().Get("instType"))
		assert.Empty(t, r.Header.Get("OK-ACCESS-SIGN"))
		_, _ = w.Write([]byte(`{"code":"0","data":[{"instId":"BTC-USDT-SWAP","instType":"SWAP","settleCcy":"USDT","ctVal":"0.01","ctValCcy":"BTC","lotSz":"1","minSz":"1"}]}`))
	})

	for i := 0; i < 2; i++ {
		spec, err := c.Instruments.LegSpec(context.Background(), model.MarketSwap, "BTC-USDT-SWAP")
		require.NoError(t, err)
		assert.True(t, spec.CtVal.Equal(decimal.RequireFromString("0.01")))
		assert.True(t, spec.LotSize.Equal(decimal.NewFromInt(1)))
	}
	assert.Equal(t, 1, calls)
}

func TestLegSpecNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"0","data":[]}`))
	})
	_, err := c.Instruments.LegSpec(context.Background(), model.MarketMargin, "FOO-USDT")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestAccountBalanceAndContracts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v5/account/balance":
			_, _ = w.Write([]byte(`{"code":"0","data":[{"details":[{"ccy":"BTC","eq":"-0.25"}]}]}`))
		case "/api/v5/account/positions":
			_, _ = w.Write([]byte(`{"code":"0","data":[{"instType":"SWAP","instId":"BTC-USDT-SWAP","posSide":"net","pos":"25"}]}`))
		default:
			http.NotFound(w, r)
		}
	})

	bal, err := c.Account.Balance(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, "-0.25", bal.String())

	n, err := c.Account.Contracts(context.Background(), "BTC-USDT-SWAP")
	require.NoError(t, err)
	assert.Equal(t, "25", n.String())
}

func TestAccountPositions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v5/account/balance":
			_, _ = w.Write([]byte(`{"code":"0","data":[{"details":[{"ccy":"BTC","eq":"0.5"},{"ccy":"ETH","eq":"0"}]}]}`))
		case "/api/v5/account/positions":
			_, _ = w.Write([]byte(`{"code":"0","data":[
				{"instType":"SWAP","instId":"BTC-USDT-SWAP","mgnMode":"cross","posSide":"net","pos":"-30","avgPx":"100","markPx":"101"},
				{"instType":"SWAP","instId":"BTC-USD-SWAP","mgnMode":"cross","posSide":"net","pos":"2","markPx":"50000"}
			]}`))
		case "/api/v5/public/instruments":
			switch r.URL.Query().Get("instId") {
			case "BTC-USDT-SWAP":
				_, _ = w.Write([]byte(`{"code":"0","data":[{"instId":"BTC-USDT-SWAP","ctVal":"0.01","ctValCcy":"BTC","lotSz":"1","minSz":"1"}]}`))
			default:
				_, _ = w.Write([]byte(`{"code":"0","data":[{"instId":"BTC-USD-SWAP","ctVal":"100","ctValCcy":"USD","lotSz":"1","minSz":"1"}]}`))
			}
		}
	})

	positions, err := c.Account.Positions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 3)

	assert.Equal(t, "BTC_USD", positions[0].Instrument.Symbol())
	assert.Equal(t, model.SideLong, positions[0].Side)

	linear := positions[1]
	assert.Equal(t, "BTC_USDT_USDT", linear.Instrument.Symbol())
	assert.Equal(t, model.SideShort, linear.Side)
	assert.Equal(t, "0.3", linear.TokenAmount.String())
	require.NotNil(t, linear.ContractAmount)
	assert.Equal(t, "30", linear.ContractAmount.String())

	inverse := positions[2]
	assert.Equal(t, "BTC_USD_BTC", inverse.Instrument.Symbol())
	assert.Equal(t, "0.004", inverse.TokenAmount.String())
}

func TestAccountPositionsExpiryFromInstrument(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v5/account/balance":
			_, _ = w.Write([]byte(`{"code":"0","data":[{"details":[]}]}`))
		case "/api/v5/account/positions":
			_, _ = w.Write([]byte(`{"code":"0","data":[
				{"instType":"FUTURES","instId":"BTC-USD-240329","mgnMode":"cross","posSide":"net","pos":"1","markPx":"50000"},
				{"instType":"FUTURES","instId":"BTC-USD-240628","mgnMode":"cross","posSide":"net","pos":"1","markPx":"50000"}
			]}`))
		case "/api/v5/public/instruments":
			switch r.URL.Query().Get("instId") {
			case "BTC-USD-240329":
				// 09:00 UTC，与默认的 08:00 不同
				_, _ = w.Write([]byte(`{"code":"0","data":[{"instId":"BTC-USD-240329","ctVal":"100","ctValCcy":"USD","lotSz":"1","minSz":"1","expTime":"1711702800000"}]}`))
			default:
				_, _ = w.Write([]byte(`{"code":"0","data":[{"instId":"BTC-USD-240628","ctVal":"100","ctValCcy":"USD","lotSz":"1","minSz":"1"}]}`))
			}
		}
	})

	positions, err := c.Account.Positions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 2)

	assert.Equal(t, model.KindDatedFuture, positions[0].Instrument.Kind)
	assert.Equal(t, time.Date(2024, 3, 29, 9, 0, 0, 0, time.UTC), positions[0].Instrument.Expiry)
	assert.Equal(t, "BTC_USD_BTC_240329", positions[0].Instrument.Symbol())

	assert.Equal(t, time.Date(2024, 6, 28, 8, 0, 0, 0, time.UTC), positions[1].Instrument.Expiry)
}

func TestBillsArchive(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "1000", q.Get("begin"))
		assert.Equal(t, "2000", q.Get("end"))
		_, _ = w.Write([]byte(`{"code":"0","data":[
			{"billId":"1","ccy":"USDT","balChg":"-0.5","fee":"-0.5","type":"2","subType":"1","instId":"BTC-USDT","ts":"1500"},
			{"billId":"2","ccy":"USDT","balChg":"-0.1","fee":"0","type":"7","subType":"9","ts":"1600"}
		]}`))
	})

	bills, err := c.Bills.BillsArchive(context.Background(), 1000, 2000)
	require.NoError(t, err)
	require.Len(t, bills, 2)
	assert.Equal(t, "0.5", bills[0].Fee.String())
	assert.Equal(t, "buy", bills[0].Side)
	assert.Equal(t, int64(1600), bills[1].Ts)
	assert.Equal(t, "", bills[1].Side)
}

func TestDecodeBook(t *testing.T) {
	upd, ok := decodeBook([]byte(`{"arg":{"channel":"books5","instId":"BTC-USDT"},"data":[{"bids":[["100","2","0","1"]],"asks":[["100.1","3","0","1"]],"ts":"1700000000000"}]}`))
	require.True(t, ok)
	assert.Equal(t, "BTC-USDT", upd.InstID)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), upd.Ts)
	require.Len(t, upd.Asks, 1)
	assert.Equal(t, "100.1", upd.Asks[0].Price.String())

	_, ok = decodeBook([]byte(`{"event":"subscribe","arg":{"channel":"books5","instId":"BTC-USDT"}}`))
	assert.False(t, ok)
}
