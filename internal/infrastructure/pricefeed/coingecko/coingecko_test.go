package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdrisk/internal/domain/model"
	"mdrisk/internal/infrastructure/pricefeed/feedhttp"
)

func TestFetchPricesMillis(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"stats":[[1704067200000,42000.5],[1704153600000,43000.25]]}`))
	}))
	defer srv.Close()

	f := New(feedhttp.Options{BaseURL: srv.URL}, map[string]string{"btc": "bitcoin"})
	queries := []time.Time{
		time.UnixMilli(1704153600000).UTC(),
		time.UnixMilli(1704067200000 + 1).UTC(),
		time.UnixMilli(1704067200000 - 1).UTC(),
	}
	res, err := f.FetchPrices(context.Background(), "BTC_USD", model.Interval1d, queries)
	require.NoError(t, err)
	assert.Equal(t, "/price_charts/bitcoin/usd/max.json", gotPath)
	require.Len(t, res, 3)

	assert.Equal(t, "43000.25", res[0].MatchedPrice.String())
	assert.Equal(t, "42000.5", res[1].MatchedPrice.String())
	assert.Equal(t, int64(1704067200000), res[1].MatchedTime.UnixMilli())
	assert.False(t, res[2].Matched())
}

func TestFetchPricesTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := New(feedhttp.Options{BaseURL: srv.URL}, nil)
	_, err := f.FetchPrices(context.Background(), "USD_BTC", model.Interval1d, []time.Time{time.Now()})
	assert.ErrorIs(t, err, model.ErrFeedTransport)

	_, err = f.FetchPrices(context.Background(), "USD", model.Interval1d, []time.Time{time.Now()})
	assert.ErrorIs(t, err, model.ErrInvalidSymbol)
}
