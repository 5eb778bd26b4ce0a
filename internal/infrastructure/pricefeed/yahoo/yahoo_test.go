package yahoo

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

func TestFetchPrices(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"chart":{"result":[{"timestamp":[1704067200,1704153600,1704240000],
			"indicators":{"adjclose":[{"adjclose":[141.01,null,142.55]}]}}],"error":null}}`))
	}))
	defer srv.Close()

	f := New(feedhttp.Options{BaseURL: srv.URL})
	queries := []time.Time{
		time.Unix(1704240000+3600, 0).UTC(),
		time.Unix(1704153600+60, 0).UTC(), // null close -> 上一根
		time.Unix(1704000000, 0).UTC(),
	}
	res, err := f.FetchPrices(context.Background(), "USD_JPY", model.Interval1d, queries)
	require.NoError(t, err)
	assert.Equal(t, "/v8/finance/chart/USDJPY=X", gotPath)
	require.Len(t, res, 3)

	assert.Equal(t, "142.55", res[0].MatchedPrice.String())
	assert.Equal(t, int64(1704067200), res[1].MatchedTime.Unix())
	assert.Equal(t, "141.01", res[1].MatchedPrice.String())
	assert.False(t, res[2].Matched())
}

func TestFetchPricesUsesAdjustedClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{"timestamp":[1704067200,1704153600],
			"indicators":{"quote":[{"close":[140,141]}],"adjclose":[{"adjclose":[150.5,151.5]}]}}],"error":null}}`))
	}))
	defer srv.Close()

	f := New(feedhttp.Options{BaseURL: srv.URL})
	res, err := f.FetchPrices(context.Background(), "USD_JPY", model.Interval1d, []time.Time{time.Unix(1704153600, 0).UTC()})
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.True(t, res[0].Matched())
	assert.Equal(t, "151.5", res[0].MatchedPrice.String())
}

func TestFetchPricesQuoteOnlyMatchesNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{"timestamp":[1704067200],
			"indicators":{"quote":[{"close":[140]}]}}],"error":null}}`))
	}))
	defer srv.Close()

	f := New(feedhttp.Options{BaseURL: srv.URL})
	res, err := f.FetchPrices(context.Background(), "USD_JPY", model.Interval1d, []time.Time{time.Unix(1704067200, 0).UTC()})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.False(t, res[0].Matched())
}

func TestFetchPricesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	f := New(feedhttp.Options{BaseURL: srv.URL})
	q := []time.Time{time.Now()}

	_, err := f.FetchPrices(context.Background(), "USD_JPY", model.Interval1d, q)
	assert.ErrorIs(t, err, model.ErrFeedTransport)

	_, err = f.FetchPrices(context.Background(), "USD_JPY", "1h", q)
	assert.ErrorIs(t, err, model.ErrUnsupportedInterval)

	_, err = Ticker("USD")
	assert.ErrorIs(t, err, model.ErrInvalidSymbol)
}
