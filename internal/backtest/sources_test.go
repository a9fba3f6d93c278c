package backtest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jlp-hedge-bot/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func kline(open time.Time, closePrice string) string {
	ms := open.UnixMilli()
	return fmt.Sprintf(`[%d,"1","2","0.5","%s","100",%d,"1000",10,"50","500","0"]`, ms, closePrice, ms+86399999)
}

func TestKlineSourceCloses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "SOLUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.Equal(t, "1000", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, "["+kline(day("2024-07-02"), "145.5")+","+kline(day("2024-07-01"), "140.25")+"]")
	}))
	defer srv.Close()

	s, err := NewKlineSource(srv.URL).Closes(context.Background(), "SOLUSDT", day("2024-07-01"), day("2024-07-02"))
	require.NoError(t, err)
	assert.Equal(t, Series{{Date: "2024-07-01", Price: 140.25}, {Date: "2024-07-02", Price: 145.5}}, s)
}

func TestKlineSourceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":-1121,"msg":"Invalid symbol."}`)
	}))
	defer srv.Close()

	_, err := NewKlineSource(srv.URL).Closes(context.Background(), "NOPE", day("2024-07-01"), day("2024-07-02"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOPE")
}

func newQuoteSource(t *testing.T, handler http.HandlerFunc) *QuoteSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewQuoteSource(config.CMCConfig{BaseURL: srv.URL, APIKey: "cmc-key", Timeout: time.Second})
}

func TestQuoteSourceCloses(t *testing.T) {
	q := newQuoteSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, quotesPath, r.URL.Path)
		assert.Equal(t, "cmc-key", r.Header.Get("X-CMC_PRO_API_KEY"))
		query := r.URL.Query()
		assert.Equal(t, config.DefaultJLPSlug, query.Get("slug"))
		assert.Equal(t, "daily", query.Get("interval"))
		assert.Equal(t, "USD", query.Get("convert"))
		assert.Equal(t, "2024-07-01", query.Get("time_start"))
		_, _ = io.WriteString(w, `{
			"status": {"error_code": 0, "error_message": null},
			"data": {"quotes": [
				{"timestamp": "2024-07-01T23:59:59.999Z", "quote": {"USD": {"close": 2.91}}},
				{"timestamp": "2024-07-02T23:59:59.999Z", "quote": {"USD": {"price": 2.95}}}
			]}
		}`)
	})
	s, err := q.Closes(context.Background(), config.DefaultJLPSlug, day("2024-07-01"), day("2024-07-02"))
	require.NoError(t, err)
	assert.Equal(t, Series{{Date: "2024-07-01", Price: 2.91}, {Date: "2024-07-02", Price: 2.95}}, s)
}

func TestQuoteSourceStatusError(t *testing.T) {
	q := newQuoteSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"status": {"error_code": 1002, "error_message": "API key missing."}}`)
	})
	_, err := q.Closes(context.Background(), "jlp", day("2024-07-01"), day("2024-07-02"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "1002"), err.Error())
}

type countingSource struct {
	calls  int
	series Series
}

func (c *countingSource) Closes(context.Context, string, time.Time, time.Time) (Series, error) {
	c.calls++
	return c.series, nil
}

func TestCachedSourceHitsCacheOnSecondCall(t *testing.T) {
	cache, err := OpenCache(filepath.Join(t.TempDir(), "cache", "series.db"))
	require.NoError(t, err)
	defer cache.Close()

	src := &countingSource{series: Series{{Date: "2024-07-01", Price: 1.5}}}
	cached := Cached(src, "binance", cache)
	for i := 0; i < 2; i++ {
		s, err := cached.Closes(context.Background(), "ETHUSDT", day("2024-07-01"), day("2024-07-02"))
		require.NoError(t, err)
		assert.Equal(t, src.series, s)
	}
	assert.Equal(t, 1, src.calls)

	_, err = cached.Closes(context.Background(), "ETHUSDT", day("2024-07-01"), day("2024-07-03"))
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestCachedWithoutCacheIsPassthrough(t *testing.T) {
	src := &countingSource{}
	assert.Same(t, SeriesSource(src), Cached(src, "cmc", nil))
}
