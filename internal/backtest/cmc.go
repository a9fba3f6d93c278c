package backtest

import (
	"context"
	"encoding/json"
	"time"

	"jlp-hedge-bot/internal/config"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const quotesPath = "/v2/cryptocurrency/quotes/historical"

type cmcStatus struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

type cmcQuote struct {
	Timestamp time.Time `json:"timestamp"`
	Quote     map[string]struct {
		Close float64 `json:"close"`
		Price float64 `json:"price"`
	} `json:"quote"`
}

type cmcResponse struct {
	Status cmcStatus `json:"status"`
	Data   struct {
		Quotes []cmcQuote `json:"quotes"`
	} `json:"data"`
}

// QuoteSource reads daily USD quotes from CoinMarketCap.
type QuoteSource struct {
	http *resty.Client
}

func NewQuoteSource(cfg config.CMCConfig) *QuoteSource {
	return &QuoteSource{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(cfg.Timeout).
			SetHeader("Accepts", "application/json").
			SetHeader("X-CMC_PRO_API_KEY", cfg.APIKey),
	}
}

// Closes returns the daily USD closes of the token identified by slug.
func (s *QuoteSource) Closes(ctx context.Context, slug string, start, end time.Time) (Series, error) {
	resp, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"slug":       slug,
			"time_start": start.UTC().Format(time.DateOnly),
			"time_end":   end.UTC().Format(time.DateOnly),
			"interval":   "daily",
			"convert":    "USD",
		}).
		Get(quotesPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch quotes from CoinMarketCap for %s", slug)
	}
	var out cmcResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, errors.Wrapf(err, "failed to decode CoinMarketCap quotes for %s (http %d)", slug, resp.StatusCode())
	}
	if out.Status.ErrorCode != 0 || resp.IsError() {
		return nil, errors.Errorf("coinmarketcap %s: http %d code %d: %s", slug, resp.StatusCode(), out.Status.ErrorCode, out.Status.ErrorMessage)
	}
	series := make(Series, 0, len(out.Data.Quotes))
	for _, q := range out.Data.Quotes {
		usd, ok := q.Quote["USD"]
		if !ok {
			continue
		}
		price := usd.Close
		if price == 0 {
			price = usd.Price
		}
		series = append(series, Point{Date: dayOf(q.Timestamp), Price: price})
	}
	return series.normalize(), nil
}
