package backtest

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	klineInterval = "1d"
	klineLimit    = 1000
)

// KlineSource pulls daily closes of spot pairs from Binance.
type KlineSource struct {
	client *binance.Client
}

// NewKlineSource builds an unauthenticated client; klines are public.
func NewKlineSource(baseURL string) *KlineSource {
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = baseURL
	}
	return &KlineSource{client: client}
}

// Closes returns the daily closes of symbol between start and end, paging
// through the exchange limit.
func (s *KlineSource) Closes(ctx context.Context, symbol string, start, end time.Time) (Series, error) {
	var out Series
	from := start.UnixMilli()
	until := end.UnixMilli()
	for from <= until {
		klines, err := s.client.NewKlinesService().
			Symbol(symbol).
			Interval(klineInterval).
			StartTime(from).
			EndTime(until).
			Limit(klineLimit).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch klines from Binance for %s", symbol)
		}
		for i, k := range klines {
			price, err := decimal.NewFromString(k.Close)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to parse close price of %s at index %d", symbol, i)
			}
			out = append(out, Point{Date: dayOf(time.UnixMilli(k.OpenTime)), Price: price.InexactFloat64()})
		}
		if len(klines) < klineLimit {
			break
		}
		from = klines[len(klines)-1].OpenTime + 1
	}
	return out.normalize(), nil
}
