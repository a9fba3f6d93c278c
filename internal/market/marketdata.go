package market

import (
	"context"
	"fmt"

	"jlp-hedge-bot/internal/asset"
	"jlp-hedge-bot/internal/strategy"

	"go.uber.org/zap"
)

type TickerSource interface {
	Ticker(ctx context.Context, instID string) (float64, error)
}

type TokenPriceSource interface {
	Price(ctx context.Context, mint string) (float64, error)
}

// MarketData fetches a fresh price for every asset on each call.
type MarketData struct {
	tickers     TickerSource
	tokens      TokenPriceSource
	instruments strategy.Instruments
	anchorMint  string
	log         *zap.Logger
}

func New(tickers TickerSource, tokens TokenPriceSource, instruments strategy.Instruments, anchorMint string, log *zap.Logger) *MarketData {
	if log == nil {
		log = zap.NewNop()
	}
	return &MarketData{
		tickers:     tickers,
		tokens:      tokens,
		instruments: instruments,
		anchorMint:  anchorMint,
		log:         log,
	}
}

// Prices returns the last swap price of each hedge asset and the token price
// of the anchor. Any missing or non-positive price fails the whole fetch.
func (m *MarketData) Prices(ctx context.Context) (strategy.Prices, error) {
	prices := make(strategy.Prices, len(asset.All))
	for _, a := range asset.Hedges {
		inst, ok := m.instruments[a]
		if !ok {
			return nil, fmt.Errorf("no instrument configured for %s", a)
		}
		price, err := m.tickers.Ticker(ctx, inst.InstID)
		if err != nil {
			return nil, fmt.Errorf("fetch %s price: %w", a, err)
		}
		prices[a] = price
	}
	price, err := m.tokens.Price(ctx, m.anchorMint)
	if err != nil {
		return nil, fmt.Errorf("fetch %s price: %w", asset.Anchor, err)
	}
	prices[asset.Anchor] = price
	for _, a := range asset.All {
		if _, err := prices.Get(a); err != nil {
			return nil, err
		}
	}
	m.log.Debug("prices fetched",
		zap.Float64("btc", prices[asset.BTC]),
		zap.Float64("eth", prices[asset.ETH]),
		zap.Float64("sol", prices[asset.SOL]),
		zap.Float64("jlp", prices[asset.JLP]),
	)
	return prices, nil
}
