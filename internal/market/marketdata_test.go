package market

import (
	"context"
	"errors"
	"testing"

	"jlp-hedge-bot/internal/asset"
	"jlp-hedge-bot/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTickers map[string]float64

func (f fakeTickers) Ticker(_ context.Context, instID string) (float64, error) {
	price, ok := f[instID]
	if !ok {
		return 0, errors.New("unknown instrument")
	}
	return price, nil
}

type fakeToken struct {
	price float64
	err   error
	mint  string
}

func (f *fakeToken) Price(_ context.Context, mint string) (float64, error) {
	f.mint = mint
	return f.price, f.err
}

func instruments() strategy.Instruments {
	return strategy.Instruments{
		asset.BTC: {InstID: "BTC-USDT-SWAP"},
		asset.ETH: {InstID: "ETH-USDT-SWAP"},
		asset.SOL: {InstID: "SOL-USDT-SWAP"},
	}
}

func TestPrices(t *testing.T) {
	tickers := fakeTickers{"BTC-USDT-SWAP": 50000, "ETH-USDT-SWAP": 3000, "SOL-USDT-SWAP": 150}
	token := &fakeToken{price: 4}
	m := New(tickers, token, instruments(), "mint", nil)

	prices, err := m.Prices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, strategy.Prices{asset.BTC: 50000, asset.ETH: 3000, asset.SOL: 150, asset.JLP: 4}, prices)
	assert.Equal(t, "mint", token.mint)
}

func TestPricesTickerFailure(t *testing.T) {
	tickers := fakeTickers{"BTC-USDT-SWAP": 50000, "SOL-USDT-SWAP": 150}
	m := New(tickers, &fakeToken{price: 4}, instruments(), "mint", nil)
	_, err := m.Prices(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ETH")
}

func TestPricesRejectsNonPositive(t *testing.T) {
	tickers := fakeTickers{"BTC-USDT-SWAP": 50000, "ETH-USDT-SWAP": 3000, "SOL-USDT-SWAP": 150}
	m := New(tickers, &fakeToken{price: 0}, instruments(), "mint", nil)
	_, err := m.Prices(context.Background())
	require.ErrorIs(t, err, strategy.ErrInvalidPrice)
}

func TestPricesMissingInstrument(t *testing.T) {
	inst := instruments()
	delete(inst, asset.SOL)
	m := New(fakeTickers{}, &fakeToken{price: 4}, inst, "mint", nil)
	_, err := m.Prices(context.Background())
	require.Error(t, err)
}
