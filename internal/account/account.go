package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"jlp-hedge-bot/internal/asset"
	"jlp-hedge-bot/internal/jupiter"
	"jlp-hedge-bot/internal/okx"
	"jlp-hedge-bot/internal/strategy"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PositionSource interface {
	Positions(ctx context.Context, instType string) ([]okx.Position, error)
}

type WalletSource interface {
	Balances(ctx context.Context, address string) (map[string]jupiter.Balance, error)
}

type Options struct {
	InstType      string
	WalletAddress string
	AnchorMint    string
	GasSymbol     string
}

// Account reads hedge positions from the exchange and the anchor holding
// from the wallet. Nothing is cached between calls.
type Account struct {
	positions   PositionSource
	wallet      WalletSource
	instruments strategy.Instruments
	opts        Options
	log         *zap.Logger
}

func New(positions PositionSource, wallet WalletSource, instruments strategy.Instruments, opts Options, log *zap.Logger) *Account {
	if log == nil {
		log = zap.NewNop()
	}
	opts.WalletAddress = strings.TrimSpace(opts.WalletAddress)
	return &Account{positions: positions, wallet: wallet, instruments: instruments, opts: opts, log: log}
}

// Holdings returns the signed quantity of every asset plus the wallet's gas
// token balance. Hedge quantities are contracts scaled by contract value.
func (a *Account) Holdings(ctx context.Context) (strategy.Holdings, float64, error) {
	if a.positions == nil || a.wallet == nil {
		return nil, 0, errors.New("position and wallet sources are required")
	}
	positions, err := a.positions.Positions(ctx, a.opts.InstType)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch positions: %w", err)
	}
	holdings := hedgeHoldings(positions, a.instruments)

	balances, err := a.wallet.Balances(ctx, a.opts.WalletAddress)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch wallet balances: %w", err)
	}
	holdings[asset.Anchor] = balances[a.opts.AnchorMint].UIAmount
	gas := balances[a.opts.GasSymbol].UIAmount

	a.log.Debug("holdings fetched",
		zap.Float64("btc", holdings[asset.BTC]),
		zap.Float64("eth", holdings[asset.ETH]),
		zap.Float64("sol", holdings[asset.SOL]),
		zap.Float64("jlp", holdings[asset.JLP]),
		zap.Float64("gas", gas),
	)
	return holdings, gas, nil
}

// MarginPositions returns every open position of the configured type with its
// margin ratio, whether or not it belongs to a hedge instrument.
func (a *Account) MarginPositions(ctx context.Context) ([]strategy.MarginPosition, error) {
	if a.positions == nil {
		return nil, errors.New("position source is required")
	}
	positions, err := a.positions.Positions(ctx, a.opts.InstType)
	if err != nil {
		return nil, fmt.Errorf("fetch positions: %w", err)
	}
	out := make([]strategy.MarginPosition, 0, len(positions))
	for _, pos := range positions {
		out = append(out, strategy.MarginPosition{
			InstID:         pos.InstID,
			MarginRatio:    pos.MarginRatio,
			HasMarginRatio: pos.HasMarginRatio,
		})
	}
	return out, nil
}

func hedgeHoldings(positions []okx.Position, instruments strategy.Instruments) strategy.Holdings {
	sums := make(map[asset.Asset]decimal.Decimal, len(asset.Hedges))
	for _, pos := range positions {
		a, inst, ok := instruments.ByInstID(pos.InstID)
		if !ok {
			continue
		}
		qty := decimal.NewFromFloat(pos.NetSize()).Mul(inst.ContractValue)
		sums[a] = sums[a].Add(qty)
	}
	holdings := make(strategy.Holdings, len(asset.All))
	for _, a := range asset.Hedges {
		holdings[a] = sums[a].InexactFloat64()
	}
	return holdings
}
