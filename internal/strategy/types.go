package strategy

import (
	"errors"
	"fmt"
	"math"
	"time"

	"jlp-hedge-bot/internal/asset"
	"jlp-hedge-bot/internal/config"

	"github.com/shopspring/decimal"
)

var (
	ErrMissingPrice = errors.New("missing price")
	ErrInvalidPrice = errors.New("invalid price")
)

// Prices maps each asset to a positive spot or mark price.
type Prices map[asset.Asset]float64

// Holdings maps each asset to a signed quantity. Exchange shorts are negative.
type Holdings map[asset.Asset]float64

// TargetWeights are fractions of the anchor value, keyed by hedge asset.
type TargetWeights map[asset.Asset]float64

// Snapshot is one fetch of prices and holdings. It is never mutated after
// the fetch stage returns it.
type Snapshot struct {
	Prices    Prices
	Holdings  Holdings
	Gas       float64
	FetchedAt time.Time
}

type Instrument struct {
	InstID        string
	ContractValue decimal.Decimal
	LotSize       decimal.Decimal
}

type Instruments map[asset.Asset]Instrument

func (p Prices) Get(a asset.Asset) (float64, error) {
	price, ok := p[a]
	if !ok {
		return 0, fmt.Errorf("%w for %s", ErrMissingPrice, a)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, fmt.Errorf("%w for %s: %v", ErrInvalidPrice, a, price)
	}
	return price, nil
}

func TargetsFromConfig(weights map[string]float64) (TargetWeights, error) {
	targets := make(TargetWeights, len(weights))
	for symbol, weight := range weights {
		a, err := asset.Parse(symbol)
		if err != nil {
			return nil, err
		}
		if a == asset.Anchor {
			continue
		}
		targets[a] = weight
	}
	return targets, nil
}

func InstrumentsFromConfig(cfg map[string]config.InstrumentConfig) (Instruments, error) {
	out := make(Instruments, len(cfg))
	for symbol, inst := range cfg {
		a, err := asset.Parse(symbol)
		if err != nil {
			return nil, err
		}
		if inst.ContractValue <= 0 || inst.LotSize <= 0 {
			return nil, fmt.Errorf("instrument %s: contract value and lot size must be > 0", symbol)
		}
		out[a] = Instrument{
			InstID:        inst.InstID,
			ContractValue: decimal.NewFromFloat(inst.ContractValue),
			LotSize:       decimal.NewFromFloat(inst.LotSize),
		}
	}
	return out, nil
}

// ByInstID resolves an exchange instrument id back to its asset.
func (i Instruments) ByInstID(instID string) (asset.Asset, Instrument, bool) {
	for a, inst := range i {
		if inst.InstID == instID {
			return a, inst, true
		}
	}
	return "", Instrument{}, false
}

// Assets lists the configured hedge assets in asset.Hedges order.
func (i Instruments) Assets() []asset.Asset {
	out := make([]asset.Asset, 0, len(i))
	for _, a := range asset.Hedges {
		if _, ok := i[a]; ok {
			out = append(out, a)
		}
	}
	return out
}
