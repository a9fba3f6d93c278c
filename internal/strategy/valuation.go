package strategy

import (
	"errors"
	"fmt"
	"math"

	"jlp-hedge-bot/internal/asset"
)

var (
	ErrZeroPortfolioValue = errors.New("portfolio value is zero")
	ErrZeroAnchorValue    = errors.New("anchor value is zero")
	ErrInvalidQuantity    = errors.New("invalid quantity")
)

// Valuation is the value and weight of every asset at one snapshot.
// Weights sum to 1 over asset.All.
type Valuation struct {
	Values  map[asset.Asset]float64
	Weights map[asset.Asset]float64
	Total   float64
}

func Valuate(prices Prices, holdings Holdings) (Valuation, error) {
	v := Valuation{
		Values:  make(map[asset.Asset]float64, len(asset.All)),
		Weights: make(map[asset.Asset]float64, len(asset.All)),
	}
	for _, a := range asset.All {
		price, err := prices.Get(a)
		if err != nil {
			return Valuation{}, err
		}
		qty := holdings[a]
		if !finite(qty) {
			return Valuation{}, fmt.Errorf("%w for %s: %v", ErrInvalidQuantity, a, qty)
		}
		value := price * qty
		v.Values[a] = value
		v.Total += value
	}
	if v.Total == 0 || !finite(v.Total) {
		return Valuation{}, fmt.Errorf("%w: total %v", ErrZeroPortfolioValue, v.Total)
	}
	for a, value := range v.Values {
		v.Weights[a] = value / v.Total
	}
	return v, nil
}

func (v Valuation) AnchorValue() float64 {
	return v.Values[asset.Anchor]
}

// RelativeToAnchor reports an asset's value as a fraction of the anchor value.
func (v Valuation) RelativeToAnchor(a asset.Asset) (float64, error) {
	anchor := v.AnchorValue()
	if anchor == 0 {
		return 0, ErrZeroAnchorValue
	}
	return v.Values[a] / anchor, nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
