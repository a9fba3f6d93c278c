package strategy

import (
	"fmt"
	"math"

	"jlp-hedge-bot/internal/asset"

	"github.com/shopspring/decimal"
)

// Adjustment is the planned change of one hedge position.
type Adjustment struct {
	Asset      asset.Asset
	InstID     string
	Price      float64
	TargetQty  float64
	CurrentQty float64
	// Delta is the unrounded difference between target and current quantity.
	Delta float64
	Lots  int64
	// Quantity is Lots times the lot size, signed. Positive buys.
	Quantity decimal.Decimal
}

func (a Adjustment) NeedsOrder() bool {
	return a.Quantity.Sign() != 0
}

func (a Adjustment) IsBuy() bool {
	return a.Quantity.Sign() > 0
}

type PlanInput struct {
	Snapshot    Snapshot
	Targets     TargetWeights
	Instruments Instruments
	// Short hedges the anchor by holding negative target quantities.
	Short bool
}

// Plan computes one adjustment per weighted hedge asset, in asset.Hedges order.
// The anchor value is the anchor's price times its wallet quantity.
func Plan(in PlanInput) ([]Adjustment, error) {
	anchorPrice, err := in.Snapshot.Prices.Get(asset.Anchor)
	if err != nil {
		return nil, err
	}
	anchorValue := anchorPrice * in.Snapshot.Holdings[asset.Anchor]
	if !finite(anchorValue) {
		return nil, fmt.Errorf("%w for %s", ErrInvalidQuantity, asset.Anchor)
	}
	if anchorValue == 0 {
		return nil, ErrZeroAnchorValue
	}
	out := make([]Adjustment, 0, len(asset.Hedges))
	for _, a := range asset.Hedges {
		weight, ok := in.Targets[a]
		if !ok {
			continue
		}
		inst, ok := in.Instruments[a]
		if !ok {
			return nil, fmt.Errorf("no instrument configured for %s", a)
		}
		price, err := in.Snapshot.Prices.Get(a)
		if err != nil {
			return nil, err
		}
		targetValue := anchorValue * weight
		if in.Short {
			targetValue = -targetValue
		}
		targetQty := targetValue / price
		current := in.Snapshot.Holdings[a]
		delta := targetQty - current
		if !finite(delta) {
			return nil, fmt.Errorf("%w for %s: delta %v", ErrInvalidQuantity, a, delta)
		}
		lots, qty, err := RoundToLot(delta, inst.LotSize)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a, err)
		}
		out = append(out, Adjustment{
			Asset:      a,
			InstID:     inst.InstID,
			Price:      price,
			TargetQty:  targetQty,
			CurrentQty: current,
			Delta:      delta,
			Lots:       lots,
			Quantity:   qty,
		})
	}
	return out, nil
}

var maxLots = decimal.NewFromInt(math.MaxInt64)

// RoundToLot rounds delta to the nearest whole number of lots, ties to even.
// Rounding an already rounded quantity returns it unchanged.
func RoundToLot(delta float64, lot decimal.Decimal) (int64, decimal.Decimal, error) {
	if lot.Sign() <= 0 {
		return 0, decimal.Zero, fmt.Errorf("lot size %s must be > 0", lot)
	}
	if !finite(delta) {
		return 0, decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidQuantity, delta)
	}
	lots := decimal.NewFromFloat(delta).Div(lot).RoundBank(0)
	if lots.GreaterThan(maxLots) || lots.LessThan(maxLots.Neg()) {
		return 0, decimal.Zero, fmt.Errorf("%w: %v is %s lots of %s", ErrInvalidQuantity, delta, lots, lot)
	}
	return lots.IntPart(), lots.Mul(lot), nil
}
