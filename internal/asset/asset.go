// Package asset defines the closed set of symbols the hedge works with.
package asset

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownAsset = errors.New("unknown asset")

type Asset string

const (
	JLP Asset = "JLP"
	BTC Asset = "BTC"
	ETH Asset = "ETH"
	SOL Asset = "SOL"
)

// Anchor is the liquidity-provider token whose value the hedges are sized against.
const Anchor = JLP

// Hedges lists the basket components shorted on the exchange, in planning order.
var Hedges = []Asset{BTC, ETH, SOL}

// All lists every asset that contributes to portfolio value.
var All = []Asset{BTC, ETH, SOL, JLP}

func Parse(symbol string) (Asset, error) {
	switch a := Asset(strings.ToUpper(strings.TrimSpace(symbol))); a {
	case JLP, BTC, ETH, SOL:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAsset, symbol)
	}
}

func (a Asset) IsHedge() bool {
	switch a {
	case BTC, ETH, SOL:
		return true
	}
	return false
}

func (a Asset) String() string {
	return string(a)
}
