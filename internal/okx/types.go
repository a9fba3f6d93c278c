package okx

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// APIError is a non-zero code returned by the exchange.
type APIError struct {
	Code string
	Msg  string
}

func (e *APIError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("okx error %s", e.Code)
	}
	return fmt.Sprintf("okx error %s: %s", e.Code, e.Msg)
}

type envelope[T any] struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []T    `json:"data"`
}

type rawTicker struct {
	InstID string `json:"instId"`
	Last   string `json:"last"`
}

type rawPosition struct {
	InstID   string `json:"instId"`
	InstType string `json:"instType"`
	Pos      string `json:"pos"`
	PosSide  string `json:"posSide"`
	MgnRatio string `json:"mgnRatio"`
	AvgPx    string `json:"avgPx"`
}

// Position is one open derivatives position. Size is in contracts as
// reported: signed in net mode, positive with PosSide "short" in long/short
// mode. Use NetSize for the signed exposure.
type Position struct {
	InstID         string
	InstType       string
	PosSide        string
	Size           float64
	AvgPrice       float64
	MarginRatio    float64
	HasMarginRatio bool
}

// NetSize is the signed contract count, negative for shorts in either
// position mode.
func (p Position) NetSize() float64 {
	if strings.EqualFold(p.PosSide, "short") {
		return -math.Abs(p.Size)
	}
	return p.Size
}

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderRequest is a market order for Size contracts.
type OrderRequest struct {
	InstID        string `json:"instId"`
	TradeMode     string `json:"tdMode"`
	Side          Side   `json:"side"`
	OrderType     string `json:"ordType"`
	Size          string `json:"sz"`
	ClientOrderID string `json:"clOrdId,omitempty"`
}

type OrderAck struct {
	OrderID       string `json:"ordId"`
	ClientOrderID string `json:"clOrdId"`
	SCode         string `json:"sCode"`
	SMsg          string `json:"sMsg"`
}

type rawOrder struct {
	InstID    string `json:"instId"`
	OrdID     string `json:"ordId"`
	ClOrdID   string `json:"clOrdId"`
	Side      string `json:"side"`
	State     string `json:"state"`
	Sz        string `json:"sz"`
	FillSz    string `json:"fillSz"`
	AccFillSz string `json:"accFillSz"`
	AvgPx     string `json:"avgPx"`
	CTime     string `json:"cTime"`
}

// Order is the exchange view of a placed order. Sizes are in contracts.
type Order struct {
	InstID        string
	OrderID       string
	ClientOrderID string
	Side          Side
	State         string
	Size          float64
	FilledSize    float64
	AvgPrice      float64
	CreatedAt     time.Time
}

func (r rawOrder) order() Order {
	filled, ok := parseNumber(r.AccFillSz)
	if !ok {
		filled, _ = parseNumber(r.FillSz)
	}
	size, _ := parseNumber(r.Sz)
	avg, _ := parseNumber(r.AvgPx)
	var created time.Time
	if ms, err := strconv.ParseInt(strings.TrimSpace(r.CTime), 10, 64); err == nil && ms > 0 {
		created = time.UnixMilli(ms).UTC()
	}
	return Order{
		InstID:        r.InstID,
		OrderID:       r.OrdID,
		ClientOrderID: r.ClOrdID,
		Side:          Side(r.Side),
		State:         r.State,
		Size:          size,
		FilledSize:    filled,
		AvgPrice:      avg,
		CreatedAt:     created,
	}
}

func (r rawPosition) position() (Position, error) {
	size, ok := parseNumber(r.Pos)
	if !ok {
		return Position{}, fmt.Errorf("okx position %s: invalid pos %q", r.InstID, r.Pos)
	}
	avg, _ := parseNumber(r.AvgPx)
	ratio, hasRatio := parseNumber(r.MgnRatio)
	return Position{
		InstID:         r.InstID,
		InstType:       r.InstType,
		PosSide:        r.PosSide,
		Size:           size,
		AvgPrice:       avg,
		MarginRatio:    ratio,
		HasMarginRatio: hasRatio,
	}, nil
}

// parseNumber reads the exchange's string-encoded numbers. Empty means absent.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}
