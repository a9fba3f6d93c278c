package app

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"jlp-hedge-bot/internal/asset"
	"jlp-hedge-bot/internal/exec"
	"jlp-hedge-bot/internal/okx"
	"jlp-hedge-bot/internal/state"
	"jlp-hedge-bot/internal/strategy"
)

// AssetOutcome is what happened to one planned adjustment.
type AssetOutcome struct {
	Adjustment strategy.Adjustment
	Trade      *exec.Trade
	Err        error
	DryRun     bool
}

func (o AssetOutcome) Status() string {
	switch {
	case o.Err != nil:
		return state.StatusFailed
	case o.Trade != nil:
		return state.StatusFilled
	case o.DryRun:
		return state.StatusDryRun
	default:
		return state.StatusSkipped
	}
}

// Report collects everything one run observed. Fields stay nil for stages
// that did not complete.
type Report struct {
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool

	Before   *strategy.Snapshot
	Valued   *strategy.Valuation
	Outcomes []AssetOutcome

	After    *strategy.Valuation
	AfterErr error

	Margin    *strategy.MarginReport
	MarginErr error

	Err error
}

func (r *Report) FailedOrders() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Message renders the notification text for the run.
func (r *Report) Message() string {
	var b strings.Builder
	b.WriteString("🔔 JLP Hedge Rebalance 🔔")
	if r.DryRun {
		b.WriteString(" [DRY RUN]")
	}
	b.WriteString("\n")
	if r.Valued == nil {
		b.WriteString("❗️ Rebalance failed")
		if r.Err != nil {
			b.WriteString(": ")
			b.WriteString(r.Err.Error())
		}
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString("Allocation before (relative to JLP)\n")
	writeWeights(&b, *r.Valued)

	b.WriteString("Adjustments\n")
	for _, o := range r.Outcomes {
		b.WriteString(" - ")
		b.WriteString(o.line())
		b.WriteString("\n")
	}

	switch {
	case r.After != nil:
		b.WriteString("➡️ Allocation after (relative to JLP)\n")
		writeWeights(&b, *r.After)
	case r.AfterErr != nil:
		fmt.Fprintf(&b, "➡️ Allocation after unavailable: %v\n", r.AfterErr)
	}

	switch {
	case r.Margin != nil:
		for _, line := range r.Margin.Lines() {
			b.WriteString(line)
			b.WriteString("\n")
		}
	case r.MarginErr != nil:
		fmt.Fprintf(&b, "❗️ Margin check failed: %v\n", r.MarginErr)
	}

	if r.Before != nil {
		fmt.Fprintf(&b, "⛽ Wallet gas: %.4f SOL\n", r.Before.Gas)
	}
	if r.Err != nil {
		fmt.Fprintf(&b, "❗️ %v\n", r.Err)
	}
	return b.String()
}

func (o AssetOutcome) line() string {
	adj := o.Adjustment
	switch {
	case o.Err != nil:
		return fmt.Sprintf("%s: adjustment not applied: %v", adj.Asset, o.Err)
	case o.Trade != nil:
		verb := "Buy"
		if o.Trade.Side == okx.SideSell {
			verb = "Sell"
		}
		line := fmt.Sprintf("%s %s %s", verb, formatQty(o.Trade.Size), adj.Asset)
		if o.Trade.AvgPrice > 0 {
			line += fmt.Sprintf(" @ %.2f", o.Trade.AvgPrice)
		}
		if !o.Trade.Confirmed {
			line += " (fill unconfirmed)"
		}
		return line
	case o.DryRun:
		verb := "buy"
		if !adj.IsBuy() {
			verb = "sell"
		}
		return fmt.Sprintf("Would %s %s %s", verb, adj.Quantity.Abs().String(), adj.Asset)
	default:
		return fmt.Sprintf("%s: no adjustment needed", adj.Asset)
	}
}

func writeWeights(b *strings.Builder, v strategy.Valuation) {
	for _, a := range asset.Hedges {
		rel, err := v.RelativeToAnchor(a)
		if err != nil {
			fmt.Fprintf(b, " - %s n/a\n", a)
			continue
		}
		fmt.Fprintf(b, " - %s %.2f%%\n", a, rel*100)
	}
}

func formatQty(q float64) string {
	return strconv.FormatFloat(math.Abs(q), 'f', -1, 64)
}

// Record converts the report into the persisted run summary.
func (r *Report) Record() state.RunRecord {
	rec := state.RunRecord{
		StartedAtMS:  r.StartedAt.UnixMilli(),
		FinishedAtMS: r.FinishedAt.UnixMilli(),
		DryRun:       r.DryRun,
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
	}
	if r.Before != nil {
		rec.Gas = r.Before.Gas
		rec.Prices = make(map[string]float64, len(r.Before.Prices))
		for a, p := range r.Before.Prices {
			rec.Prices[a.String()] = p
		}
	}
	if r.Valued != nil {
		rec.AnchorValue = r.Valued.AnchorValue()
		rec.TotalValue = r.Valued.Total
	}
	if r.Margin != nil {
		rec.MarginHealthy = r.Margin.Healthy()
		rec.MinMarginRatio = r.Margin.Lowest.MarginRatio
	}
	for _, o := range r.Outcomes {
		adj := o.Adjustment
		ar := state.AssetRecord{
			Asset:      adj.Asset.String(),
			InstID:     adj.InstID,
			Price:      adj.Price,
			CurrentQty: adj.CurrentQty,
			TargetQty:  adj.TargetQty,
			OrderQty:   adj.Quantity.String(),
			Status:     o.Status(),
		}
		if o.Err != nil {
			ar.Error = o.Err.Error()
		}
		if o.Trade != nil {
			ar.OrderID = o.Trade.OrderID
			ar.FilledQty = o.Trade.Size
			ar.AvgPrice = o.Trade.AvgPrice
		}
		if r.Valued != nil {
			ar.WeightBefore, _ = r.Valued.RelativeToAnchor(adj.Asset)
		}
		if r.After != nil {
			ar.WeightAfter, _ = r.After.RelativeToAnchor(adj.Asset)
		}
		rec.Assets = append(rec.Assets, ar)
	}
	return rec
}
