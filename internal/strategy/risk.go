package strategy

import (
	"errors"
	"fmt"
)

var ErrMarginRatio = errors.New("margin ratio below threshold")

// MarginPosition is one exchange position as seen by the margin monitor.
type MarginPosition struct {
	InstID         string
	MarginRatio    float64
	HasMarginRatio bool
}

type MarginReport struct {
	Threshold float64
	Checked   int
	Breaches  []MarginPosition
	Lowest    MarginPosition
}

// CheckMargin compares every position that reports a margin ratio against
// threshold. Positions without a ratio are ignored.
func CheckMargin(positions []MarginPosition, threshold float64) MarginReport {
	report := MarginReport{Threshold: threshold}
	for _, pos := range positions {
		if !pos.HasMarginRatio {
			continue
		}
		if report.Checked == 0 || pos.MarginRatio < report.Lowest.MarginRatio {
			report.Lowest = pos
		}
		report.Checked++
		if pos.MarginRatio < threshold {
			report.Breaches = append(report.Breaches, pos)
		}
	}
	return report
}

func (r MarginReport) Healthy() bool {
	return len(r.Breaches) == 0
}

func (r MarginReport) Err() error {
	if r.Healthy() {
		return nil
	}
	return fmt.Errorf("%d position(s) below %.2f: %w", len(r.Breaches), r.Threshold, ErrMarginRatio)
}

// Lines renders one warning per breach, or a single healthy line.
func (r MarginReport) Lines() []string {
	if r.Checked == 0 {
		return []string{"✅ Margin: no open positions report a margin ratio"}
	}
	if r.Healthy() {
		return []string{fmt.Sprintf("✅ Margin OK: lowest ratio %.2f (%s)", r.Lowest.MarginRatio, r.Lowest.InstID)}
	}
	lines := make([]string, 0, len(r.Breaches))
	for _, b := range r.Breaches {
		lines = append(lines, fmt.Sprintf("🆘 Margin alert: %s ratio %.2f below %.2f", b.InstID, b.MarginRatio, r.Threshold))
	}
	return lines
}
