package backtest

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
	gainStyle   = cellStyle.Foreground(lipgloss.Color("42"))
	lossStyle   = cellStyle.Foreground(lipgloss.Color("203"))
	totalStyle  = lipgloss.NewStyle().Bold(true)
)

func money(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("$%.2f", v)
}

// Render lays out the daily and cumulative PnL with the period total.
func Render(res *Result) string {
	rows := make([][]string, 0, len(res.Days))
	for _, d := range res.Days {
		rows = append(rows, []string{d.Date, money(d.Daily), money(d.Cumulative)})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("date", "daily_pnl", "cumulative_pnl").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 0 || row < 0 || row >= len(res.Days) {
				return cellStyle.Align(lipgloss.Left)
			}
			v := res.Days[row].Daily
			if col == 2 {
				v = res.Days[row].Cumulative
			}
			if v < 0 {
				return lossStyle
			}
			return gainStyle
		})

	var b strings.Builder
	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(totalStyle.Render(fmt.Sprintf("Total PnL %s to %s on %s invested: %s",
		res.Start, res.End, money(res.Investment), money(res.Total))))
	b.WriteString("\n")
	return b.String()
}
