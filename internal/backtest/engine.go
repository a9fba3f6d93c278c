package backtest

import (
	"sort"

	"github.com/pkg/errors"
)

// JLPColumn names the long leg in a price table.
const JLPColumn = "JLP"

var (
	ErrFutureStart      = errors.New("start date is in the future")
	ErrInsufficientData = errors.New("need at least two aligned days")
	ErrEmptySeries      = errors.New("no closes in window")
)

// Component is one shorted basket member.
type Component struct {
	Name   string
	Weight float64
}

// Table holds closes aligned on a shared date axis.
type Table struct {
	Dates   []string
	Columns map[string][]float64
}

// Align merges series on the union of their dates, then fills gaps with the
// previous close and any leading gap with the first close.
func Align(series map[string]Series) (Table, error) {
	seen := make(map[string]struct{})
	for name, s := range series {
		if len(s) == 0 {
			return Table{}, errors.Wrapf(ErrEmptySeries, "%s", name)
		}
		for _, p := range s {
			seen[p.Date] = struct{}{}
		}
	}
	dates := make([]string, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	index := make(map[string]int, len(dates))
	for i, d := range dates {
		index[d] = i
	}

	table := Table{Dates: dates, Columns: make(map[string][]float64, len(series))}
	for name, s := range series {
		col := make([]float64, len(dates))
		set := make([]bool, len(dates))
		for _, p := range s {
			i := index[p.Date]
			col[i] = p.Price
			set[i] = true
		}
		first := -1
		for i := range col {
			switch {
			case set[i]:
				if first < 0 {
					first = i
				}
			case first >= 0:
				col[i] = col[i-1]
			}
		}
		for i := 0; i < first; i++ {
			col[i] = col[first]
		}
		table.Columns[name] = col
	}
	return table, nil
}

// Day is the PnL of one day against the previous close.
type Day struct {
	Date       string
	Daily      float64
	Cumulative float64
}

type Result struct {
	Start      string
	End        string
	Investment float64
	LongUnits  float64
	ShortUnits map[string]float64
	Days       []Day
	Total      float64
}

// Simulate opens the long and the weighted shorts at the first aligned close
// and holds them unchanged to the end of the table.
func Simulate(table Table, components []Component, investment float64) (*Result, error) {
	if len(table.Dates) < 2 {
		return nil, ErrInsufficientData
	}
	jlp, ok := table.Columns[JLPColumn]
	if !ok {
		return nil, errors.Wrapf(ErrEmptySeries, "%s", JLPColumn)
	}
	if jlp[0] <= 0 {
		return nil, errors.Errorf("non-positive %s close on %s", JLPColumn, table.Dates[0])
	}
	res := &Result{
		Start:      table.Dates[0],
		End:        table.Dates[len(table.Dates)-1],
		Investment: investment,
		LongUnits:  investment / jlp[0],
		ShortUnits: make(map[string]float64, len(components)),
		Days:       make([]Day, 0, len(table.Dates)-1),
	}
	for _, c := range components {
		col, ok := table.Columns[c.Name]
		if !ok {
			return nil, errors.Wrapf(ErrEmptySeries, "%s", c.Name)
		}
		if col[0] <= 0 {
			return nil, errors.Errorf("non-positive %s close on %s", c.Name, table.Dates[0])
		}
		res.ShortUnits[c.Name] = investment * c.Weight / col[0]
	}

	cumulative := 0.0
	for i := 1; i < len(table.Dates); i++ {
		daily := (jlp[i] - jlp[i-1]) * res.LongUnits
		for _, c := range components {
			col := table.Columns[c.Name]
			daily += (col[i-1] - col[i]) * res.ShortUnits[c.Name]
		}
		cumulative += daily
		res.Days = append(res.Days, Day{Date: table.Dates[i], Daily: daily, Cumulative: cumulative})
	}
	res.Total = cumulative
	return res, nil
}
