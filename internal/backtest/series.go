// Package backtest estimates the PnL of holding JLP long against a static
// short of its basket components over daily closes.
package backtest

import (
	"sort"
	"time"
)

// Point is one daily close.
type Point struct {
	Date  string  `msgpack:"d"`
	Price float64 `msgpack:"p"`
}

// Series is a daily close series ordered by date.
type Series []Point

func dayOf(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// normalize sorts by date and keeps the last close seen for a repeated day.
func (s Series) normalize() Series {
	byDate := make(map[string]float64, len(s))
	for _, p := range s {
		byDate[p.Date] = p.Price
	}
	out := make(Series, 0, len(byDate))
	for d, price := range byDate {
		out = append(out, Point{Date: d, Price: price})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
