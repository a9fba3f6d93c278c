package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignFillsForwardThenBackward(t *testing.T) {
	table, err := Align(map[string]Series{
		"JLP": {{Date: "2024-07-01", Price: 3}, {Date: "2024-07-03", Price: 3.3}},
		"SOL": {{Date: "2024-07-02", Price: 140}, {Date: "2024-07-03", Price: 150}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-07-01", "2024-07-02", "2024-07-03"}, table.Dates)
	assert.Equal(t, []float64{3, 3, 3.3}, table.Columns["JLP"])
	assert.Equal(t, []float64{140, 140, 150}, table.Columns["SOL"])
}

func TestAlignRejectsEmptySeries(t *testing.T) {
	_, err := Align(map[string]Series{"JLP": {{Date: "2024-07-01", Price: 3}}, "ETH": nil})
	require.ErrorIs(t, err, ErrEmptySeries)
}

func TestSimulate(t *testing.T) {
	table := Table{
		Dates: []string{"2024-07-01", "2024-07-02", "2024-07-03"},
		Columns: map[string][]float64{
			"JLP": {2, 2.5, 2},
			"SOL": {100, 110, 90},
		},
	}
	res, err := Simulate(table, []Component{{Name: "SOL", Weight: 0.5}}, 1000)
	require.NoError(t, err)

	assert.Equal(t, 500.0, res.LongUnits)
	assert.Equal(t, 5.0, res.ShortUnits["SOL"])
	require.Len(t, res.Days, 2)
	// day 1: +0.5*500 long, -10*5 short
	assert.InDelta(t, 200, res.Days[0].Daily, 1e-9)
	// day 2: -0.5*500 long, +20*5 short
	assert.InDelta(t, -150, res.Days[1].Daily, 1e-9)
	assert.InDelta(t, 50, res.Days[1].Cumulative, 1e-9)
	assert.InDelta(t, 50, res.Total, 1e-9)
	assert.Equal(t, "2024-07-01", res.Start)
	assert.Equal(t, "2024-07-03", res.End)
}

func TestSimulateNeedsTwoDays(t *testing.T) {
	table := Table{Dates: []string{"2024-07-01"}, Columns: map[string][]float64{"JLP": {2}}}
	_, err := Simulate(table, nil, 1000)
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestSimulateMissingComponent(t *testing.T) {
	table := Table{
		Dates:   []string{"2024-07-01", "2024-07-02"},
		Columns: map[string][]float64{"JLP": {2, 2}},
	}
	_, err := Simulate(table, []Component{{Name: "ETH", Weight: 0.1}}, 1000)
	require.ErrorIs(t, err, ErrEmptySeries)
}

func TestSeriesNormalizeSortsAndDedupes(t *testing.T) {
	s := Series{{Date: "2024-07-02", Price: 2}, {Date: "2024-07-01", Price: 1}, {Date: "2024-07-02", Price: 3}}
	assert.Equal(t, Series{{Date: "2024-07-01", Price: 1}, {Date: "2024-07-02", Price: 3}}, s.normalize())
}
