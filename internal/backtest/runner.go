package backtest

import (
	"context"
	"sort"
	"time"

	"jlp-hedge-bot/internal/config"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Runner struct {
	cfg    config.BacktestConfig
	quotes SeriesSource
	klines SeriesSource
	log    *zap.Logger
}

// NewRunner wires the JLP quote source and the component kline source.
func NewRunner(cfg config.BacktestConfig, quotes, klines SeriesSource, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{cfg: cfg, quotes: quotes, klines: klines, log: log}
}

// Run fetches every series for the configured window ending at now (or the
// configured end date) and simulates the static hedge.
func (r *Runner) Run(ctx context.Context, now time.Time) (*Result, error) {
	start, err := time.Parse(time.DateOnly, r.cfg.StartDate)
	if err != nil {
		return nil, errors.Wrap(err, "parse start date")
	}
	if !start.Before(now) {
		return nil, errors.Wrapf(ErrFutureStart, "%s", r.cfg.StartDate)
	}
	end := now.UTC().Truncate(24 * time.Hour)
	if r.cfg.EndDate != "" {
		if end, err = time.Parse(time.DateOnly, r.cfg.EndDate); err != nil {
			return nil, errors.Wrap(err, "parse end date")
		}
	}
	r.log.Info("backtest window", zap.String("start", dayOf(start)), zap.String("end", dayOf(end)))

	series := make(map[string]Series, len(r.cfg.Components)+1)
	jlp, err := r.quotes.Closes(ctx, r.cfg.JLPSlug, start, end)
	if err != nil {
		return nil, errors.Wrap(err, "fetch JLP closes")
	}
	series[JLPColumn] = jlp
	r.log.Info("fetched closes", zap.String("name", JLPColumn), zap.Int("days", len(jlp)))

	components := r.components()
	for _, c := range components {
		symbol := r.cfg.Components[c.Name].Symbol
		s, err := r.klines.Closes(ctx, symbol, start, end)
		if err != nil {
			return nil, errors.Wrapf(err, "fetch %s (%s) closes", c.Name, symbol)
		}
		series[c.Name] = s
		r.log.Info("fetched closes", zap.String("name", c.Name), zap.String("symbol", symbol), zap.Int("days", len(s)))
	}

	table, err := Align(series)
	if err != nil {
		return nil, err
	}
	return Simulate(table, components, r.cfg.InitialInvestment)
}

func (r *Runner) components() []Component {
	out := make([]Component, 0, len(r.cfg.Components))
	for name, c := range r.cfg.Components {
		out = append(out, Component{Name: name, Weight: c.Weight})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
