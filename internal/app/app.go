package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jlp-hedge-bot/internal/account"
	"jlp-hedge-bot/internal/alerts"
	"jlp-hedge-bot/internal/config"
	"jlp-hedge-bot/internal/exec"
	"jlp-hedge-bot/internal/jupiter"
	"jlp-hedge-bot/internal/market"
	"jlp-hedge-bot/internal/metrics"
	"jlp-hedge-bot/internal/okx"
	"jlp-hedge-bot/internal/state"
	"jlp-hedge-bot/internal/state/sqlite"
	"jlp-hedge-bot/internal/strategy"
	"jlp-hedge-bot/internal/timescale"

	"go.uber.org/zap"
)

// finishTimeout bounds the notification and bookkeeping after a run, which
// must still happen when the run context has expired.
const finishTimeout = 15 * time.Second

type PriceFetcher interface {
	Prices(ctx context.Context) (strategy.Prices, error)
}

type AccountFetcher interface {
	Holdings(ctx context.Context) (strategy.Holdings, float64, error)
	MarginPositions(ctx context.Context) ([]strategy.MarginPosition, error)
}

type OrderExecutor interface {
	Execute(ctx context.Context, req exec.Request) (exec.Trade, error)
}

type Notifier interface {
	Send(ctx context.Context, message string) error
}

type RunWriter interface {
	WriteRun(ctx context.Context, rec state.RunRecord) error
}

type App struct {
	cfg         *config.Config
	log         *zap.Logger
	store       state.Store
	market      PriceFetcher
	account     AccountFetcher
	executor    OrderExecutor
	notifier    Notifier
	metrics     *metrics.Metrics
	pusher      metrics.Pusher
	timescale   RunWriter
	closers     []func() error
	targets     strategy.TargetWeights
	instruments strategy.Instruments
	now         func() time.Time
}

func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	targets, err := strategy.TargetsFromConfig(cfg.Hedge.TargetWeights)
	if err != nil {
		return nil, err
	}
	instruments, err := strategy.InstrumentsFromConfig(cfg.Hedge.Instruments)
	if err != nil {
		return nil, err
	}
	a := &App{
		cfg:         cfg,
		log:         log,
		metrics:     metrics.NewNoop(),
		targets:     targets,
		instruments: instruments,
		now:         time.Now,
	}

	if path := strings.TrimSpace(cfg.State.SQLitePath); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		store, err := sqlite.New(path)
		if err != nil {
			return nil, fmt.Errorf("open run journal: %w", err)
		}
		a.store = store
		a.closers = append(a.closers, store.Close)
	}

	okxClient := okx.New(cfg.OKX, log.Named("okx"))
	jupClient := jupiter.New(cfg.Jupiter, log.Named("jupiter"))
	a.market = market.New(okxClient, jupClient, instruments, cfg.Jupiter.TokenMint, log.Named("market"))
	a.account = account.New(okxClient, jupClient, instruments, account.Options{
		InstType:      cfg.OKX.InstType,
		WalletAddress: cfg.Jupiter.WalletAddress,
		AnchorMint:    cfg.Jupiter.TokenMint,
		GasSymbol:     cfg.Jupiter.GasSymbol,
	}, log.Named("account"))
	a.executor = exec.New(okxClient, a.store, log.Named("exec"))
	a.notifier = alerts.NewTelegram(cfg.Telegram, log.Named("telegram"))

	if url := strings.TrimSpace(cfg.Metrics.PushgatewayURL); url != "" {
		prom := metrics.NewPrometheus(url, cfg.Metrics.Job)
		a.metrics = prom.Metrics
		a.pusher = prom
	}

	writer, err := timescale.New(ctx, cfg.Timescale, log.Named("timescale"))
	if err != nil {
		log.Warn("timescale unavailable, run history disabled", zap.Error(err))
	} else if writer != nil {
		a.timescale = writer
		a.closers = append(a.closers, writer.Close)
	}
	return a, nil
}

func (a *App) Close() error {
	var errs []error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run performs one rebalance. It never panics, and it always attempts to
// notify, whether the run succeeded or not.
func (a *App) Run(ctx context.Context) (report *Report, err error) {
	report = &Report{StartedAt: a.now(), DryRun: a.cfg.Run.DryRun}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rebalance panicked: %v", r)
			a.log.Error("rebalance panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
		report.FinishedAt = a.now()
		report.Err = err
		if err != nil {
			a.metrics.RunsFailed.Inc()
		}
		a.finish(ctx, report)
	}()
	err = a.rebalance(ctx, report)
	return report, err
}

func (a *App) rebalance(ctx context.Context, report *Report) error {
	before, err := a.fetch(ctx)
	if err != nil {
		return err
	}
	report.Before = &before
	valuation, err := strategy.Valuate(before.Prices, before.Holdings)
	if err != nil {
		return fmt.Errorf("valuate: %w", err)
	}
	report.Valued = &valuation
	a.logWeights("allocation before", valuation)

	adjustments, err := strategy.Plan(strategy.PlanInput{
		Snapshot:    before,
		Targets:     a.targets,
		Instruments: a.instruments,
		Short:       a.cfg.Hedge.ShortValue(),
	})
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	var orderErrs []error
	for _, adj := range adjustments {
		outcome := a.apply(ctx, adj)
		if outcome.Err != nil {
			orderErrs = append(orderErrs, outcome.Err)
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	after, err := a.fetch(ctx)
	if err == nil {
		var v strategy.Valuation
		if v, err = strategy.Valuate(after.Prices, after.Holdings); err == nil {
			report.After = &v
			a.logWeights("allocation after", v)
		}
	}
	if err != nil {
		report.AfterErr = err
		a.log.Warn("post-rebalance refresh failed", zap.Error(err))
	}

	positions, err := a.account.MarginPositions(ctx)
	if err != nil {
		report.MarginErr = err
		a.log.Warn("margin check failed", zap.Error(err))
	} else {
		margin := strategy.CheckMargin(positions, a.cfg.Risk.MinMarginRatio)
		report.Margin = &margin
		if err := margin.Err(); err != nil {
			a.log.Warn("margin below threshold", zap.Error(err))
		}
	}

	if len(orderErrs) > 0 {
		return fmt.Errorf("%d of %d order(s) failed: %w", len(orderErrs), len(adjustments), errors.Join(orderErrs...))
	}
	return nil
}

func (a *App) fetch(ctx context.Context) (strategy.Snapshot, error) {
	prices, err := a.market.Prices(ctx)
	if err != nil {
		return strategy.Snapshot{}, fmt.Errorf("fetch prices: %w", err)
	}
	holdings, gas, err := a.account.Holdings(ctx)
	if err != nil {
		return strategy.Snapshot{}, fmt.Errorf("fetch holdings: %w", err)
	}
	return strategy.Snapshot{Prices: prices, Holdings: holdings, Gas: gas, FetchedAt: a.now()}, nil
}

func (a *App) apply(ctx context.Context, adj strategy.Adjustment) AssetOutcome {
	outcome := AssetOutcome{Adjustment: adj}
	if !adj.NeedsOrder() {
		a.log.Info("no adjustment needed", zap.String("asset", adj.Asset.String()), zap.Float64("delta", adj.Delta))
		return outcome
	}
	if a.cfg.Run.DryRun {
		outcome.DryRun = true
		a.log.Info("dry run, order skipped",
			zap.String("asset", adj.Asset.String()),
			zap.String("quantity", adj.Quantity.String()),
		)
		return outcome
	}
	inst := a.instruments[adj.Asset]
	trade, err := a.executor.Execute(ctx, exec.Request{
		Asset:         adj.Asset,
		InstID:        adj.InstID,
		Quantity:      adj.Quantity,
		ContractValue: inst.ContractValue,
	})
	if err != nil {
		a.metrics.OrdersFailed.Inc()
		a.log.Error("order failed", zap.String("asset", adj.Asset.String()), zap.Error(err))
		outcome.Err = err
		return outcome
	}
	a.metrics.OrdersPlaced.Inc()
	outcome.Trade = &trade
	return outcome
}

// finish notifies and records the run. Every step is best-effort.
func (a *App) finish(ctx context.Context, report *Report) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	if a.notifier != nil {
		if err := a.notifier.Send(ctx, report.Message()); err != nil {
			a.metrics.NotifyFailed.Inc()
			a.log.Warn("notification failed", zap.Error(err))
		}
	}

	weights := report.After
	if weights == nil {
		weights = report.Valued
	}
	if weights != nil {
		for _, asset := range a.instruments.Assets() {
			if rel, err := weights.RelativeToAnchor(asset); err == nil {
				a.metrics.AssetWeight.Set(asset.String(), rel)
			}
		}
	}

	rec := report.Record()
	if err := state.SaveRunRecord(ctx, a.store, rec); err != nil {
		a.log.Warn("run journal write failed", zap.Error(err))
	}
	if a.timescale != nil {
		if err := a.timescale.WriteRun(ctx, rec); err != nil {
			a.log.Warn("timescale write failed", zap.Error(err))
		}
	}
	if a.pusher != nil {
		if err := a.pusher.Push(ctx); err != nil {
			a.log.Warn("metrics push failed", zap.Error(err))
		}
	}
}

func (a *App) logWeights(msg string, v strategy.Valuation) {
	fields := []zap.Field{zap.Float64("total", v.Total), zap.Float64("anchor", v.AnchorValue())}
	for _, asset := range a.instruments.Assets() {
		if rel, err := v.RelativeToAnchor(asset); err == nil {
			fields = append(fields, zap.Float64(strings.ToLower(asset.String()), rel))
		}
	}
	a.log.Info(msg, fields...)
}
