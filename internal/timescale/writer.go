package timescale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"jlp-hedge-bot/internal/config"
	"jlp-hedge-bot/internal/state"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// Writer stores run history in Postgres, as hypertables when TimescaleDB is
// installed.
type Writer struct {
	db     *sql.DB
	log    *zap.Logger
	schema string
}

type runRow struct {
	Time         time.Time
	Asset        string
	InstID       string
	Status       string
	DryRun       bool
	Price        float64
	CurrentQty   float64
	TargetQty    float64
	OrderQty     string
	FilledQty    float64
	AvgPrice     float64
	WeightBefore float64
	WeightAfter  float64
	OrderID      string
	Error        string
}

type priceRow struct {
	Time  time.Time
	Asset string
	Price float64
}

// New returns nil when timescale is disabled.
func New(ctx context.Context, cfg config.TimescaleConfig, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("timescale dsn is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	schema := strings.TrimSpace(cfg.Schema)
	if schema == "" {
		schema = "public"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	writer := &Writer{db: db, log: log, schema: schema}
	if err := writer.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return writer, nil
}

func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

// WriteRun inserts one row per asset of rec and the prices it saw, in a
// single transaction.
func (w *Writer) WriteRun(ctx context.Context, rec state.RunRecord) error {
	if w == nil || w.db == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	runQuery := insertRunQuery(w.table("rebalance_runs"))
	for _, row := range runRows(rec) {
		if _, err := tx.ExecContext(ctx, runQuery,
			row.Time,
			row.Asset,
			row.InstID,
			row.Status,
			row.DryRun,
			row.Price,
			row.CurrentQty,
			row.TargetQty,
			row.OrderQty,
			row.FilledQty,
			row.AvgPrice,
			row.WeightBefore,
			row.WeightAfter,
			row.OrderID,
			row.Error,
		); err != nil {
			return fmt.Errorf("insert rebalance run %s: %w", row.Asset, err)
		}
	}
	priceQuery := upsertPriceQuery(w.table("asset_prices"))
	for _, row := range priceRows(rec) {
		if _, err := tx.ExecContext(ctx, priceQuery, row.Time, row.Asset, row.Price); err != nil {
			return fmt.Errorf("upsert asset price %s: %w", row.Asset, err)
		}
	}
	return tx.Commit()
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	if w.db == nil {
		return errors.New("timescale db not initialized")
	}
	if w.schema != "public" {
		if err := w.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", w.schema)); err != nil {
			return err
		}
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		asset TEXT NOT NULL,
		inst_id TEXT NOT NULL,
		status TEXT NOT NULL,
		dry_run BOOLEAN NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		current_qty DOUBLE PRECISION NOT NULL,
		target_qty DOUBLE PRECISION NOT NULL,
		order_qty NUMERIC NOT NULL,
		filled_qty DOUBLE PRECISION NOT NULL,
		avg_price DOUBLE PRECISION NOT NULL,
		weight_before DOUBLE PRECISION NOT NULL,
		weight_after DOUBLE PRECISION NOT NULL,
		order_id TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT ''
	)`, w.table("rebalance_runs"))); err != nil {
		return err
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		asset TEXT NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (ts, asset)
	)`, w.table("asset_prices"))); err != nil {
		return err
	}
	if err := w.exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb"); err != nil {
		w.log.Warn("timescale extension ensure failed", zap.Error(err))
		return nil
	}
	for _, name := range []string{"rebalance_runs", "asset_prices"} {
		if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table(name))); err != nil {
			w.log.Warn("timescale hypertable create failed", zap.String("table", name), zap.Error(err))
		}
	}
	return nil
}

func insertRunQuery(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (
		ts, asset, inst_id, status, dry_run, price, current_qty, target_qty, order_qty,
		filled_qty, avg_price, weight_before, weight_after, order_id, error
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
	)`, table)
}

func upsertPriceQuery(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (ts, asset, price) VALUES ($1,$2,$3)
	ON CONFLICT (ts, asset) DO UPDATE SET price = EXCLUDED.price`, table)
}

func runRows(rec state.RunRecord) []runRow {
	ts := time.UnixMilli(rec.StartedAtMS).UTC()
	rows := make([]runRow, 0, len(rec.Assets))
	for _, a := range rec.Assets {
		qty := a.OrderQty
		if qty == "" {
			qty = "0"
		}
		rows = append(rows, runRow{
			Time:         ts,
			Asset:        a.Asset,
			InstID:       a.InstID,
			Status:       a.Status,
			DryRun:       rec.DryRun,
			Price:        a.Price,
			CurrentQty:   a.CurrentQty,
			TargetQty:    a.TargetQty,
			OrderQty:     qty,
			FilledQty:    a.FilledQty,
			AvgPrice:     a.AvgPrice,
			WeightBefore: a.WeightBefore,
			WeightAfter:  a.WeightAfter,
			OrderID:      a.OrderID,
			Error:        a.Error,
		})
	}
	return rows
}

func priceRows(rec state.RunRecord) []priceRow {
	ts := time.UnixMilli(rec.StartedAtMS).UTC()
	assets := make([]string, 0, len(rec.Prices))
	for a := range rec.Prices {
		assets = append(assets, a)
	}
	sort.Strings(assets)
	rows := make([]priceRow, 0, len(assets))
	for _, a := range assets {
		rows = append(rows, priceRow{Time: ts, Asset: a, Price: rec.Prices[a]})
	}
	return rows
}

func (w *Writer) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *Writer) table(name string) string {
	return w.schema + "." + name
}
