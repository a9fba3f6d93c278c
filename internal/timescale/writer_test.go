package timescale

import (
	"context"
	"strings"
	"testing"
	"time"

	"jlp-hedge-bot/internal/config"
	"jlp-hedge-bot/internal/state"
)

func TestNewDisabledReturnsNil(t *testing.T) {
	w, err := New(context.Background(), config.TimescaleConfig{}, nil)
	if err != nil || w != nil {
		t.Fatalf("expected nil writer when disabled, got %v %v", w, err)
	}
	if err := w.WriteRun(context.Background(), state.RunRecord{}); err != nil {
		t.Fatalf("expected nil writer to ignore writes, got %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("expected nil writer close to succeed, got %v", err)
	}
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(context.Background(), config.TimescaleConfig{Enabled: true}, nil); err == nil {
		t.Fatalf("expected error for missing dsn")
	}
}

func TestRunRows(t *testing.T) {
	rec := state.RunRecord{
		StartedAtMS: 1700000000000,
		DryRun:      true,
		Assets: []state.AssetRecord{
			{Asset: "BTC", InstID: "BTC-USDT-SWAP", Status: state.StatusDryRun, OrderQty: "-0.0026"},
			{Asset: "ETH", InstID: "ETH-USDT-SWAP", Status: state.StatusSkipped},
		},
	}
	rows := runRows(rec)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if !rows[0].Time.Equal(time.UnixMilli(1700000000000)) || !rows[0].DryRun {
		t.Fatalf("unexpected first row: %#v", rows[0])
	}
	if rows[1].OrderQty != "0" {
		t.Fatalf("expected empty order qty stored as 0, got %q", rows[1].OrderQty)
	}
}

func TestPriceRowsSorted(t *testing.T) {
	rows := priceRows(state.RunRecord{Prices: map[string]float64{"SOL": 150, "BTC": 50000, "JLP": 4}})
	if len(rows) != 3 || rows[0].Asset != "BTC" || rows[1].Asset != "JLP" || rows[2].Asset != "SOL" {
		t.Fatalf("unexpected price rows: %#v", rows)
	}
}

func TestQueriesUseSchemaTable(t *testing.T) {
	w := &Writer{schema: "hedge"}
	if got := w.table("rebalance_runs"); got != "hedge.rebalance_runs" {
		t.Fatalf("unexpected table name %q", got)
	}
	if q := insertRunQuery(w.table("rebalance_runs")); !strings.Contains(q, "INSERT INTO hedge.rebalance_runs") || !strings.Contains(q, "$15") {
		t.Fatalf("unexpected insert query: %s", q)
	}
	if q := upsertPriceQuery(w.table("asset_prices")); !strings.Contains(q, "ON CONFLICT (ts, asset)") {
		t.Fatalf("unexpected upsert query: %s", q)
	}
}
