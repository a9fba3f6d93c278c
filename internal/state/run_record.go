package state

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	LastRunKey   = "rebalance:last_run"
	RunKeyPrefix = "rebalance:run:"
)

// Outcome of one asset within a run.
const (
	StatusFilled  = "filled"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
	StatusDryRun  = "dry_run"
)

type AssetRecord struct {
	Asset        string  `msgpack:"asset"`
	InstID       string  `msgpack:"inst_id"`
	Price        float64 `msgpack:"price"`
	CurrentQty   float64 `msgpack:"current_qty"`
	TargetQty    float64 `msgpack:"target_qty"`
	OrderQty     string  `msgpack:"order_qty"`
	OrderID      string  `msgpack:"order_id,omitempty"`
	FilledQty    float64 `msgpack:"filled_qty"`
	AvgPrice     float64 `msgpack:"avg_price"`
	Status       string  `msgpack:"status"`
	Error        string  `msgpack:"error,omitempty"`
	WeightBefore float64 `msgpack:"weight_before"`
	WeightAfter  float64 `msgpack:"weight_after"`
}

// RunRecord summarizes one rebalance run. Runs never read earlier records.
type RunRecord struct {
	StartedAtMS    int64              `msgpack:"started_at_ms"`
	FinishedAtMS   int64              `msgpack:"finished_at_ms"`
	DryRun         bool               `msgpack:"dry_run"`
	AnchorValue    float64            `msgpack:"anchor_value"`
	TotalValue     float64            `msgpack:"total_value"`
	Gas            float64            `msgpack:"gas"`
	Prices         map[string]float64 `msgpack:"prices"`
	Assets         []AssetRecord      `msgpack:"assets"`
	MarginHealthy  bool               `msgpack:"margin_healthy"`
	MinMarginRatio float64            `msgpack:"min_margin_ratio"`
	Error          string             `msgpack:"error,omitempty"`
}

func RunKey(startedAtMS int64) string {
	return RunKeyPrefix + strconv.FormatInt(startedAtMS, 10)
}

// SaveRunRecord stores rec under its own key and as the last run.
func SaveRunRecord(ctx context.Context, store Store, rec RunRecord) error {
	if store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	payload, err := msgpack.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("encode run record: %w", err)
	}
	if err := store.Set(ctx, RunKey(rec.StartedAtMS), payload); err != nil {
		return err
	}
	return store.Set(ctx, LastRunKey, payload)
}

func LoadLastRun(ctx context.Context, store Store) (RunRecord, bool, error) {
	return loadRun(ctx, store, LastRunKey)
}

func LoadRun(ctx context.Context, store Store, startedAtMS int64) (RunRecord, bool, error) {
	return loadRun(ctx, store, RunKey(startedAtMS))
}

func loadRun(ctx context.Context, store Store, key string) (RunRecord, bool, error) {
	if store == nil {
		return RunRecord{}, false, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return RunRecord{}, false, err
	}
	if !ok || len(raw) == 0 {
		return RunRecord{}, false, nil
	}
	var rec RunRecord
	if err := msgpack.Unmarshal(raw, &rec); err != nil {
		return RunRecord{}, false, fmt.Errorf("decode run record %s: %w", key, err)
	}
	return rec, true, nil
}
