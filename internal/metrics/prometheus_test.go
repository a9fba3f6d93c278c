package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusCounters(t *testing.T) {
	prom := NewPrometheus("", "test")
	prom.Metrics.OrdersPlaced.Inc()
	prom.Metrics.OrdersPlaced.Inc()
	prom.Metrics.OrdersFailed.Inc()
	prom.Metrics.RunsFailed.Inc()
	prom.Metrics.NotifyFailed.Inc()

	assertCounter(t, prom.ordersPlaced, 2)
	assertCounter(t, prom.ordersFailed, 1)
	assertCounter(t, prom.runsFailed, 1)
	assertCounter(t, prom.notifyFailed, 1)
}

func TestPrometheusAssetWeight(t *testing.T) {
	prom := NewPrometheus("", "test")
	prom.Metrics.AssetWeight.Set("BTC", -0.13)
	prom.Metrics.AssetWeight.Set("SOL", -0.47)
	if got := testutil.ToFloat64(prom.assetWeight.WithLabelValues("BTC")); got != -0.13 {
		t.Fatalf("expected BTC weight -0.13, got %v", got)
	}
	if got := testutil.CollectAndCount(prom.assetWeight); got != 2 {
		t.Fatalf("expected 2 weight series, got %d", got)
	}
}

func TestPrometheusPush(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	prom := NewPrometheus(server.URL, "jlp_hedge_bot")
	prom.Metrics.OrdersPlaced.Inc()
	if err := prom.Push(context.Background()); err != nil {
		t.Fatalf("push failed: %v", err)
	}
	if gotMethod != http.MethodPut {
		t.Fatalf("expected PUT, got %s", gotMethod)
	}
	if gotPath != "/metrics/job/jlp_hedge_bot" {
		t.Fatalf("unexpected push path %s", gotPath)
	}
	if !strings.Contains(gotBody, "orders_placed_total") {
		t.Fatalf("expected pushed metrics body")
	}
}

func TestPrometheusPushWithoutURL(t *testing.T) {
	if err := NewPrometheus("", "test").Push(context.Background()); err == nil {
		t.Fatalf("expected error without pushgateway url")
	}
}

func TestNoopMetrics(t *testing.T) {
	m := NewNoop()
	m.OrdersPlaced.Inc()
	m.AssetWeight.Set("ETH", 1)
}

func assertCounter(t *testing.T, counter prometheus.Counter, expected float64) {
	t.Helper()
	if got := testutil.ToFloat64(counter); got != expected {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}
