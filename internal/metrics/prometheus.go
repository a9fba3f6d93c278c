package metrics

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const promNamespace = "jlp_hedge_bot"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type promGauge struct {
	vec *prometheus.GaugeVec
}

func (p promGauge) Set(label string, value float64) {
	p.vec.WithLabelValues(label).Set(value)
}

// Prometheus collects run metrics in a private registry. The process exits
// after one run, so metrics are pushed rather than scraped.
type Prometheus struct {
	Metrics *Metrics

	registry     *prometheus.Registry
	gatewayURL   string
	job          string
	ordersPlaced prometheus.Counter
	ordersFailed prometheus.Counter
	runsFailed   prometheus.Counter
	notifyFailed prometheus.Counter
	assetWeight  *prometheus.GaugeVec
}

func NewPrometheus(gatewayURL, job string) *Prometheus {
	registry := prometheus.NewRegistry()
	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "orders_placed_total",
		Help:      "Total number of hedge orders placed.",
	})
	ordersFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "orders_failed_total",
		Help:      "Total number of hedge order failures.",
	})
	runsFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "runs_failed_total",
		Help:      "Total number of rebalance runs that ended in error.",
	})
	notifyFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "notify_failed_total",
		Help:      "Total number of notification delivery failures.",
	})
	assetWeight := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Name:      "asset_weight",
		Help:      "Asset value relative to the anchor value after the last rebalance.",
	}, []string{"asset"})

	registry.MustRegister(ordersPlaced, ordersFailed, runsFailed, notifyFailed, assetWeight)

	m := &Metrics{
		OrdersPlaced: promCounter{ordersPlaced},
		OrdersFailed: promCounter{ordersFailed},
		RunsFailed:   promCounter{runsFailed},
		NotifyFailed: promCounter{notifyFailed},
		AssetWeight:  promGauge{assetWeight},
	}

	return &Prometheus{
		Metrics:      m,
		registry:     registry,
		gatewayURL:   gatewayURL,
		job:          job,
		ordersPlaced: ordersPlaced,
		ordersFailed: ordersFailed,
		runsFailed:   runsFailed,
		notifyFailed: notifyFailed,
		assetWeight:  assetWeight,
	}
}

// Push replaces this job's metrics on the configured Pushgateway.
func (p *Prometheus) Push(ctx context.Context) error {
	if p.gatewayURL == "" {
		return errors.New("pushgateway url is not configured")
	}
	return push.New(p.gatewayURL, p.job).Gatherer(p.registry).PushContext(ctx)
}
