package metrics

import "context"

type Counter interface {
	Inc()
}

// LabeledGauge is a gauge keyed by one label value.
type LabeledGauge interface {
	Set(label string, value float64)
}

type Pusher interface {
	Push(ctx context.Context) error
}

type Metrics struct {
	OrdersPlaced Counter
	OrdersFailed Counter
	RunsFailed   Counter
	NotifyFailed Counter
	AssetWeight  LabeledGauge
}

type noopCounter struct{}

func (noopCounter) Inc() {}

type noopGauge struct{}

func (noopGauge) Set(string, float64) {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		OrdersPlaced: n,
		OrdersFailed: n,
		RunsFailed:   n,
		NotifyFailed: n,
		AssetWeight:  noopGauge{},
	}
}
