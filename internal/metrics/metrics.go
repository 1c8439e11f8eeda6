// Package metrics records adapter load outcomes for Prometheus.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Load results used as the "result" label.
const (
	ResultLoaded = "loaded"
	ResultFailed = "failed"
	ResultCached = "cached"
)

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	gatherer     prometheus.Gatherer
	loadsTotal   *prometheus.CounterVec
	loadDuration *prometheus.HistogramVec
	reloadsTotal prometheus.Counter
}

// New registers the collectors on reg. gatherer is used by WriteTextfile and
// may be nil when exporting is not needed.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: gatherer,
		loadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gta_adapter_loads_total",
				Help: "Adapter load attempts by kind, declared type and result",
			},
			[]string{"kind", "type", "result"},
		),
		loadDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gta_adapter_load_duration_seconds",
				Help:    "Time spent loading an adapter from config",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"kind"},
		),
		reloadsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gta_config_reloads_total",
				Help: "Configuration snapshot reloads",
			},
		),
	}
}

// NewIsolated returns metrics on a private registry.
func NewIsolated() *Metrics {
	reg := prometheus.NewRegistry()
	return New(reg, reg)
}

// Default returns metrics registered once on the global Prometheus registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	})
	return defaultMetrics
}

// RecordLoad records one load attempt.
func (m *Metrics) RecordLoad(kind, typeName, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.loadsTotal.WithLabelValues(kind, typeName, result).Inc()
	if result != ResultCached {
		m.loadDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
}

// RecordReload counts a configuration reload.
func (m *Metrics) RecordReload() {
	if m == nil {
		return
	}
	m.reloadsTotal.Inc()
}

// LoadsTotal exposes the load counter for tests.
func (m *Metrics) LoadsTotal() *prometheus.CounterVec {
	return m.loadsTotal
}

// ReloadsTotal exposes the reload counter for tests.
func (m *Metrics) ReloadsTotal() prometheus.Counter {
	return m.reloadsTotal
}

// Gatherer returns the gatherer metrics are read from.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.gatherer
}
