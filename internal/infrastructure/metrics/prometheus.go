package metrics

import (
	"time"

	"github.com/asakaida/rolegate/internal/entities"
	"github.com/asakaida/rolegate/internal/services/authorization"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// PrometheusExporter exports metrics to Prometheus format.
type PrometheusExporter struct {
	collector *Collector

	// Prometheus metrics
	mutations    *prometheus.CounterVec
	decisions    *prometheus.CounterVec
	saves        *prometheus.CounterVec
	saveDuration prometheus.Histogram
	cacheHitRate prometheus.Gauge
	cacheKeys    prometheus.Gauge
}

// NewPrometheusExporter creates a new Prometheus exporter registering its
// metrics on reg. A nil reg uses the default registerer.
func NewPrometheusExporter(collector *Collector, reg prometheus.Registerer) *PrometheusExporter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	e := &PrometheusExporter{
		collector: collector,
		mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rolegate_mutations_total",
				Help: "Total number of role and user store mutations",
			},
			[]string{"operation", "outcome"},
		),
		decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rolegate_decisions_total",
				Help: "Total number of authorization decisions",
			},
			[]string{"resource", "reason"},
		),
		saves: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rolegate_snapshot_saves_total",
				Help: "Total number of snapshot save attempts",
			},
			[]string{"outcome"},
		),
		saveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rolegate_snapshot_save_duration_seconds",
			Help:    "Duration of snapshot saves in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
		}),
		cacheHitRate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rolegate_decision_cache_hit_rate",
			Help: "Current decision cache hit rate (0.0 to 1.0)",
		}),
		cacheKeys: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rolegate_decision_cache_keys_current",
			Help: "Current number of keys in the decision cache",
		}),
	}
	if collector != nil {
		collector.SetExporter(e)
	}
	return e
}

// Update updates Gauge metrics from the collector.
// Counters are updated as observations arrive, so only update gauges here.
func (e *PrometheusExporter) Update() {
	if e.collector == nil {
		return
	}
	m := e.collector.GetCacheMetrics()
	e.cacheHitRate.Set(m.HitRate)
	e.cacheKeys.Set(float64(m.KeysCurrent))
}

// RecordMutation records a store mutation in Prometheus.
func (e *PrometheusExporter) RecordMutation(operation string, err error) {
	e.mutations.WithLabelValues(operation, outcome(err)).Inc()
}

// RecordDecision records an authorization decision in Prometheus.
func (e *PrometheusExporter) RecordDecision(resource entities.Resource, d authorization.Decision) {
	e.decisions.WithLabelValues(string(resource), string(d.Reason)).Inc()
}

// RecordSave records a snapshot save in Prometheus.
func (e *PrometheusExporter) RecordSave(d time.Duration, err error) {
	e.saves.WithLabelValues(outcome(err)).Inc()
	e.saveDuration.Observe(d.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return outcomeError
	}
	return outcomeOK
}
