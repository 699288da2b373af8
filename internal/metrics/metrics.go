package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"IvyRanker/internal/model"
)

// Metrics holds all Prometheus metrics for the ranking runs.
type Metrics struct {
	RunsTotal            *prometheus.CounterVec // labels: status=ok|error
	SymbolsFailedTotal   *prometheus.CounterVec // labels: kind
	ProviderRetriesTotal prometheus.Counter
	Crossings            prometheus.Gauge
	RunDuration          prometheus.Histogram
	LastRunTimestamp     prometheus.Gauge
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ivyranker_runs_total",
			Help: "Batch runs by outcome",
		}, []string{"status"}),
		SymbolsFailedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ivyranker_symbols_failed_total",
			Help: "Symbols skipped during a run, by failure kind",
		}, []string{"kind"}),
		ProviderRetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ivyranker_provider_retries_total",
			Help: "Price provider requests retried after a failure",
		}),
		Crossings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ivyranker_crossings",
			Help: "Moving average crossings found by the latest run",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ivyranker_run_duration_seconds",
			Help:    "Wall time of a batch run including fetch and reports",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ivyranker_last_run_timestamp_seconds",
			Help: "Unix time of the latest successful run",
		}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.SymbolsFailedTotal,
		m.ProviderRetriesTotal,
		m.Crossings,
		m.RunDuration,
		m.LastRunTimestamp,
	)
	return m
}

// ObserveRun records the outcome of one batch run. res may be nil when the run failed.
func (m *Metrics) ObserveRun(res *model.BatchResult, elapsed time.Duration, err error) {
	m.RunDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.RunsTotal.WithLabelValues("error").Inc()
	} else {
		m.RunsTotal.WithLabelValues("ok").Inc()
	}
	// A fail-fast abort still carries the partial batch.
	if res == nil {
		return
	}
	m.Crossings.Set(float64(res.CrossingCount))
	m.LastRunTimestamp.Set(float64(res.GeneratedAt.Unix()))
	for _, f := range res.Failures {
		m.SymbolsFailedTotal.WithLabelValues(f.Kind()).Inc()
	}
}

// ProviderRetry matches the collector's retry hook.
func (m *Metrics) ProviderRetry(_ string, _ int, _ error) {
	m.ProviderRetriesTotal.Inc()
}
