package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "navidrop"

// Metrics holds the Prometheus collectors for the upload pipeline.
type Metrics struct {
	registry *prometheus.Registry

	stagedFiles       *prometheus.CounterVec
	batches           *prometheus.CounterVec
	deliveries        *prometheus.CounterVec
	catalogFallbacks  *prometheus.CounterVec
	sweptFiles        prometheus.Counter
	finalizeDurations prometheus.Histogram
}

// New creates and registers the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stagedFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "staged_files_total",
			Help:      "Files received by upload-stage, by result.",
		}, []string{"result"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "finalize_batches_total",
			Help:      "Finalize calls, by batch status.",
		}, []string{"status"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Files handed to remote delivery, by outcome.",
		}, []string{"outcome"}),
		catalogFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_fallbacks_total",
			Help:      "Duplicate checks answered with an empty list because the catalog failed, by reason.",
		}, []string{"reason"}),
		sweptFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "temp_swept_files_total",
			Help:      "Stale temp files removed by the sweeper.",
		}),
		finalizeDurations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "finalize_duration_seconds",
			Help:      "Wall time of finalize calls.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
	m.registry.MustRegister(
		m.stagedFiles,
		m.batches,
		m.deliveries,
		m.catalogFallbacks,
		m.sweptFiles,
		m.finalizeDurations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) RecordStaged(result string) {
	m.stagedFiles.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordBatch(status string, seconds float64) {
	m.batches.WithLabelValues(status).Inc()
	m.finalizeDurations.Observe(seconds)
}

func (m *Metrics) RecordDelivery(outcome string, n int) {
	m.deliveries.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) RecordCatalogFallback(reason string) {
	m.catalogFallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordSwept(n int) {
	m.sweptFiles.Add(float64(n))
}
