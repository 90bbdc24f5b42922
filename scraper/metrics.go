package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry               *prometheus.Registry
	AttemptsTotal          *prometheus.CounterVec
	RequestDuration        prometheus.Histogram
	RecordsExtractedTotal  prometheus.Counter
	RecordsExportedTotal   prometheus.Counter
	DuplicatesDroppedTotal prometheus.Counter
	RetriesTotal           prometheus.Counter
	ErrorsTotal            *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	attempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookscrape_fetch_attempts_total",
			Help: "Total HTTP fetch attempts by outcome.",
		},
		[]string{"outcome"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookscrape_request_duration_seconds",
			Help:    "HTTP request latency for catalogue pages.",
			Buckets: prometheus.DefBuckets,
		},
	)
	extracted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookscrape_records_extracted_total",
			Help: "Total number of records extracted from catalogue pages.",
		},
	)
	exported := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookscrape_records_exported_total",
			Help: "Total number of records written to a sink.",
		},
	)
	duplicates := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookscrape_duplicates_dropped_total",
			Help: "Total number of duplicate rows dropped before export.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookscrape_retries_total",
			Help: "Total number of retry attempts issued.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookscrape_errors_total",
			Help: "Total number of fetch errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(attempts, requestDuration, extracted, exported, duplicates, retries, errorsTotal)

	return &Metrics{
		Registry:               registry,
		AttemptsTotal:          attempts,
		RequestDuration:        requestDuration,
		RecordsExtractedTotal:  extracted,
		RecordsExportedTotal:   exported,
		DuplicatesDroppedTotal: duplicates,
		RetriesTotal:           retries,
		ErrorsTotal:            errorsTotal,
	}
}

// IncAttempt increments the attempts counter for an outcome label.
func (m *Metrics) IncAttempt(outcome string) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// AddExtracted adds n to the extracted records counter.
func (m *Metrics) AddExtracted(n int) {
	if m == nil {
		return
	}
	m.RecordsExtractedTotal.Add(float64(n))
}

// AddExported adds n to the exported records counter.
func (m *Metrics) AddExported(n int) {
	if m == nil {
		return
	}
	m.RecordsExportedTotal.Add(float64(n))
}

// AddDuplicates adds n to the dropped duplicates counter.
func (m *Metrics) AddDuplicates(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DuplicatesDroppedTotal.Add(float64(n))
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
