package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "settlement_"

	resultSuccess = "success"
	resultError   = "error"
)

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)

var (
	registerOnce sync.Once

	jobRunsTotal  *prometheus.CounterVec
	jobRunLatency *prometheus.HistogramVec

	transitionsTotal *prometheus.CounterVec

	lifecycleRequestsTotal *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		jobRunsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "period_job_runs_total",
				Help: "Total period job runs by job and result",
			},
			[]string{"job", "result"},
		)
		jobRunLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: metricPrefix + "period_job_latency_seconds",
				Help: "Period job run latency in seconds",
				// Compute and submit runs can take hours.
				Buckets: []float64{1, 10, 60, 600, 3600, 7200, 14400, 36000},
			},
			[]string{"job", "result"},
		)

		transitionsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "period_transitions_total",
				Help: "Total period status transitions by source and target",
			},
			[]string{"from", "to"},
		)

		lifecycleRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "period_lifecycle_requests_total",
				Help: "Total lifecycle operations by operation and result",
			},
			[]string{"operation", "result"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "period_export_total",
				Help: "Total period exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "period_export_latency_seconds",
				Help:    "Period export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			jobRunsTotal,
			jobRunLatency,
			transitionsTotal,
			lifecycleRequestsTotal,
			exportTotal,
			exportLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveJobRun records one period job run.
func ObserveJobRun(job, result string, duration time.Duration) {
	if job == "" {
		job = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if jobRunsTotal != nil {
		jobRunsTotal.WithLabelValues(job, result).Inc()
	}
	if jobRunLatency != nil {
		jobRunLatency.WithLabelValues(job, result).Observe(duration.Seconds())
	}
}

// IncTransition counts an applied status transition.
func IncTransition(from, to string) {
	if transitionsTotal != nil {
		transitionsTotal.WithLabelValues(from, to).Inc()
	}
}

// IncLifecycleRequest counts a lifecycle operation (create/compute/submit/reset).
func IncLifecycleRequest(operation, result string) {
	if operation == "" {
		operation = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if lifecycleRequestsTotal != nil {
		lifecycleRequestsTotal.WithLabelValues(operation, result).Inc()
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}
