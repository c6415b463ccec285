// Package metrics declares the Prometheus instruments for the application.
// Everything is registered at init time through promauto; the /metrics
// endpoint is wired up in the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "previsk"

func counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, labels)
}

func histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
}

// HTTP instruments, fed by Middleware.
var (
	HTTPRequestsTotal = counterVec("http_requests_total",
		"HTTP requests served, by method, path and status code.",
		"method", "path", "status_code")

	HTTPRequestDuration = histogramVec("http_request_duration_seconds",
		"HTTP request latency.",
		[]float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		"method", "path")

	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_requests_in_flight",
		Help:      "Requests currently being handled.",
	})
)

// Background job instruments, fed by the worker pool. Job buckets are much
// coarser than the HTTP ones; an export render can legitimately take minutes.
var (
	JobsTotal = counterVec("jobs_total",
		"Background jobs processed, by type and outcome.",
		"type", "status")

	JobDuration = histogramVec("job_duration_seconds",
		"Background job execution time.",
		[]float64{1, 5, 10, 30, 60, 120, 300, 600},
		"type")

	JobRetriesTotal = counterVec("job_retries_total",
		"Background job retry attempts, by type.",
		"type")
)

// Business instruments.
var (
	EvaluationsCreated = counterVec("evaluations_created_total",
		"Risk evaluations created, by entry method.",
		"method")

	ExportsGenerated = counterVec("exports_generated_total",
		"DUERP exports generated, by format.",
		"format")

	QuotaDenialsTotal = counterVec("quota_denials_total",
		"Operations rejected because a plan quota was reached, by feature.",
		"feature")

	QuotaAlertsSent = counterVec("quota_alerts_sent_total",
		"Quota alert emails sent, by threshold.",
		"threshold")
)

// AI spend instruments. Deliberately unlabeled by tenant: per-tenant usage
// lives in the database, and a tenant label here would blow up cardinality.
var (
	AIAPICalls = counterVec("ai_api_calls_total",
		"Calls made to the AI provider, by status.",
		"status")

	AITokensTotal = counterVec("ai_tokens_total",
		"AI tokens consumed, split into input and output.",
		"type")

	AICostCentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ai_cost_cents_total",
		Help:      "Cumulative AI provider cost in cents.",
	})
)
