package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// It is passed explicitly to every component that records metrics. Components
// accept a nil *Metrics and skip recording.
type Metrics struct {
	// Solana RPC
	solanaRPCCallsTotal        *prometheus.CounterVec
	solanaRPCCallDuration      *prometheus.HistogramVec
	solanaRPCRateLimitHits     *prometheus.CounterVec
	solanaRPCRetries           *prometheus.CounterVec
	solanaRPCSignaturesPerCall *prometheus.HistogramVec

	// Raw record cache
	cacheRequestsTotal *prometheus.CounterVec

	// Classification
	classificationsTotal   *prometheus.CounterVec
	classificationDuration prometheus.Observer
	flaggedMovementsTotal  *prometheus.CounterVec
	suspiciousLogsTotal    prometheus.Counter

	// Workflows
	scanWorkflowDuration        *prometheus.HistogramVec
	scanWorkflowExecutionsTotal *prometheus.CounterVec
	scanActivityDuration        *prometheus.HistogramVec

	// Database
	dbQueryDuration   *prometheus.HistogramVec
	dbOperationsTotal *prometheus.CounterVec

	// HTTP
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsTotal    *prometheus.CounterVec
	sseActiveConnections *prometheus.GaugeVec
	sseEventsSent        *prometheus.CounterVec

	// NATS
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

const namespace = "dustwatch"

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	f := factory{promauto.With(registry)}

	return &Metrics{
		solanaRPCCallsTotal: f.counter("rpc", "calls_total",
			"RPC calls by method, status and endpoint label", "method", "status", "endpoint"),
		solanaRPCCallDuration: f.histogram("rpc", "call_duration_seconds",
			"RPC call latency", []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}, "method", "endpoint"),
		solanaRPCRateLimitHits: f.counter("rpc", "rate_limited_total",
			"RPC responses rejected with 429", "endpoint"),
		solanaRPCRetries: f.counter("rpc", "retries_total",
			"RPC retry attempts by method and reason", "method", "reason"),
		solanaRPCSignaturesPerCall: f.histogram("rpc", "signatures_per_page",
			"Signatures returned per signature listing page", []float64{1, 10, 50, 100, 250, 500, 1000}, "endpoint"),

		cacheRequestsTotal: f.counter("cache", "lookups_total",
			"Raw record cache lookups by result (hit, miss, error)", "result"),

		classificationsTotal: f.counter("classifier", "runs_total",
			"Transaction classifications by status", "status"),
		classificationDuration: f.histogram("classifier", "run_duration_seconds",
			"Time spent classifying one transaction", []float64{0.00001, 0.0001, 0.001, 0.01, 0.1}).WithLabelValues(),
		flaggedMovementsTotal: f.counter("classifier", "flagged_movements_total",
			"Flagged movements by kind (native_spam, token_low_value)", "kind"),
		suspiciousLogsTotal: f.counter("classifier", "suspicious_log_lines_total",
			"Log lines containing characters outside the allowed set").WithLabelValues(),

		scanWorkflowDuration: f.histogram("scan", "workflow_duration_seconds",
			"Wallet scan workflow run time by status", []float64{1, 5, 10, 30, 60, 120, 300}, "status"),
		scanWorkflowExecutionsTotal: f.counter("scan", "workflows_total",
			"Wallet scan workflow executions by status", "status"),
		scanActivityDuration: f.histogram("scan", "activity_duration_seconds",
			"Wallet scan activity run time", []float64{0.1, 0.5, 1, 5, 10, 30, 60}, "activity"),

		dbQueryDuration: f.histogram("db", "query_duration_seconds",
			"Report store query latency", []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}, "operation", "table"),
		dbOperationsTotal: f.counter("db", "operations_total",
			"Report store operations by status", "operation", "status"),

		httpRequestDuration: f.histogram("http", "request_duration_seconds",
			"API request latency", []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}, "handler", "method", "status"),
		httpRequestsTotal: f.counter("http", "requests_total",
			"API requests by route, method and status class", "handler", "method", "status"),
		sseActiveConnections: f.gauge("sse", "active_connections",
			"Open report streams by signer filter", "signer"),
		sseEventsSent: f.counter("sse", "events_total",
			"Report stream events written", "signer", "event_type"),

		natsMessagesPublished: f.counter("nats", "published_total",
			"Report events published by subject and status", "subject", "status"),
		natsPublishDuration: f.histogram("nats", "publish_duration_seconds",
			"Report event publish latency", []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5}, "subject"),
	}
}

type factory struct {
	promauto.Factory
}

func (f factory) counter(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

func (f factory) histogram(subsystem, name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help, Buckets: buckets,
	}, labels)
}

func (f factory) gauge(subsystem, name, help string, labels ...string) *prometheus.GaugeVec {
	return f.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

// Solana RPC metric helpers

// RecordRPCCall records a Solana RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordRateLimitHit records a rate limit hit (429 error).
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	m.solanaRPCRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordRPCRetry records a retry attempt.
func (m *Metrics) RecordRPCRetry(method, reason string) {
	m.solanaRPCRetries.WithLabelValues(method, reason).Inc()
}

// RecordRPCSignaturesPerCall records the number of signatures fetched.
func (m *Metrics) RecordRPCSignaturesPerCall(endpoint string, count float64) {
	m.solanaRPCSignaturesPerCall.WithLabelValues(endpoint).Observe(count)
}

// RecordCacheLookup records a raw record cache lookup ("hit", "miss" or "error").
func (m *Metrics) RecordCacheLookup(result string) {
	m.cacheRequestsTotal.WithLabelValues(result).Inc()
}

// Classification metric helpers

// RecordClassification records one classification attempt.
func (m *Metrics) RecordClassification(status string, duration float64) {
	m.classificationsTotal.WithLabelValues(status).Inc()
	m.classificationDuration.Observe(duration)
}

// RecordFlagged records the flagged movements and suspicious log lines of an outcome.
func (m *Metrics) RecordFlagged(nativeSpam, tokenLowValue, suspiciousLogs int) {
	m.flaggedMovementsTotal.WithLabelValues("native_spam").Add(float64(nativeSpam))
	m.flaggedMovementsTotal.WithLabelValues("token_low_value").Add(float64(tokenLowValue))
	m.suspiciousLogsTotal.Add(float64(suspiciousLogs))
}

// Workflow metric helpers

// RecordWorkflowDuration records workflow execution duration.
func (m *Metrics) RecordWorkflowDuration(status string, duration float64) {
	m.scanWorkflowDuration.WithLabelValues(status).Observe(duration)
	m.scanWorkflowExecutionsTotal.WithLabelValues(status).Inc()
}

// RecordActivityDuration records activity execution duration.
func (m *Metrics) RecordActivityDuration(activity string, duration float64) {
	m.scanActivityDuration.WithLabelValues(activity).Observe(duration)
}

// Database metric helpers

// RecordDBQuery records a database query with duration.
func (m *Metrics) RecordDBQuery(operation, table string, duration float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.dbQueryDuration.WithLabelValues(operation, table).Observe(duration)
	m.dbOperationsTotal.WithLabelValues(operation, status).Inc()
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// RecordSSEConnectionChange records a change in SSE connection count.
func (m *Metrics) RecordSSEConnectionChange(signer string, delta float64) {
	m.sseActiveConnections.WithLabelValues(signer).Add(delta)
}

// RecordSSEEventSent records an SSE event being sent.
func (m *Metrics) RecordSSEEventSent(signer, eventType string) {
	m.sseEventsSent.WithLabelValues(signer, eventType).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
