// Package metrics provides Prometheus metrics for the docrisk service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// riskScoreBuckets cover [0,1] with the band edges as bucket bounds.
var riskScoreBuckets = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0} //nolint:gochecknoglobals // static bucket layout

// Manager manages all Prometheus metrics for the docrisk service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Analysis
	documentsAnalyzed  prometheus.Counter
	documentsDuplicate prometheus.Counter
	decodeFailures     prometheus.Counter
	analysisLatency    prometheus.Histogram
	analysisErrors     *prometheus.CounterVec
	categoryFlags      *prometheus.CounterVec
	categorySkipped    *prometheus.CounterVec
	detectorDefaulted  *prometheus.CounterVec
	riskScore          prometheus.Histogram
	riskBand           *prometheus.CounterVec
	metadataSuspicions prometheus.Counter

	// Ensemble
	ensembleScores        *prometheus.CounterVec
	ensembleLatency       prometheus.Histogram
	featureLookupRetries  prometheus.Counter
	featureLookupFailures *prometheus.CounterVec

	// Pipeline
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec
	workerCount        prometheus.Gauge
	workerLatency      prometheus.Histogram
	workerErrors       prometheus.Counter
	reportsStored      prometheus.Gauge
	publishErrors      prometheus.Counter
	reportsPublished   prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "docrisk",
		subsystem:        "forensics",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix != "" {
		return m.metricPrefix + "_" + n
	}
	return n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	m.documentsAnalyzed = m.counter("documents_analyzed_total", "Total number of documents analyzed")
	m.documentsDuplicate = m.counter("documents_duplicate_total", "Total number of duplicate document submissions")
	m.decodeFailures = m.counter("decode_failures_total", "Documents whose raster could not be decoded")
	m.analysisLatency = m.histogram("analysis_latency_milliseconds", "Full document analysis latency in milliseconds", m.histogramBuckets)
	m.analysisErrors = m.counterVec("analysis_errors_total", "Analysis requests rejected by reason", "reason")
	m.categoryFlags = m.counterVec("check_flags_total", "Suspicious checks by category and check", "category", "check")
	m.categorySkipped = m.counterVec("category_skipped_total", "Categories not assessed by category and reason", "category", "reason")
	m.detectorDefaulted = m.counterVec("detector_defaulted_total", "Detector computations that failed open", "category", "check")
	m.riskScore = m.histogram("risk_score", "Distribution of aggregated risk scores", riskScoreBuckets)
	m.riskBand = m.counterVec("risk_band_total", "Documents by risk band", "band")
	m.metadataSuspicions = m.counter("metadata_suspicions_total", "Metadata suspicions raised")

	m.ensembleScores = m.counterVec("ensemble_scores_total", "Ensemble scoring outcomes", "outcome")
	m.ensembleLatency = m.histogram("ensemble_latency_milliseconds", "Ensemble scoring latency in milliseconds", m.histogramBuckets)
	m.featureLookupRetries = m.counter("feature_lookup_retries_total", "Feature row lookups that were retried")
	m.featureLookupFailures = m.counterVec("feature_lookup_failures_total", "Feature row lookup failures by kind", "kind")

	m.queueSize = m.gauge("queue_size", "Current number of queued documents")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum capacity of the document queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization (0.0 to 1.0)")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Documents enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Documents dequeued")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Enqueue failures by reason", "reason")
	m.workerCount = m.gauge("worker_count", "Number of analysis workers")
	m.workerLatency = m.histogram("worker_processing_latency_milliseconds", "Worker processing latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Worker processing errors")
	m.reportsStored = m.gauge("reports_stored", "Reports currently held by the report store")
	m.reportsPublished = m.counter("reports_published_total", "Reports published to the event stream")
	m.publishErrors = m.counter("publish_errors_total", "Report publish failures")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.errorRateByEndpoint = m.counterVec("http_errors_total", "HTTP errors by endpoint, method and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Allocated heap memory in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
}

// Analysis.

// RecordDocumentAnalyzed increments the analyzed documents counter.
func RecordDocumentAnalyzed() {
	globalManager.documentsAnalyzed.Inc()
}

// RecordDocumentDuplicate increments the duplicate submissions counter.
func RecordDocumentDuplicate() {
	globalManager.documentsDuplicate.Inc()
}

// RecordDecodeFailure counts a document whose raster could not be produced.
func RecordDecodeFailure() {
	globalManager.decodeFailures.Inc()
}

// RecordAnalysisLatency records full analysis latency.
func RecordAnalysisLatency(latencyMs float64) {
	globalManager.analysisLatency.Observe(latencyMs)
}

// RecordAnalysisError counts a rejected analysis by reason.
func RecordAnalysisError(reason string) {
	globalManager.analysisErrors.WithLabelValues(reason).Inc()
}

// RecordCheckFlag counts a suspicious check.
func RecordCheckFlag(category, check string) {
	globalManager.categoryFlags.WithLabelValues(category, check).Inc()
}

// RecordCategorySkipped counts a category that was not assessed.
func RecordCategorySkipped(category, reason string) {
	globalManager.categorySkipped.WithLabelValues(category, reason).Inc()
}

// RecordDetectorDefaulted counts a check that failed open.
func RecordDetectorDefaulted(category, check string) {
	globalManager.detectorDefaulted.WithLabelValues(category, check).Inc()
}

// RecordRiskScore observes an aggregated risk score.
func RecordRiskScore(score float64) {
	globalManager.riskScore.Observe(score)
}

// RecordRiskBand counts a report by its band.
func RecordRiskBand(band string) {
	globalManager.riskBand.WithLabelValues(band).Inc()
}

// RecordMetadataSuspicions adds n metadata suspicions.
func RecordMetadataSuspicions(n int) {
	globalManager.metadataSuspicions.Add(float64(n))
}

// Ensemble.

// RecordEnsembleScore counts an ensemble outcome: fraud, clean, not_found, schema_mismatch, error.
func RecordEnsembleScore(outcome string) {
	globalManager.ensembleScores.WithLabelValues(outcome).Inc()
}

// RecordEnsembleLatency records ensemble scoring latency.
func RecordEnsembleLatency(latencyMs float64) {
	globalManager.ensembleLatency.Observe(latencyMs)
}

// RecordFeatureLookupRetry counts a retried feature lookup.
func RecordFeatureLookupRetry() {
	globalManager.featureLookupRetries.Inc()
}

// RecordFeatureLookupFailure counts a failed feature lookup by kind.
func RecordFeatureLookupFailure(kind string) {
	globalManager.featureLookupFailures.WithLabelValues(kind).Inc()
}

// Pipeline.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts an enqueue failure by reason.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the number of workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// UpdateReportsStored sets the report store size.
func UpdateReportsStored(count int) {
	globalManager.reportsStored.Set(float64(count))
}

// RecordReportPublished counts a published report.
func RecordReportPublished() {
	globalManager.reportsPublished.Inc()
}

// RecordPublishError counts a publish failure.
func RecordPublishError() {
	globalManager.publishErrors.Inc()
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RefreshInterval returns how often periodic gauges should be refreshed.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}
