// Package metrics provides Prometheus metrics for the duelcard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Render latencies sit in the tens to hundreds of milliseconds.
var defaultLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

// Manager manages all Prometheus metrics for the duelcard service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Arbitration
	comparisons      *prometheus.CounterVec
	invalidScoreData prometheus.Counter

	// Rendering
	cardRenders        *prometheus.CounterVec
	cardRenderDuration *prometheus.HistogramVec
	assetFallbacks     *prometheus.CounterVec
	avatarFetchFailure prometheus.Counter

	// Challenges
	championUpdates   prometheus.Counter
	championConflicts prometheus.Counter
	totalChallenges   prometheus.Gauge

	// Submission pipeline
	submissionsEnqueued  prometheus.Counter
	submissionsDuplicate prometheus.Counter
	queueSize            prometheus.Gauge
	queueCapacity        prometheus.Gauge
	queueEnqueueErrors   *prometheus.CounterVec
	workerCount          prometheus.Gauge
	workerLatency        prometheus.Histogram
	workerErrors         *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "duelcard",
		subsystem:        "engine",
		histogramBuckets: defaultLatencyBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.comparisons = m.counterVec("comparisons_total", "Score comparisons by outcome", "outcome")
	m.invalidScoreData = m.counter("invalid_score_data_total", "Comparisons rejected because of malformed score data")

	m.cardRenders = m.counterVec("card_renders_total", "Rendered cards by mode", "mode")
	m.cardRenderDuration = m.histogramVec("card_render_duration_milliseconds", "Card render duration in milliseconds", "mode")
	m.assetFallbacks = m.counterVec("asset_fallbacks_total", "Auxiliary assets replaced by a fallback", "asset")
	m.avatarFetchFailure = m.counter("avatar_fetch_failures_total", "Avatar downloads that exhausted their retries")

	m.championUpdates = m.counter("champion_updates_total", "Champions replaced after a responder win")
	m.championConflicts = m.counter("champion_conflicts_total", "Conditional champion updates that lost a race")
	m.totalChallenges = m.gauge("challenges", "Challenges currently tracked by the store")

	m.submissionsEnqueued = m.counter("submissions_enqueued_total", "Responder submissions accepted into the queue")
	m.submissionsDuplicate = m.counter("submissions_duplicate_total", "Responder submissions dropped as duplicates")
	m.queueSize = m.gauge("queue_size", "Current number of queued submissions")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of queued submissions")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Rejected enqueue attempts by reason", "reason")
	m.workerCount = m.gauge("worker_count", "Number of submission workers")
	m.workerLatency = m.histogram("worker_processing_latency_milliseconds", "Submission resolution latency in milliseconds")
	m.workerErrors = m.counterVec("worker_errors_total", "Submission resolution failures by stage", "stage")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint, method and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds")
}

// RecordComparison counts a comparison by its outcome label.
func RecordComparison(outcome string) {
	globalManager.comparisons.WithLabelValues(outcome).Inc()
}

// RecordInvalidScoreData counts a rejected comparison input.
func RecordInvalidScoreData() {
	globalManager.invalidScoreData.Inc()
}

// RecordCardRender counts a render and observes its duration.
func RecordCardRender(mode string, durationMs float64) {
	globalManager.cardRenders.WithLabelValues(mode).Inc()
	globalManager.cardRenderDuration.WithLabelValues(mode).Observe(durationMs)
}

// RecordAssetFallback counts an asset that could not be used.
func RecordAssetFallback(asset string) {
	globalManager.assetFallbacks.WithLabelValues(asset).Inc()
}

// RecordAvatarFetchFailure counts an avatar download that gave up.
func RecordAvatarFetchFailure() {
	globalManager.avatarFetchFailure.Inc()
}

// RecordChampionUpdate counts a successful champion replacement.
func RecordChampionUpdate() {
	globalManager.championUpdates.Inc()
}

// RecordChampionConflict counts a stale conditional update.
func RecordChampionConflict() {
	globalManager.championConflicts.Inc()
}

// UpdateTotalChallenges sets the tracked challenge count.
func UpdateTotalChallenges(count int) {
	globalManager.totalChallenges.Set(float64(count))
}

// RecordSubmissionEnqueued counts an accepted submission.
func RecordSubmissionEnqueued() {
	globalManager.submissionsEnqueued.Inc()
}

// RecordSubmissionDuplicate counts a duplicate submission.
func RecordSubmissionDuplicate() {
	globalManager.submissionsDuplicate.Inc()
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the number of workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency observes one submission resolution.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed resolution stage.
func RecordWorkerError(stage string) {
	globalManager.workerErrors.WithLabelValues(stage).Inc()
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
