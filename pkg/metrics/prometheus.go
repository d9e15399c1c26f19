// Package metrics provides Prometheus metrics for the Arryn offers API.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion outcomes used as the "outcome" label.
const (
	IngestReceived  = "received"
	IngestRejected  = "rejected"
	IngestDuplicate = "duplicate"
	IngestStored    = "stored"
	IngestDropped   = "dropped"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
	rateLimited         prometheus.Counter
	cacheLookups        *prometheus.CounterVec

	// Ingestion pipeline
	ingestDocuments *prometheus.CounterVec
	queueSize       prometheus.Gauge
	queueCapacity   prometheus.Gauge
	queueUtil       prometheus.Gauge
	queueEnqueued   prometheus.Counter
	queueDequeued   prometheus.Counter
	queueRejected   prometheus.Counter
	workerActive    prometheus.Gauge
	workerBatches   prometheus.Counter
	workerErrors    prometheus.Counter
	workerLatency   prometheus.Histogram

	// Data source and engines
	documentsTotal prometheus.Gauge
	sourceLatency  *prometheus.HistogramVec
	sourceErrors   *prometheus.CounterVec
	engineLatency  *prometheus.HistogramVec
	configReloads  *prometheus.CounterVec

	// Runtime
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // exposition registry

var globalManager atomic.Pointer[Manager] //nolint:gochecknoglobals // process-wide metrics

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager.Store(NewManager(WithPrometheusRegistry(customRegistry)))
}

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "arryn",
		subsystem:        "api",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// SetGlobal replaces the manager used by the package-level functions.
func SetGlobal(m *Manager) error {
	if m == nil {
		return ErrNoManager
	}
	globalManager.Store(m)
	return nil
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpErrors = auto.NewCounterVec(
		m.counterOpts("http_errors_total", "HTTP error responses by endpoint and error code"),
		[]string{"endpoint", "code"},
	)
	m.rateLimited = auto.NewCounter(
		m.counterOpts("rate_limited_total", "Requests rejected by the per-client rate limiter"),
	)
	m.cacheLookups = auto.NewCounterVec(
		m.counterOpts("response_cache_lookups_total", "Response cache lookups by result"),
		[]string{"result"},
	)

	m.ingestDocuments = auto.NewCounterVec(
		m.counterOpts("ingest_documents_total", "Scraped documents seen by the ingestion pipeline, by outcome"),
		[]string{"outcome"},
	)
	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Documents waiting in the ingestion queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Ingestion queue capacity"))
	m.queueUtil = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Ingestion queue size / capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Documents enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Documents dequeued"))
	m.queueRejected = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Enqueue attempts refused because the queue was full or closed"))
	m.workerActive = auto.NewGauge(m.gaugeOpts("worker_active_count", "Running ingestion workers"))
	m.workerBatches = auto.NewCounter(m.counterOpts("worker_batches_total", "Batches flushed to the data source"))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Batches that failed to persist"))
	m.workerLatency = auto.NewHistogram(
		m.histogramOpts("worker_batch_latency_milliseconds", "Time to persist one batch in milliseconds"),
	)

	m.documentsTotal = auto.NewGauge(m.gaugeOpts("documents_total", "Documents held by the data source"))
	m.sourceLatency = auto.NewHistogramVec(
		m.histogramOpts("source_query_latency_milliseconds", "Data source call latency in milliseconds"),
		[]string{"operation"},
	)
	m.sourceErrors = auto.NewCounterVec(
		m.counterOpts("source_errors_total", "Failed data source calls by operation"),
		[]string{"operation"},
	)
	m.engineLatency = auto.NewHistogramVec(
		m.histogramOpts("engine_latency_milliseconds", "Scoring and statistics computation latency in milliseconds"),
		[]string{"operation"},
	)
	m.configReloads = auto.NewCounterVec(
		m.counterOpts("config_reloads_total", "Configuration file reloads by result"),
		[]string{"result"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	gc := m.histogramOpts("system_gc_pause_time_milliseconds", "Average GC pause time in milliseconds")
	gc.Buckets = []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}
	m.systemGCPauseTime = auto.NewHistogram(gc)
}

func get() *Manager { return globalManager.Load() }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	get().httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	get().httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError counts an error response by its error code.
func RecordHTTPError(endpoint, code string) {
	get().httpErrors.WithLabelValues(endpoint, code).Inc()
}

// RecordRateLimited counts a request refused by the rate limiter.
func RecordRateLimited() { get().rateLimited.Inc() }

// RecordCacheHit counts a response served from cache.
func RecordCacheHit() { get().cacheLookups.WithLabelValues("hit").Inc() }

// RecordCacheMiss counts a cacheable request that had to be computed.
func RecordCacheMiss() { get().cacheLookups.WithLabelValues("miss").Inc() }

// RecordIngest adds n documents under the given outcome.
func RecordIngest(outcome string, n int) {
	if n <= 0 {
		return
	}
	get().ingestDocuments.WithLabelValues(outcome).Add(float64(n))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { get().queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { get().queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { get().queueUtil.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { get().queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { get().queueDequeued.Inc() }

// RecordQueueEnqueueError increments the refused-enqueue counter.
func RecordQueueEnqueueError() { get().queueRejected.Inc() }

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) { get().workerActive.Set(float64(count)) }

// RecordWorkerBatch records a persisted batch and its latency.
func RecordWorkerBatch(latencyMs float64) {
	m := get()
	m.workerBatches.Inc()
	m.workerLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { get().workerErrors.Inc() }

// UpdateDocumentsTotal sets the number of stored documents.
func UpdateDocumentsTotal(count int) { get().documentsTotal.Set(float64(count)) }

// RecordSourceLatency records a data source call.
func RecordSourceLatency(operation string, latencyMs float64) {
	get().sourceLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordSourceError counts a failed data source call.
func RecordSourceError(operation string) {
	get().sourceErrors.WithLabelValues(operation).Inc()
}

// RecordEngineLatency records a scoring or statistics computation.
func RecordEngineLatency(operation string, latencyMs float64) {
	get().engineLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordConfigReload counts a configuration reload attempt.
func RecordConfigReload(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	get().configReloads.WithLabelValues(result).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { get().systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { get().systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { get().systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the registry served on the metrics endpoint.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
