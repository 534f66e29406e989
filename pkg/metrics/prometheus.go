// Package metrics provides Prometheus metrics for the Cadence practice service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Manager owns all Prometheus instruments for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Pipeline metrics - the record -> upload -> analyze flow.
	sessionsCreated   prometheus.Counter
	uploadsCompleted  prometheus.Counter
	uploadErrors      prometheus.Counter
	analysesCompleted prometheus.Counter
	analysisErrors    *prometheus.CounterVec
	encodeDuration    prometheus.Histogram
	classifierLatency prometheus.Histogram

	// Queue metrics - analysis job queue.
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueues    prometheus.Counter
	queueDequeues    prometheus.Counter
	queueEnqueueErrs prometheus.Counter

	// Worker metrics.
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP metrics.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Store metrics.
	totalSessions prometheus.Gauge

	// System metrics.
	systemMemoryBytes prometheus.Gauge
	systemGoroutines  prometheus.Gauge
	systemGCPause     prometheus.Histogram
}

// Global metrics manager instance backed by a custom registry so the
// default Go collectors do not leak into /healthz.
var (
	globalManager  *Manager              //nolint:gochecknoglobals // singleton metrics manager
	customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry
)

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cadence",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	m.sessionsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sessions_created_total",
		Help: "Number of recording sessions created.",
	})
	m.uploadsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "uploads_completed_total",
		Help: "Number of recordings uploaded to the blob store.",
	})
	m.uploadErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "upload_errors_total",
		Help: "Number of failed upload attempts.",
	})
	m.analysesCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "analyses_completed_total",
		Help: "Number of sessions analyzed by the classifier.",
	})
	m.analysisErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "analysis_errors_total",
		Help: "Number of failed analysis attempts by failure kind.",
	}, []string{"kind"})
	m.encodeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "wav_encode_duration_ms",
		Help:    "WAV encoding duration in milliseconds.",
		Buckets: m.histogramBuckets,
	})
	m.classifierLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "classifier_latency_ms",
		Help:    "Classifier round-trip latency in milliseconds.",
		Buckets: m.histogramBuckets,
	})

	m.queueSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "queue",
		Name: "size",
		Help: "Current number of queued analysis jobs.",
	})
	m.queueCapacity = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "queue",
		Name: "capacity",
		Help: "Configured capacity of the analysis queue.",
	})
	m.queueUtilization = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "queue",
		Name: "utilization",
		Help: "Queue utilization ratio (size/capacity).",
	})
	m.queueEnqueues = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "queue",
		Name: "enqueues_total",
		Help: "Number of jobs enqueued.",
	})
	m.queueDequeues = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "queue",
		Name: "dequeues_total",
		Help: "Number of jobs dequeued.",
	})
	m.queueEnqueueErrs = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "queue",
		Name: "enqueue_errors_total",
		Help: "Number of rejected enqueue attempts.",
	})

	m.workerCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "worker",
		Name: "count",
		Help: "Number of analysis workers.",
	})
	m.workerProcessingLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "worker",
		Name:    "processing_latency_ms",
		Help:    "Per-job processing latency in milliseconds.",
		Buckets: m.histogramBuckets,
	})
	m.workerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "worker",
		Name: "errors_total",
		Help: "Number of jobs that failed processing.",
	})

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http",
		Name: "requests_total",
		Help: "HTTP requests by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "http",
		Name:    "request_duration_ms",
		Help:    "HTTP request duration in milliseconds.",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})

	m.totalSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "store",
		Name: "sessions",
		Help: "Number of sessions tracked in the store.",
	})

	m.systemMemoryBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system",
		Name: "memory_bytes",
		Help: "Heap bytes currently allocated.",
	})
	m.systemGoroutines = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system",
		Name: "goroutines",
		Help: "Number of live goroutines.",
	})
	m.systemGCPause = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "system",
		Name:    "gc_pause_ms",
		Help:    "Average GC pause time in milliseconds.",
		Buckets: m.histogramBuckets,
	})

	m.registry.MustRegister(
		m.sessionsCreated, m.uploadsCompleted, m.uploadErrors,
		m.analysesCompleted, m.analysisErrors,
		m.encodeDuration, m.classifierLatency,
		m.queueSize, m.queueCapacity, m.queueUtilization,
		m.queueEnqueues, m.queueDequeues, m.queueEnqueueErrs,
		m.workerCount, m.workerProcessingLatency, m.workerErrors,
		m.httpRequests, m.httpRequestDuration,
		m.totalSessions,
		m.systemMemoryBytes, m.systemGoroutines, m.systemGCPause,
	)
}

// GetRegistry returns the registry serving /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Pipeline metrics.

func RecordSessionCreated()  { globalManager.sessionsCreated.Inc() }
func RecordUploadCompleted() { globalManager.uploadsCompleted.Inc() }
func RecordUploadError()     { globalManager.uploadErrors.Inc() }
func RecordAnalysisCompleted() {
	globalManager.analysesCompleted.Inc()
}

// RecordAnalysisError records a failed analysis by failure kind,
// e.g. "transient" or "rejected".
func RecordAnalysisError(kind string) {
	globalManager.analysisErrors.WithLabelValues(kind).Inc()
}

func RecordEncodeDuration(ms float64)    { globalManager.encodeDuration.Observe(ms) }
func RecordClassifierLatency(ms float64) { globalManager.classifierLatency.Observe(ms) }

// Queue metrics.

func UpdateQueueSize(n int)             { globalManager.queueSize.Set(float64(n)) }
func UpdateQueueCapacity(n int)         { globalManager.queueCapacity.Set(float64(n)) }
func UpdateQueueUtilization(r float64)  { globalManager.queueUtilization.Set(r) }
func RecordQueueEnqueue()               { globalManager.queueEnqueues.Inc() }
func RecordQueueDequeue()               { globalManager.queueDequeues.Inc() }
func RecordQueueEnqueueError()          { globalManager.queueEnqueueErrs.Inc() }

// Worker metrics.

func UpdateWorkerCount(n int)                  { globalManager.workerCount.Set(float64(n)) }
func RecordWorkerProcessingLatency(ms float64) { globalManager.workerProcessingLatency.Observe(ms) }
func RecordWorkerError()                       { globalManager.workerErrors.Inc() }

// HTTP metrics.

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, status string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(ms)
}

// Store metrics.

func UpdateTotalSessions(n int) { globalManager.totalSessions.Set(float64(n)) }

// System metrics.

func UpdateSystemMemoryUsage(bytes uint64)  { globalManager.systemMemoryBytes.Set(float64(bytes)) }
func UpdateSystemGoroutineCount(n int)      { globalManager.systemGoroutines.Set(float64(n)) }
func RecordSystemGCPauseTime(ms float64)    { globalManager.systemGCPause.Observe(ms) }
