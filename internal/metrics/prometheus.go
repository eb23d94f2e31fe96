package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the voice bridge service
type Metrics struct {
	// Upload gate metrics
	UploadsReceived prometheus.Counter
	UploadsRejected *prometheus.CounterVec

	// Pipeline metrics
	PipelineRuns      prometheus.Counter
	PipelineDuration  prometheus.Histogram
	StageDuration     *prometheus.HistogramVec
	StageDegradations *prometheus.CounterVec
	ResponseBytes     prometheus.Histogram
	UploadDuration    prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		UploadsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_uploads_received_total",
			Help: "Total number of audio uploads received",
		}),
		UploadsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_uploads_rejected_total",
			Help: "Total number of uploads rejected at the ingestion gate",
		}, []string{"reason"}),

		PipelineRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_pipeline_runs_total",
			Help: "Total number of pipeline runs that passed the ingestion gate",
		}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bridge_pipeline_duration_seconds",
			Help:    "End-to-end duration of pipeline runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bridge_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}, []string{"stage"}),
		StageDegradations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_stage_degradations_total",
			Help: "Total number of stages that degraded to a fallback result",
		}, []string{"stage", "reason"}),
		ResponseBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bridge_response_bytes",
			Help:    "Size of encoded response WAV payloads in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),
		UploadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bridge_upload_audio_duration_seconds",
			Help:    "Duration of uploaded audio clips",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 0.25s to ~1 minute
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bridge_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordUpload increments the uploads received counter
func (m *Metrics) RecordUpload() {
	m.UploadsReceived.Inc()
}

// RecordRejected records an upload rejected at the ingestion gate
func (m *Metrics) RecordRejected(reason string) {
	m.UploadsRejected.WithLabelValues(reason).Inc()
}

// RecordPipelineRun records a completed pipeline run
func (m *Metrics) RecordPipelineRun(durationSeconds float64, responseBytes int) {
	m.PipelineRuns.Inc()
	m.PipelineDuration.Observe(durationSeconds)
	m.ResponseBytes.Observe(float64(responseBytes))
}

// RecordStage records the duration of one pipeline stage
func (m *Metrics) RecordStage(stage string, durationSeconds float64) {
	m.StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordDegradation records a stage falling back to a degraded result
func (m *Metrics) RecordDegradation(stage, reason string) {
	m.StageDegradations.WithLabelValues(stage, reason).Inc()
}

// RecordUploadDuration records the duration of an uploaded clip
func (m *Metrics) RecordUploadDuration(seconds float64) {
	m.UploadDuration.Observe(seconds)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
