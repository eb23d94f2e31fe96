package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/config"
	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/generation"
	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/metrics"
	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/pipeline"
	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/synthesis"
	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/transcription"
)

// uploadContentType is the only media type the ingestion gate accepts.
const uploadContentType = "audio/wav"

// Pipeline runs one voice round trip for an uploaded WAV
type Pipeline interface {
	Run(ctx context.Context, rawUpload []byte) (*pipeline.ResponsePayload, error)
	GetStats() pipeline.Stats
}

// TranscriptionStats exposes recognizer client statistics
type TranscriptionStats interface {
	GetStats() transcription.Stats
}

// GenerationStats exposes generator statistics
type GenerationStats interface {
	GetStats() generation.Stats
}

// SynthesisStats exposes text-to-speech client statistics
type SynthesisStats interface {
	GetStats() synthesis.Stats
}

// HTTPServer provides the device-facing upload endpoint and the
// monitoring API
type HTTPServer struct {
	server   *http.Server
	logger   *slog.Logger
	config   *config.Config
	pipeline Pipeline
	metrics  *metrics.Metrics

	// Optional stats sources for /health and /stats
	transcription TranscriptionStats
	generation    GenerationStats
	synthesis     SynthesisStats

	startTime time.Time
}

// NewHTTPServer creates the HTTP server with all routes configured
func NewHTTPServer(cfg *config.Config, logger *slog.Logger, p Pipeline, m *metrics.Metrics,
	ts TranscriptionStats, gs GenerationStats, ss SynthesisStats) *HTTPServer {

	h := &HTTPServer{
		logger:        logger,
		config:        cfg,
		pipeline:      p,
		metrics:       m,
		transcription: ts,
		generation:    gs,
		synthesis:     ss,
		startTime:     time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port),
		Handler: mux,
		// No WriteTimeout: upload handling waits on two upstream speech
		// services and the generative API back to back.
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Device-facing voice round trip endpoint
	mux.HandleFunc("/upload", h.withMetrics("/upload", h.handleUpload))

	// Health check endpoint
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// Configuration endpoint
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Statistics endpoint
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP server...")

	return h.server.Shutdown(ctx)
}

// handleUpload implements the /upload endpoint. The ingestion gate is the
// only place a caller can get a 4xx: wrong content type, empty body, or a
// payload that does not parse as WAV. Past the gate the response is always
// a playable WAV, degraded or not.
func (h *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.metrics.RecordUpload()

	if r.Header.Get("Content-Type") != uploadContentType {
		h.metrics.RecordRejected("content_type")
		http.Error(w, "Invalid Content-Type. Expected audio/wav", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.config.HTTP.MaxUploadBytes))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.metrics.RecordRejected("too_large")
			http.Error(w, "Upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.metrics.RecordRejected("read_error")
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	if len(body) == 0 {
		h.metrics.RecordRejected("empty_body")
		http.Error(w, "No data received", http.StatusBadRequest)
		return
	}

	payload, err := h.pipeline.Run(r.Context(), body)
	if err != nil {
		var formatErr *pipeline.FormatError
		if errors.As(err, &formatErr) {
			http.Error(w, "Invalid audio data", http.StatusBadRequest)
			return
		}
		h.logger.Error("Pipeline run failed", slog.String("error", err.Error()))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", uploadContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%s", payload.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload.WAV); err != nil {
		h.logger.Warn("Failed to write response audio",
			slog.String("request_id", payload.RequestID),
			slog.String("error", err.Error()))
	}
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)
	pipelineStats := h.pipeline.GetStats()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "esp32-voice-bridge",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"pipeline": map[string]interface{}{
				"status":        "running",
				"runs":          pipelineStats.Runs,
				"degraded_runs": pipelineStats.DegradedRuns,
				"rejected":      pipelineStats.Rejected,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return sanitized configuration (remove sensitive data)
	sanitizedConfig := map[string]interface{}{
		"http": map[string]interface{}{
			"port":             h.config.HTTP.Port,
			"address":          h.config.HTTP.Address,
			"max_upload_bytes": h.config.HTTP.MaxUploadBytes,
		},
		"audio": map[string]interface{}{
			"sample_rate": h.config.Audio.SampleRate,
			"channels":    h.config.Audio.Channels,
			"bit_depth":   h.config.Audio.BitDepth,
		},
		"transcription": map[string]interface{}{
			"endpoint": h.config.Transcription.Endpoint,
			"language": h.config.Transcription.Language,
			"timeout":  h.config.Transcription.Timeout,
			// Note: API key is intentionally omitted for security
		},
		"generation": map[string]interface{}{
			"model":              h.config.Generation.Model,
			"temperature":        h.config.Generation.Temperature,
			"max_output_tokens":  h.config.Generation.MaxOutputTokens,
			"max_response_words": h.config.Generation.MaxResponseWords,
			// Note: API key is intentionally omitted for security
		},
		"synthesis": map[string]interface{}{
			"endpoint":        h.config.Synthesis.Endpoint,
			"language":        h.config.Synthesis.Language,
			"timeout":         h.config.Synthesis.Timeout,
			"max_chunk_chars": h.config.Synthesis.MaxChunkChars,
		},
		"artifacts": map[string]interface{}{
			"dir":               h.config.Artifacts.Dir,
			"response_filename": h.config.Artifacts.ResponseFilename,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)

	stats := map[string]interface{}{
		"uptime":    uptime.String(),
		"timestamp": time.Now().UTC(),
		"pipeline":  h.pipeline.GetStats(),
	}
	if h.transcription != nil {
		stats["transcription"] = h.transcription.GetStats()
	}
	if h.generation != nil {
		stats["generation"] = h.generation.GetStats()
	}
	if h.synthesis != nil {
		stats["synthesis"] = h.synthesis.GetStats()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "ESP32 Voice Bridge",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"POST /upload": "Voice round trip: WAV in, response WAV out",
			"GET /":        "API documentation",
			"GET /health":  "Service health check",
			"GET /config":  "Get service configuration",
			"GET /stats":   "Get service statistics",
			"GET /metrics": "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
