package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/audio"
	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/generation"
	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/metrics"
	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/synthesis"
	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/transcription"
)

// Transcriber converts WAV audio to text
type Transcriber interface {
	Transcribe(ctx context.Context, wavData []byte, language string) *transcription.Transcript
}

// Responder generates a reply for a transcript
type Responder interface {
	Respond(ctx context.Context, text string) *generation.Exchange
}

// Synthesizer converts reply text to an audio clip
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) *synthesis.Result
}

// FormatError reports an upload that failed WAV validation. The HTTP layer
// maps it to a client error; nothing else in the pipeline produces one.
type FormatError struct {
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid audio format: %v", e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Config carries the orchestrator's per-deployment settings
type Config struct {
	TranscribeLanguage string
	SynthesisLanguage  string
	Profile            audio.TargetProfile
	ResponseFilename   string
}

// ResponsePayload is the result of one pipeline run
type ResponsePayload struct {
	RequestID  string
	WAV        []byte
	Filename   string
	Transcript *transcription.Transcript
	Exchange   *generation.Exchange
	Degraded   bool
}

// Orchestrator runs the transcribe/generate/synthesize/encode pipeline
type Orchestrator struct {
	config      Config
	logger      *slog.Logger
	metrics     *metrics.Metrics
	store       *ArtifactStore
	transcriber Transcriber
	responder   Responder
	synthesizer Synthesizer

	statsMutex sync.RWMutex
	stats      Stats
}

// Stats tracks pipeline statistics
type Stats struct {
	Runs         uint64    `json:"runs"`
	DegradedRuns uint64    `json:"degraded_runs"`
	Rejected     uint64    `json:"rejected"`
	LastRun      time.Time `json:"last_run"`
}

// NewOrchestrator creates a pipeline orchestrator
func NewOrchestrator(cfg Config, logger *slog.Logger, m *metrics.Metrics, store *ArtifactStore,
	t Transcriber, r Responder, s Synthesizer) *Orchestrator {
	return &Orchestrator{
		config:      cfg,
		logger:      logger,
		metrics:     m,
		store:       store,
		transcriber: t,
		responder:   r,
		synthesizer: s,
	}
}

// Run executes one voice round trip. The raw upload must be a parseable
// WAV file; anything else returns a FormatError before any stage runs.
// Past that gate, Run always returns a playable response WAV.
func (o *Orchestrator) Run(ctx context.Context, rawUpload []byte) (*ResponsePayload, error) {
	start := time.Now()

	clip, err := audio.DecodeWAV(rawUpload)
	if err != nil {
		o.statsMutex.Lock()
		o.stats.Rejected++
		o.statsMutex.Unlock()
		o.metrics.RecordRejected("malformed_wav")
		return nil, &FormatError{Err: err}
	}

	requestID := uuid.NewString()
	logger := o.logger.With("request_id", requestID)

	logger.Info("Upload accepted",
		"bytes", len(rawUpload),
		"sample_rate", clip.SampleRate,
		"channels", clip.Channels,
		"duration_seconds", clip.Duration())
	o.metrics.RecordUploadDuration(clip.Duration())

	if _, err := o.store.Save(requestID, ArtifactUpload, rawUpload); err != nil {
		// Persistence is best-effort; the round trip continues without it.
		logger.Warn("Failed to persist upload artifact", "error", err)
	}

	degraded := false

	stageStart := time.Now()
	transcript := o.transcriber.Transcribe(ctx, rawUpload, o.config.TranscribeLanguage)
	o.metrics.RecordStage("transcribe", time.Since(stageStart).Seconds())
	if transcript.Degraded {
		degraded = true
		o.metrics.RecordDegradation("transcribe", transcript.Reason)
		logger.Warn("Transcription degraded", "reason", transcript.Reason)
	} else {
		logger.Info("Transcription completed",
			"text", transcript.Text,
			"confidence", transcript.Confidence)
	}

	stageStart = time.Now()
	exchange := o.responder.Respond(ctx, transcript.Text)
	o.metrics.RecordStage("generate", time.Since(stageStart).Seconds())
	if exchange.Degraded {
		degraded = true
		o.metrics.RecordDegradation("generate", exchange.Reason)
		logger.Warn("Generation degraded", "reason", exchange.Reason)
	} else {
		logger.Info("Reply generated",
			"response", exchange.Response,
			"truncated", exchange.Truncated)
	}

	stageStart = time.Now()
	speech := o.synthesizer.Synthesize(ctx, exchange.Response, o.config.SynthesisLanguage)
	o.metrics.RecordStage("synthesize", time.Since(stageStart).Seconds())
	if speech.Degraded {
		degraded = true
		o.metrics.RecordDegradation("synthesize", speech.Reason)
		logger.Warn("Synthesis degraded", "reason", speech.Reason)
	}

	stageStart = time.Now()
	wav := audio.Encode(speech.Clip, o.config.Profile)
	o.metrics.RecordStage("encode", time.Since(stageStart).Seconds())

	if _, err := o.store.Save(requestID, ArtifactResponse, wav); err != nil {
		logger.Warn("Failed to persist response artifact", "error", err)
	}

	elapsed := time.Since(start)
	o.metrics.RecordPipelineRun(elapsed.Seconds(), len(wav))

	o.statsMutex.Lock()
	o.stats.Runs++
	if degraded {
		o.stats.DegradedRuns++
	}
	o.stats.LastRun = time.Now()
	o.statsMutex.Unlock()

	logger.Info("Pipeline completed",
		"duration", elapsed,
		"response_bytes", len(wav),
		"degraded", degraded)

	return &ResponsePayload{
		RequestID:  requestID,
		WAV:        wav,
		Filename:   o.config.ResponseFilename,
		Transcript: transcript,
		Exchange:   exchange,
		Degraded:   degraded,
	}, nil
}

// GetStats returns a copy of the current pipeline statistics
func (o *Orchestrator) GetStats() Stats {
	o.statsMutex.RLock()
	defer o.statsMutex.RUnlock()
	return o.stats
}
