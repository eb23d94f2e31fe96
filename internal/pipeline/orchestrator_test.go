package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/audio"
	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/generation"
	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/metrics"
	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/synthesis"
	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/transcription"
)

// Prometheus collectors register globally, so the test binary shares one set.
var testMetrics = metrics.NewMetrics()

type stubTranscriber struct {
	calls  int
	result *transcription.Transcript
}

func (s *stubTranscriber) Transcribe(ctx context.Context, wavData []byte, language string) *transcription.Transcript {
	s.calls++
	return s.result
}

type stubResponder struct {
	calls    int
	lastText string
	result   *generation.Exchange
}

func (s *stubResponder) Respond(ctx context.Context, text string) *generation.Exchange {
	s.calls++
	s.lastText = text
	return s.result
}

type stubSynthesizer struct {
	calls    int
	lastText string
	result   *synthesis.Result
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, text, language string) *synthesis.Result {
	s.calls++
	s.lastText = text
	return s.result
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testUploadWAV(t *testing.T) []byte {
	t.Helper()
	samples := make([]int16, 16000)
	for i := range samples {
		samples[i] = int16(i % 1000)
	}
	wav, err := audio.EncodeWAV(samples, audio.TargetProfile{SampleRate: 16000, Channels: 1, BitDepth: 16})
	if err != nil {
		t.Fatalf("Failed to build test WAV: %v", err)
	}
	return wav
}

func speechClip(t *testing.T) *audio.Clip {
	t.Helper()
	samples := make([]int16, 8000)
	for i := range samples {
		samples[i] = int16((i % 200) * 50)
	}
	return audio.PCM16Clip(samples, 8000, 1)
}

func newTestOrchestrator(t *testing.T, tr *stubTranscriber, r *stubResponder, sy *stubSynthesizer) (*Orchestrator, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewArtifactStore(dir)
	if err != nil {
		t.Fatalf("Failed to create artifact store: %v", err)
	}
	o := NewOrchestrator(Config{
		TranscribeLanguage: "vi-VN",
		SynthesisLanguage:  "vi",
		Profile:            audio.DefaultTargetProfile,
		ResponseFilename:   "response_audio.wav",
	}, testLogger(), testMetrics, store, tr, r, sy)
	return o, dir
}

func TestRunHappyPath(t *testing.T) {
	tr := &stubTranscriber{result: &transcription.Transcript{Text: "xin chào", Confidence: 0.9}}
	r := &stubResponder{result: &generation.Exchange{Response: "chào bạn"}}
	sy := &stubSynthesizer{result: &synthesis.Result{Clip: speechClip(t)}}

	o, dir := newTestOrchestrator(t, tr, r, sy)
	payload, err := o.Run(context.Background(), testUploadWAV(t))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if payload.Degraded {
		t.Error("Expected non-degraded payload")
	}
	if payload.RequestID == "" {
		t.Error("Expected request ID")
	}
	if r.lastText != "xin chào" {
		t.Errorf("Expected transcript text forwarded to responder, got %q", r.lastText)
	}
	if sy.lastText != "chào bạn" {
		t.Errorf("Expected reply text forwarded to synthesizer, got %q", sy.lastText)
	}

	info, err := audio.GetWAVInfo(payload.WAV)
	if err != nil {
		t.Fatalf("Response is not a valid WAV: %v", err)
	}
	if info.SampleRate != 8000 || info.Channels != 1 || info.BitsPerSample != 8 {
		t.Errorf("Response profile mismatch: %d Hz, %d ch, %d bit",
			info.SampleRate, info.Channels, info.BitsPerSample)
	}

	for _, kind := range []string{ArtifactUpload, ArtifactResponse} {
		path := filepath.Join(dir, payload.RequestID+"_"+kind+".wav")
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Expected %s artifact at %s: %v", kind, path, err)
		}
	}
}

func TestRunDegradedTranscription(t *testing.T) {
	tr := &stubTranscriber{result: &transcription.Transcript{
		Text: "Error: Could not understand audio", Degraded: true, Reason: "unintelligible",
	}}
	r := &stubResponder{result: &generation.Exchange{Response: "không hiểu"}}
	sy := &stubSynthesizer{result: &synthesis.Result{Clip: speechClip(t)}}

	o, _ := newTestOrchestrator(t, tr, r, sy)
	payload, err := o.Run(context.Background(), testUploadWAV(t))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !payload.Degraded {
		t.Error("Expected degraded payload")
	}
	// The diagnostic sentence still flows through the remaining stages.
	if r.calls != 1 || sy.calls != 1 {
		t.Errorf("Expected downstream stages to run, got responder=%d synthesizer=%d", r.calls, sy.calls)
	}
	if !strings.HasPrefix(r.lastText, "Error:") {
		t.Errorf("Expected diagnostic forwarded to responder, got %q", r.lastText)
	}
	if err := audio.ValidateWAV(payload.WAV); err != nil {
		t.Errorf("Degraded response must still be playable: %v", err)
	}
}

func TestRunDegradedGeneration(t *testing.T) {
	tr := &stubTranscriber{result: &transcription.Transcript{Text: "xin chào", Confidence: 0.9}}
	r := &stubResponder{result: &generation.Exchange{
		Response: "Error ChatbotResponse: rate limit exceeded", Degraded: true, Reason: "service_error",
	}}
	sy := &stubSynthesizer{result: &synthesis.Result{Clip: speechClip(t)}}

	o, _ := newTestOrchestrator(t, tr, r, sy)
	payload, err := o.Run(context.Background(), testUploadWAV(t))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !payload.Degraded {
		t.Error("Expected degraded payload")
	}
	// The diagnostic reply is still spoken back to the device.
	if sy.calls != 1 {
		t.Errorf("Expected synthesizer to run, got %d calls", sy.calls)
	}
	if !strings.HasPrefix(sy.lastText, "Error ChatbotResponse:") {
		t.Errorf("Expected diagnostic forwarded to synthesizer, got %q", sy.lastText)
	}
	if err := audio.ValidateWAV(payload.WAV); err != nil {
		t.Errorf("Degraded response must still be playable: %v", err)
	}
}

func TestRunDegradedSynthesisFallsBackToSilence(t *testing.T) {
	tr := &stubTranscriber{result: &transcription.Transcript{Text: "xin chào"}}
	r := &stubResponder{result: &generation.Exchange{Response: "chào bạn"}}
	sy := &stubSynthesizer{result: &synthesis.Result{
		Clip: &audio.Clip{Encoding: audio.EncodingMP3}, Degraded: true, Reason: "service_error",
	}}

	o, _ := newTestOrchestrator(t, tr, r, sy)
	payload, err := o.Run(context.Background(), testUploadWAV(t))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !payload.Degraded {
		t.Error("Expected degraded payload")
	}
	info, err := audio.GetWAVInfo(payload.WAV)
	if err != nil {
		t.Fatalf("Fallback response is not a valid WAV: %v", err)
	}
	if info.Duration <= 0 {
		t.Error("Expected audible silence, got zero-length audio")
	}
}

func TestRunMalformedUpload(t *testing.T) {
	tr := &stubTranscriber{result: &transcription.Transcript{Text: "x"}}
	r := &stubResponder{result: &generation.Exchange{Response: "y"}}
	sy := &stubSynthesizer{result: &synthesis.Result{Clip: speechClip(t)}}

	o, dir := newTestOrchestrator(t, tr, r, sy)
	_, err := o.Run(context.Background(), []byte("this is not a wav file"))
	if err == nil {
		t.Fatal("Expected error for malformed upload")
	}

	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("Expected FormatError, got %T: %v", err, err)
	}
	if tr.calls != 0 || r.calls != 0 || sy.calls != 0 {
		t.Errorf("Expected no stages to run, got transcriber=%d responder=%d synthesizer=%d",
			tr.calls, r.calls, sy.calls)
	}

	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatalf("Failed to read artifact dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no artifacts for rejected upload, found %d", len(entries))
	}
}

func TestRunRequestIDsAreUnique(t *testing.T) {
	tr := &stubTranscriber{result: &transcription.Transcript{Text: "x"}}
	r := &stubResponder{result: &generation.Exchange{Response: "y"}}
	sy := &stubSynthesizer{result: &synthesis.Result{Clip: speechClip(t)}}

	o, _ := newTestOrchestrator(t, tr, r, sy)
	wav := testUploadWAV(t)

	first, err := o.Run(context.Background(), wav)
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	second, err := o.Run(context.Background(), wav)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if first.RequestID == second.RequestID {
		t.Errorf("Expected distinct request IDs, both were %s", first.RequestID)
	}
}
