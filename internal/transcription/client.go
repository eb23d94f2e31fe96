package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/config"
)

// Diagnostic sentences spoken back to the device when recognition fails.
// They flow through the rest of the pipeline like any other text.
const (
	msgUnintelligible = "Error: Could not understand audio"
	msgServicePrefix  = "Error: "
)

// Transcript is the outcome of one recognition attempt. Degraded marks
// results where Text is a diagnostic sentence rather than recognized speech.
type Transcript struct {
	Text       string
	Language   string
	Confidence float32
	Degraded   bool
	Reason     string
}

// Client handles communication with the speech recognizer API
type Client struct {
	config     *config.TranscriptionConfig
	logger     *slog.Logger
	httpClient *http.Client

	statsMutex sync.RWMutex
	stats      Stats
}

// Stats tracks transcription client statistics
type Stats struct {
	Requests      uint64        `json:"requests"`
	Degraded      uint64        `json:"degraded"`
	TotalDuration time.Duration `json:"total_duration"`
	LastRequest   time.Time     `json:"last_request"`
}

// recognizerResponse is the JSON body returned by the recognizer API
type recognizerResponse struct {
	Text       string  `json:"text"`
	Confidence float32 `json:"confidence"`
}

// NewClient creates a new recognizer API client
func NewClient(cfg *config.TranscriptionConfig, logger *slog.Logger) *Client {
	return &Client{
		config: cfg,
		logger: logger,
		httpClient: &http.Client{
			Timeout: cfg.GetTimeoutDuration(),
		},
	}
}

// Transcribe sends WAV audio to the recognizer and returns the transcript.
// It never returns an error: recognizer failures and unintelligible audio
// both yield a degraded transcript with a diagnostic sentence.
func (c *Client) Transcribe(ctx context.Context, wavData []byte, language string) *Transcript {
	start := time.Now()
	if language == "" {
		language = c.config.Language
	}

	text, confidence, err := c.recognize(ctx, wavData, language)

	c.statsMutex.Lock()
	c.stats.Requests++
	c.stats.TotalDuration += time.Since(start)
	c.stats.LastRequest = time.Now()
	c.statsMutex.Unlock()

	if err != nil {
		c.logger.Warn("Recognition request failed",
			"error", err,
			"language", language,
			"audio_bytes", len(wavData))
		c.markDegraded()
		return &Transcript{
			Text:     msgServicePrefix + err.Error(),
			Language: language,
			Degraded: true,
			Reason:   "service_error",
		}
	}

	if strings.TrimSpace(text) == "" {
		c.logger.Info("Recognizer returned no speech",
			"language", language,
			"audio_bytes", len(wavData))
		c.markDegraded()
		return &Transcript{
			Text:     msgUnintelligible,
			Language: language,
			Degraded: true,
			Reason:   "unintelligible",
		}
	}

	c.logger.Debug("Transcription completed",
		"text_length", len(text),
		"confidence", confidence,
		"duration", time.Since(start))

	return &Transcript{
		Text:       text,
		Language:   language,
		Confidence: confidence,
	}
}

// recognize performs one request against the recognizer endpoint
func (c *Client) recognize(ctx context.Context, wavData []byte, language string) (string, float32, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(wavData); err != nil {
		return "", 0, fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := writer.WriteField("language", language); err != nil {
		return "", 0, fmt.Errorf("failed to write language field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, &body)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("recognizer returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result recognizerResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", 0, fmt.Errorf("failed to parse response: %w", err)
	}

	return result.Text, result.Confidence, nil
}

func (c *Client) markDegraded() {
	c.statsMutex.Lock()
	c.stats.Degraded++
	c.statsMutex.Unlock()
}

// GetStats returns a copy of the current client statistics
func (c *Client) GetStats() Stats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()
	return c.stats
}
