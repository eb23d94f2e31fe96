package synthesis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/audio"
	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/config"
)

// Result is the outcome of one synthesis attempt. Degraded marks results
// where Clip is empty because the endpoint could not be reached.
type Result struct {
	Clip     *audio.Clip
	Degraded bool
	Reason   string
}

// Client handles communication with the text-to-speech endpoint
type Client struct {
	config     *config.SynthesisConfig
	logger     *slog.Logger
	httpClient *http.Client

	statsMutex sync.RWMutex
	stats      Stats
}

// Stats tracks synthesis client statistics
type Stats struct {
	Requests    uint64    `json:"requests"`
	Chunks      uint64    `json:"chunks"`
	Degraded    uint64    `json:"degraded"`
	LastRequest time.Time `json:"last_request"`
}

// NewClient creates a new text-to-speech client
func NewClient(cfg *config.SynthesisConfig, logger *slog.Logger) *Client {
	return &Client{
		config: cfg,
		logger: logger,
		httpClient: &http.Client{
			Timeout: cfg.GetTimeoutDuration(),
		},
	}
}

// Synthesize converts text to an MP3 clip. It never returns an error: any
// failure yields a degraded result with an empty clip, which downstream
// encoding turns into audible silence.
func (c *Client) Synthesize(ctx context.Context, text, language string) *Result {
	start := time.Now()
	if language == "" {
		language = c.config.Language
	}

	c.statsMutex.Lock()
	c.stats.Requests++
	c.stats.LastRequest = time.Now()
	c.statsMutex.Unlock()

	text = strings.TrimSpace(text)
	if text == "" {
		c.markDegraded()
		return &Result{
			Clip:     &audio.Clip{Encoding: audio.EncodingMP3},
			Degraded: true,
			Reason:   "empty_text",
		}
	}

	chunks := splitText(text, c.config.MaxChunkChars)

	var combined bytes.Buffer
	for i, chunk := range chunks {
		segment, err := c.fetchChunk(ctx, chunk, language)
		if err != nil {
			c.logger.Warn("Synthesis request failed",
				"error", err,
				"chunk", i,
				"chunks_total", len(chunks))
			c.markDegraded()
			return &Result{
				Clip:     &audio.Clip{Encoding: audio.EncodingMP3},
				Degraded: true,
				Reason:   "service_error",
			}
		}
		combined.Write(segment)

		c.statsMutex.Lock()
		c.stats.Chunks++
		c.statsMutex.Unlock()
	}

	c.logger.Debug("Synthesis completed",
		"chunks", len(chunks),
		"mp3_bytes", combined.Len(),
		"duration", time.Since(start))

	return &Result{
		Clip: &audio.Clip{
			Data:     combined.Bytes(),
			Encoding: audio.EncodingMP3,
		},
	}
}

// fetchChunk requests speech for one chunk of text
func (c *Client) fetchChunk(ctx context.Context, text, language string) ([]byte, error) {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("q", text)
	params.Set("tl", language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.config.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("synthesizer returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("synthesizer returned empty body")
	}

	return data, nil
}

// splitText splits text into chunks of at most maxChars characters,
// breaking on whitespace where possible. A single word longer than the
// limit becomes its own chunk.
func splitText(text string, maxChars int) []string {
	if maxChars <= 0 || len(text) <= maxChars {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len() > 0 && current.Len()+1+len(word) > maxChars {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
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
