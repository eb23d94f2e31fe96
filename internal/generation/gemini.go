package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/config"
)

// Diagnostic prefix spoken back to the device when generation fails.
const msgGenerationPrefix = "Error ChatbotResponse: "

// Exchange is the outcome of one generation round trip. Degraded marks
// responses where Response is a diagnostic sentence, Truncated marks
// responses shortened by the local word cap.
type Exchange struct {
	Prompt    string
	Response  string
	Truncated bool
	Degraded  bool
	Reason    string
}

// Generator wraps the Gemini client with the bridge's prompting and
// length-cap policy.
type Generator struct {
	config *config.GenerationConfig
	logger *slog.Logger
	client *genai.Client

	statsMutex sync.RWMutex
	stats      Stats
}

// Stats tracks generator statistics
type Stats struct {
	Requests    uint64    `json:"requests"`
	Degraded    uint64    `json:"degraded"`
	Truncated   uint64    `json:"truncated"`
	LastRequest time.Time `json:"last_request"`
}

// NewGenerator creates a Gemini-backed generator
func NewGenerator(ctx context.Context, cfg *config.GenerationConfig, logger *slog.Logger) (*Generator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Generator{
		config: cfg,
		logger: logger,
		client: client,
	}, nil
}

// Respond generates a bounded reply for the given transcript text. It
// never returns an error: generation failures yield a degraded exchange
// carrying a diagnostic sentence.
func (g *Generator) Respond(ctx context.Context, text string) *Exchange {
	start := time.Now()
	prompt := g.buildPrompt(text)

	g.statsMutex.Lock()
	g.stats.Requests++
	g.stats.LastRequest = time.Now()
	g.statsMutex.Unlock()

	reply, err := g.generate(ctx, prompt)
	if err != nil {
		g.logger.Warn("Generation request failed",
			"error", err,
			"prompt_length", len(prompt))
		g.statsMutex.Lock()
		g.stats.Degraded++
		g.statsMutex.Unlock()
		return &Exchange{
			Prompt:   prompt,
			Response: msgGenerationPrefix + err.Error(),
			Degraded: true,
			Reason:   "service_error",
		}
	}

	capped, truncated := enforceWordCap(reply, g.config.MaxResponseWords)
	if truncated {
		g.logger.Info("Response truncated to word cap",
			"cap", g.config.MaxResponseWords,
			"original_length", len(reply))
		g.statsMutex.Lock()
		g.stats.Truncated++
		g.statsMutex.Unlock()
	}

	g.logger.Debug("Generation completed",
		"response_length", len(capped),
		"truncated", truncated,
		"duration", time.Since(start))

	return &Exchange{
		Prompt:    prompt,
		Response:  capped,
		Truncated: truncated,
	}
}

// buildPrompt appends the length directive so the model aims for a short
// answer even before the local cap is applied.
func (g *Generator) buildPrompt(text string) string {
	directive := strings.TrimSpace(g.config.LengthDirective)
	if directive == "" {
		return text
	}
	return text + ". " + directive
}

// generate performs one request against the Gemini API
func (g *Generator) generate(ctx context.Context, prompt string) (string, error) {
	temperature := g.config.Temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(g.config.MaxOutputTokens),
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.config.Model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generate content failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no candidates in response")
	}

	var builder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		builder.WriteString(part.Text)
	}

	reply := strings.TrimSpace(builder.String())
	if reply == "" {
		return "", fmt.Errorf("empty response from model")
	}

	return reply, nil
}

// enforceWordCap truncates text to at most maxWords words. A cap of zero
// disables truncation.
func enforceWordCap(text string, maxWords int) (string, bool) {
	if maxWords <= 0 {
		return text, false
	}
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text, false
	}
	return strings.Join(words[:maxWords], " "), true
}

// GetStats returns a copy of the current generator statistics
func (g *Generator) GetStats() Stats {
	g.statsMutex.RLock()
	defer g.statsMutex.RUnlock()
	return g.stats
}
