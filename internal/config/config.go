package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Audio         AudioConfig         `yaml:"audio"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Generation    GenerationConfig    `yaml:"generation"`
	Synthesis     SynthesisConfig     `yaml:"synthesis"`
	Artifacts     ArtifactsConfig     `yaml:"artifacts"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// HTTPConfig contains HTTP server configuration
type HTTPConfig struct {
	Port           int    `yaml:"port"`
	Address        string `yaml:"address"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// AudioConfig describes the playback target profile the device requires
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
	BitDepth   int `yaml:"bit_depth"`
}

// TranscriptionConfig contains speech recognizer API configuration
type TranscriptionConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Language string `yaml:"language"` // e.g. "vi-VN"
	Timeout  int    `yaml:"timeout"`  // seconds
}

// GenerationConfig contains generative text service configuration
type GenerationConfig struct {
	APIKey           string  `yaml:"api_key"`
	Model            string  `yaml:"model"`
	LengthDirective  string  `yaml:"length_directive"`
	Temperature      float32 `yaml:"temperature"`
	MaxOutputTokens  int     `yaml:"max_output_tokens"`
	MaxResponseWords int     `yaml:"max_response_words"`
}

// SynthesisConfig contains text-to-speech service configuration
type SynthesisConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Language      string `yaml:"language"` // e.g. "vi"
	Timeout       int    `yaml:"timeout"`  // seconds
	MaxChunkChars int    `yaml:"max_chunk_chars"`
}

// ArtifactsConfig controls where per-request audio artifacts are persisted
type ArtifactsConfig struct {
	Dir              string `yaml:"dir"`
	ResponseFilename string `yaml:"response_filename"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file, applies environment
// overrides for credentials, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyEnv lets credentials come from the environment instead of the YAML
// file, so the file can be committed without secrets.
func (c *Config) applyEnv() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Generation.APIKey = v
	}
	if v := os.Getenv("RECOGNIZER_API_KEY"); v != "" {
		c.Transcription.APIKey = v
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Generation.Validate(); err != nil {
		return fmt.Errorf("generation config: %w", err)
	}

	if err := c.Synthesis.Validate(); err != nil {
		return fmt.Errorf("synthesis config: %w", err)
	}

	if err := c.Artifacts.Validate(); err != nil {
		return fmt.Errorf("artifacts config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", h.Port)
	}

	if h.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	if h.MaxUploadBytes < 1024 {
		return fmt.Errorf("max_upload_bytes must be at least 1024, got %d", h.MaxUploadBytes)
	}

	return nil
}

// Validate validates the playback target profile
func (a *AudioConfig) Validate() error {
	if a.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", a.SampleRate)
	}

	if a.Channels != 1 && a.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", a.Channels)
	}

	if a.BitDepth != 8 && a.BitDepth != 16 {
		return fmt.Errorf("bit_depth must be 8 or 16, got %d", a.BitDepth)
	}

	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	if t.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if t.Language == "" {
		return fmt.Errorf("language cannot be empty")
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	return nil
}

// Validate validates generation configuration. A missing API key is fatal:
// without the generative service the bridge cannot answer anything.
func (g *GenerationConfig) Validate() error {
	if g.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty (set GEMINI_API_KEY or generation.api_key)")
	}

	if g.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}

	if g.Temperature < 0 || g.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", g.Temperature)
	}

	if g.MaxOutputTokens < 1 {
		return fmt.Errorf("max_output_tokens must be at least 1, got %d", g.MaxOutputTokens)
	}

	if g.MaxResponseWords < 0 {
		return fmt.Errorf("max_response_words cannot be negative, got %d", g.MaxResponseWords)
	}

	return nil
}

// Validate validates synthesis configuration
func (s *SynthesisConfig) Validate() error {
	if s.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if s.Language == "" {
		return fmt.Errorf("language cannot be empty")
	}

	if s.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", s.Timeout)
	}

	if s.MaxChunkChars < 1 {
		return fmt.Errorf("max_chunk_chars must be at least 1, got %d", s.MaxChunkChars)
	}

	return nil
}

// Validate validates artifacts configuration
func (a *ArtifactsConfig) Validate() error {
	if a.Dir == "" {
		return fmt.Errorf("dir cannot be empty")
	}

	if a.ResponseFilename == "" {
		return fmt.Errorf("response_filename cannot be empty")
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// GetTimeoutDuration returns the synthesis timeout as a time.Duration
func (s *SynthesisConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}
