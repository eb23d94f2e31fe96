package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Port:           5000,
			Address:        "0.0.0.0",
			MaxUploadBytes: 10 << 20,
		},
		Audio: AudioConfig{
			SampleRate: 8000,
			Channels:   1,
			BitDepth:   8,
		},
		Transcription: TranscriptionConfig{
			Endpoint: "https://api.example.com/recognize",
			APIKey:   "test-key",
			Language: "vi-VN",
			Timeout:  30,
		},
		Generation: GenerationConfig{
			APIKey:           "test-gemini-key",
			Model:            "gemini-1.5-flash",
			LengthDirective:  "Tóm tắt tối đa trong 20 từ",
			Temperature:      0.1,
			MaxOutputTokens:  1000,
			MaxResponseWords: 40,
		},
		Synthesis: SynthesisConfig{
			Endpoint:      "https://translate.google.com/translate_tts",
			Language:      "vi",
			Timeout:       30,
			MaxChunkChars: 200,
		},
		Artifacts: ArtifactsConfig{
			Dir:              "./uploads",
			ResponseFilename: "response_audio.wav",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name:        "invalid http port",
			mutate:      func(c *Config) { c.HTTP.Port = 70000 },
			expectError: true,
			errorMsg:    "port must be between",
		},
		{
			name:        "invalid channel count",
			mutate:      func(c *Config) { c.Audio.Channels = 3 },
			expectError: true,
			errorMsg:    "channels must be 1 or 2",
		},
		{
			name:        "invalid bit depth",
			mutate:      func(c *Config) { c.Audio.BitDepth = 24 },
			expectError: true,
			errorMsg:    "bit_depth must be 8 or 16",
		},
		{
			name:        "missing recognizer endpoint",
			mutate:      func(c *Config) { c.Transcription.Endpoint = "" },
			expectError: true,
			errorMsg:    "endpoint cannot be empty",
		},
		{
			name:        "missing gemini key",
			mutate:      func(c *Config) { c.Generation.APIKey = "" },
			expectError: true,
			errorMsg:    "api_key cannot be empty",
		},
		{
			name:        "temperature out of range",
			mutate:      func(c *Config) { c.Generation.Temperature = 3.0 },
			expectError: true,
			errorMsg:    "temperature must be between",
		},
		{
			name:        "negative word cap",
			mutate:      func(c *Config) { c.Generation.MaxResponseWords = -1 },
			expectError: true,
			errorMsg:    "max_response_words cannot be negative",
		},
		{
			name:        "missing synthesis language",
			mutate:      func(c *Config) { c.Synthesis.Language = "" },
			expectError: true,
			errorMsg:    "language cannot be empty",
		},
		{
			name:        "missing artifacts dir",
			mutate:      func(c *Config) { c.Artifacts.Dir = "" },
			expectError: true,
			errorMsg:    "dir cannot be empty",
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.Logging.Level = "verbose" },
			expectError: true,
			errorMsg:    "level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.expectError {
				if err == nil {
					t.Fatal("Expected validation error, got nil")
				}
				if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error containing %q, got %q", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
http:
  port: 5000
  address: "0.0.0.0"
  max_upload_bytes: 10485760
audio:
  sample_rate: 8000
  channels: 1
  bit_depth: 8
transcription:
  endpoint: "https://api.example.com/recognize"
  api_key: "stt-key"
  language: "vi-VN"
  timeout: 30
generation:
  api_key: "gemini-key"
  model: "gemini-1.5-flash"
  length_directive: "Tóm tắt tối đa trong 20 từ"
  temperature: 0.1
  max_output_tokens: 1000
  max_response_words: 40
synthesis:
  endpoint: "https://translate.google.com/translate_tts"
  language: "vi"
  timeout: 30
  max_chunk_chars: 200
artifacts:
  dir: "./uploads"
  response_filename: "response_audio.wav"
logging:
  level: "info"
  format: "json"
  output: "stdout"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTP.Port != 5000 {
		t.Errorf("Expected port 5000, got %d", cfg.HTTP.Port)
	}
	if cfg.Audio.SampleRate != 8000 {
		t.Errorf("Expected sample rate 8000, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Generation.Model != "gemini-1.5-flash" {
		t.Errorf("Expected model gemini-1.5-flash, got %s", cfg.Generation.Model)
	}
	if cfg.Synthesis.Language != "vi" {
		t.Errorf("Expected synthesis language vi, got %s", cfg.Synthesis.Language)
	}
}

func TestLoadAppliesEnvOverride(t *testing.T) {
	content := `
http:
  port: 5000
  address: "0.0.0.0"
  max_upload_bytes: 10485760
audio:
  sample_rate: 8000
  channels: 1
  bit_depth: 8
transcription:
  endpoint: "https://api.example.com/recognize"
  language: "vi-VN"
  timeout: 30
generation:
  model: "gemini-1.5-flash"
  temperature: 0.1
  max_output_tokens: 1000
  max_response_words: 40
synthesis:
  endpoint: "https://translate.google.com/translate_tts"
  language: "vi"
  timeout: 30
  max_chunk_chars: 200
artifacts:
  dir: "./uploads"
  response_filename: "response_audio.wav"
logging:
  level: "info"
  format: "json"
  output: "stdout"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	t.Setenv("GEMINI_API_KEY", "env-gemini-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Generation.APIKey != "env-gemini-key" {
		t.Errorf("Expected API key from environment, got %q", cfg.Generation.APIKey)
	}
}

func TestLoadMissingGeminiKeyIsFatal(t *testing.T) {
	content := `
http:
  port: 5000
  address: "0.0.0.0"
  max_upload_bytes: 10485760
audio:
  sample_rate: 8000
  channels: 1
  bit_depth: 8
transcription:
  endpoint: "https://api.example.com/recognize"
  language: "vi-VN"
  timeout: 30
generation:
  model: "gemini-1.5-flash"
  temperature: 0.1
  max_output_tokens: 1000
  max_response_words: 40
synthesis:
  endpoint: "https://translate.google.com/translate_tts"
  language: "vi"
  timeout: 30
  max_chunk_chars: 200
artifacts:
  dir: "./uploads"
  response_filename: "response_audio.wav"
logging:
  level: "info"
  format: "json"
  output: "stdout"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	t.Setenv("GEMINI_API_KEY", "")

	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for missing generation api_key")
	}
}
