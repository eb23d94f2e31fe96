package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/audio"
	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/config"
	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/generation"
	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/metrics"
	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/pipeline"
	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/server"
	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/synthesis"
	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/transcription"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "esp32-voice-bridge"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load credentials from .env if present; the file is optional
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("http_port", cfg.HTTP.Port),
		slog.String("address", cfg.HTTP.Address),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("channels", cfg.Audio.Channels),
		slog.Int("bit_depth", cfg.Audio.BitDepth),
		slog.String("transcription_endpoint", cfg.Transcription.Endpoint),
		slog.String("generation_model", cfg.Generation.Model),
		slog.String("synthesis_endpoint", cfg.Synthesis.Endpoint),
		slog.String("artifacts_dir", cfg.Artifacts.Dir),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Initialize artifact store
	store, err := pipeline.NewArtifactStore(cfg.Artifacts.Dir)
	if err != nil {
		logger.Error("Failed to create artifact store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Artifact store initialized", slog.String("dir", store.Dir()))

	// Initialize pipeline stage clients
	transcriber := transcription.NewClient(&cfg.Transcription, logger)
	logger.Info("Transcription client initialized",
		slog.String("endpoint", cfg.Transcription.Endpoint),
		slog.String("language", cfg.Transcription.Language),
	)

	generator, err := generation.NewGenerator(ctx, &cfg.Generation, logger)
	if err != nil {
		logger.Error("Failed to create generator", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Generator initialized", slog.String("model", cfg.Generation.Model))

	synthesizer := synthesis.NewClient(&cfg.Synthesis, logger)
	logger.Info("Synthesis client initialized",
		slog.String("endpoint", cfg.Synthesis.Endpoint),
		slog.String("language", cfg.Synthesis.Language),
	)

	// Initialize pipeline orchestrator
	orchestrator := pipeline.NewOrchestrator(pipeline.Config{
		TranscribeLanguage: cfg.Transcription.Language,
		SynthesisLanguage:  cfg.Synthesis.Language,
		Profile: audio.TargetProfile{
			SampleRate: cfg.Audio.SampleRate,
			Channels:   cfg.Audio.Channels,
			BitDepth:   cfg.Audio.BitDepth,
		},
		ResponseFilename: cfg.Artifacts.ResponseFilename,
	}, logger, appMetrics, store, transcriber, generator, synthesizer)
	logger.Info("Pipeline orchestrator initialized")

	// Initialize and start HTTP server
	httpServer := server.NewHTTPServer(cfg, logger, orchestrator, appMetrics,
		transcriber, generator, synthesizer)
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Get final statistics
	stats := orchestrator.GetStats()
	logger.Info("Final pipeline statistics",
		slog.Uint64("runs", stats.Runs),
		slog.Uint64("degraded_runs", stats.DegradedRuns),
		slog.Uint64("rejected", stats.Rejected),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
