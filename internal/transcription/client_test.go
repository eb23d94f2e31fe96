package transcription

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ImNotTurtle/ESP32-VoiceAssistant/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(endpoint string) *Client {
	return NewClient(&config.TranscriptionConfig{
		Endpoint: endpoint,
		Language: "vi-VN",
		Timeout:  5,
	}, testLogger())
}

func TestTranscribeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("Failed to parse multipart form: %v", err)
		}
		if r.FormValue("language") != "vi-VN" {
			t.Errorf("Expected language vi-VN, got %s", r.FormValue("language"))
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("Missing file field: %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if len(data) == 0 {
			t.Error("Expected non-empty audio payload")
		}

		json.NewEncoder(w).Encode(recognizerResponse{Text: "xin chào", Confidence: 0.95})
	}))
	defer server.Close()

	client := testClient(server.URL)
	result := client.Transcribe(context.Background(), []byte("fake wav data"), "")

	if result.Degraded {
		t.Fatalf("Expected successful transcript, got degraded: %s", result.Reason)
	}
	if result.Text != "xin chào" {
		t.Errorf("Expected text 'xin chào', got %q", result.Text)
	}
	if result.Confidence != 0.95 {
		t.Errorf("Expected confidence 0.95, got %f", result.Confidence)
	}
	if result.Language != "vi-VN" {
		t.Errorf("Expected configured language fallback, got %q", result.Language)
	}
}

func TestTranscribeEmptyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(recognizerResponse{Text: "   "})
	}))
	defer server.Close()

	client := testClient(server.URL)
	result := client.Transcribe(context.Background(), []byte("fake wav data"), "vi-VN")

	if !result.Degraded {
		t.Fatal("Expected degraded transcript for empty recognition")
	}
	if result.Reason != "unintelligible" {
		t.Errorf("Expected reason 'unintelligible', got %q", result.Reason)
	}
	if result.Text != "Error: Could not understand audio" {
		t.Errorf("Unexpected diagnostic text: %q", result.Text)
	}
}

func TestTranscribeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := testClient(server.URL)
	result := client.Transcribe(context.Background(), []byte("fake wav data"), "vi-VN")

	if !result.Degraded {
		t.Fatal("Expected degraded transcript for server error")
	}
	if result.Reason != "service_error" {
		t.Errorf("Expected reason 'service_error', got %q", result.Reason)
	}
	if !strings.HasPrefix(result.Text, "Error: ") {
		t.Errorf("Expected diagnostic prefix, got %q", result.Text)
	}
}

func TestTranscribeConnectionError(t *testing.T) {
	// Point at a server that has already been shut down.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := testClient(url)
	result := client.Transcribe(context.Background(), []byte("fake wav data"), "vi-VN")

	if !result.Degraded {
		t.Fatal("Expected degraded transcript for connection error")
	}
	if result.Reason != "service_error" {
		t.Errorf("Expected reason 'service_error', got %q", result.Reason)
	}
}

func TestTranscribeStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(recognizerResponse{Text: "ok", Confidence: 0.9})
	}))
	defer server.Close()

	client := testClient(server.URL)
	client.Transcribe(context.Background(), []byte("a"), "vi-VN")
	client.Transcribe(context.Background(), []byte("b"), "vi-VN")

	stats := client.GetStats()
	if stats.Requests != 2 {
		t.Errorf("Expected 2 requests, got %d", stats.Requests)
	}
	if stats.Degraded != 0 {
		t.Errorf("Expected 0 degraded, got %d", stats.Degraded)
	}
	if stats.LastRequest.IsZero() {
		t.Error("Expected LastRequest to be set")
	}
}
