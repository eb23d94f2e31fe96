package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"
)

type RecognitionResponse struct {
	Text        string    `json:"text"`
	Confidence  float32   `json:"confidence"`
	Language    string    `json:"language"`
	ProcessedAt time.Time `json:"processed_at"`
}

func recognizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse multipart form
	err := r.ParseMultipartForm(10 << 20) // 10 MB
	if err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	language := r.FormValue("language")

	// Get audio file
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	log.Printf("🎤 RECOGNITION REQUEST RECEIVED:")
	log.Printf("    Filename: %s", header.Filename)
	log.Printf("    Audio Size: %d bytes", len(audioData))
	log.Printf("    Language: %s", language)

	// Simulate processing time
	time.Sleep(200 * time.Millisecond)

	response := RecognitionResponse{
		Text:        "xin chào trợ lý ảo",
		Confidence:  0.95,
		Language:    language,
		ProcessedAt: time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)

	log.Printf("✅ RECOGNITION RESPONSE SENT: '%s'", response.Text)
	log.Println("---")
}

// ttsHandler returns a tiny canned MP3 frame so the bridge's decode and
// resample path gets exercised without reaching a real service.
func ttsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	text := r.URL.Query().Get("q")
	language := r.URL.Query().Get("tl")
	if text == "" {
		http.Error(w, "Missing q parameter", http.StatusBadRequest)
		return
	}

	log.Printf("🔊 SYNTHESIS REQUEST RECEIVED:")
	log.Printf("    Text: %s", text)
	log.Printf("    Language: %s", language)

	// Minimal MPEG-1 Layer III frame header followed by silent payload
	frame := make([]byte, 417)
	copy(frame, []byte{0xFF, 0xFB, 0x90, 0x00})

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	w.Write(frame)

	log.Printf("✅ SYNTHESIS RESPONSE SENT: %d bytes", len(frame))
	log.Println("---")
}

func main() {
	http.HandleFunc("/recognize", recognizeHandler)
	http.HandleFunc("/tts", ttsHandler)

	port := ":9000"
	log.Printf("🚀 Test Speech Services starting on port %s", port)
	log.Printf("📡 Recognizer: http://localhost%s/recognize", port)
	log.Printf("📡 Synthesizer: http://localhost%s/tts", port)
	log.Println("💡 Update your config to use these endpoints")

	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
