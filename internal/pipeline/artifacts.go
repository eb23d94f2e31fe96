package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// Artifact kinds persisted per request.
const (
	ArtifactUpload   = "upload"
	ArtifactResponse = "response"
)

// ArtifactStore persists per-request audio artifacts to disk. Files are
// named <requestID>_<kind>.wav, so concurrent requests never clobber each
// other and a repeated save for the same request wins last-write.
type ArtifactStore struct {
	dir string
}

// NewArtifactStore creates the artifact directory if needed
func NewArtifactStore(dir string) (*ArtifactStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory %s: %w", dir, err)
	}
	return &ArtifactStore{dir: dir}, nil
}

// Save writes one artifact and returns its path
func (s *ArtifactStore) Save(requestID, kind string, data []byte) (string, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%s.wav", requestID, kind))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write artifact %s: %w", path, err)
	}
	return path, nil
}

// Dir returns the artifact directory
func (s *ArtifactStore) Dir() string {
	return s.dir
}
