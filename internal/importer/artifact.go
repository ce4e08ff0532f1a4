package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ArtifactWriter persists session artifacts (scrape payloads, final results)
// as pretty-printed JSON so failed imports can be audited after the fact.
type ArtifactWriter struct {
	outputDir string
	mu        sync.Mutex
}

// NewArtifactWriter creates the output directory if needed.
func NewArtifactWriter(outputDir string) (*ArtifactWriter, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return &ArtifactWriter{outputDir: outputDir}, nil
}

// Write stores v under a timestamped, session-scoped filename.
func (w *ArtifactWriter) Write(sessionID, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s artifact: %w", name, err)
	}

	filename := fmt.Sprintf("%d_%s_%s.json", time.Now().UnixNano(), sessionID, name)

	w.mu.Lock()
	defer w.mu.Unlock()
	return os.WriteFile(filepath.Join(w.outputDir, filename), data, 0o644)
}
