// Package history persists the two kinds of session memory: the
// conversation transcript the planner sees, and the per-command execution
// records kept for later inspection.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nyxlabs/nyx/internal/domain"
	"github.com/nyxlabs/nyx/internal/ports"
)

// TranscriptStore keeps the conversation history as one JSON array,
// rewritten whole on every save. Each run starts from a fresh in-memory
// history; the file exists for post-mortem inspection, not for resuming.
type TranscriptStore struct {
	path string
}

var _ ports.HistoryRepository = (*TranscriptStore)(nil)

// NewTranscriptStore creates a store writing to path.
func NewTranscriptStore(path string) *TranscriptStore {
	return &TranscriptStore{path: path}
}

// Load reads the persisted transcript. A missing or corrupt file yields an
// empty history rather than an error so a bad file never blocks a session.
func (s *TranscriptStore) Load() ([]domain.HistoryEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}
	var entries []domain.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, nil
	}
	return entries, nil
}

// Save overwrites the transcript file with the full entry list.
func (s *TranscriptStore) Save(entries []domain.HistoryEntry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), domain.DirectoryPermissions); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := os.WriteFile(s.path, data, domain.SecureFilePermissions); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return nil
}

// Path returns the backing file path.
func (s *TranscriptStore) Path() string {
	return s.path
}
