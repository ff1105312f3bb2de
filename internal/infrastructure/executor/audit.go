package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nyxlabs/nyx/internal/domain"
)

// AuditLog is an append-only text log of every execution attempt. Lines are
// flushed per write so a crashed session still leaves a complete trail.
type AuditLog struct {
	mu        sync.Mutex
	path      string
	sessionID string
}

// NewAuditLog opens (creating directories as needed) an audit log at path.
func NewAuditLog(path, sessionID string) (*AuditLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	return &AuditLog{path: path, sessionID: sessionID}, nil
}

// Record appends one execution line, plus a warning line when the step
// failed. The file is opened per call to keep the log valid across sessions
// writing concurrently.
func (a *AuditLog) Record(record domain.ExecutionRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, domain.SecureFilePermissions)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	stamp := record.Timestamp.Format(time.RFC3339)
	if _, err := fmt.Fprintf(f, "%s [%s] EXECUTED: %s | EXIT_CODE: %d\n",
		stamp, a.sessionID, record.CommandLine(), record.ExitCode); err != nil {
		return fmt.Errorf("failed to write audit line: %w", err)
	}
	if record.ExitCode != 0 {
		if _, err := fmt.Fprintf(f, "%s [%s] COMMAND_FAILED: %s | ERROR: %s\n",
			stamp, a.sessionID, record.CommandLine(), strings.TrimSpace(record.Output)); err != nil {
			return fmt.Errorf("failed to write audit line: %w", err)
		}
	}
	return nil
}

// Path returns the audit log location.
func (a *AuditLog) Path() string {
	return a.path
}
