package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nyxlabs/nyx/internal/domain"
	"github.com/nyxlabs/nyx/internal/ports"
)

// SQLiteRecordStore keeps one row per executed step.
type SQLiteRecordStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

var _ ports.RecordStore = (*SQLiteRecordStore)(nil)

// NewSQLiteRecordStore opens (creating as needed) the execution database.
func NewSQLiteRecordStore(path string) (*SQLiteRecordStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open execution database: %w", err)
	}
	store := &SQLiteRecordStore{db: db, path: path}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteRecordStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS executions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT,
		session_id TEXT,
		command TEXT,
		args TEXT,
		exit_code INTEGER,
		success INTEGER,
		duration_ms INTEGER
	);`)
	if err != nil {
		return fmt.Errorf("failed to create executions table: %w", err)
	}
	return nil
}

// Save inserts one execution row. Arguments are stored as a JSON array so
// values containing whitespace survive a round trip unchanged.
func (s *SQLiteRecordStore) Save(record domain.ExecutionRecord) error {
	argsJSON, err := json.Marshal(record.Args)
	if err != nil {
		return fmt.Errorf("failed to encode arguments: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`INSERT INTO executions
		(timestamp, session_id, command, args, exit_code, success, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.Timestamp.Format(time.RFC3339),
		record.SessionID,
		record.Command,
		string(argsJSON),
		record.ExitCode,
		boolToInt(record.Success()),
		record.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("failed to insert execution record: %w", err)
	}
	return nil
}

// Records returns execution rows, newest first. limit 0 means all; search
// filters on the command name and arguments.
func (s *SQLiteRecordStore) Records(limit int, search string) ([]domain.ExecutionRecord, error) {
	builder := strings.Builder{}
	builder.WriteString("SELECT timestamp, session_id, command, args, exit_code, duration_ms FROM executions")
	var args []interface{}
	if search != "" {
		builder.WriteString(" WHERE command LIKE ? OR args LIKE ?")
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}
	builder.WriteString(" ORDER BY datetime(timestamp) DESC")
	if limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	rows, err := s.db.Query(builder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()

	var records []domain.ExecutionRecord
	for rows.Next() {
		var rec domain.ExecutionRecord
		var ts, argsJSON string
		if err := rows.Scan(&ts, &rec.SessionID, &rec.Command, &argsJSON, &rec.ExitCode, &rec.DurationMS); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			rec.Timestamp = t
		}
		if err := json.Unmarshal([]byte(argsJSON), &rec.Args); err != nil {
			return nil, fmt.Errorf("failed to decode arguments: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PruneOlderThan deletes rows older than the retention window. days <= 0
// disables pruning.
func (s *SQLiteRecordStore) PruneOlderThan(days int) error {
	if days <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)
	_, err := s.db.Exec("DELETE FROM executions WHERE datetime(timestamp) < datetime(?)", cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune executions: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteRecordStore) Close() error {
	return s.db.Close()
}

// Path returns the sqlite database path.
func (s *SQLiteRecordStore) Path() string {
	return s.path
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
