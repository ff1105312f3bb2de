package domain

import (
	"encoding/json"
	"strings"
)

// Role tags a history entry with its author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// HistoryEntry is one message in the session transcript. The control loop
// owns the history for the lifetime of one user request; entries are only
// ever appended, except for compression which replaces the whole sequence.
type HistoryEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// EstimateContextSize returns a rough context size: the length of the
// serialized transcript in characters.
func EstimateContextSize(entries []HistoryEntry) int {
	data, err := json.Marshal(entries)
	if err != nil {
		return 0
	}
	return len(data)
}

// RecentFailures returns the System entries among the last n that look like
// failures (content containing "error" or "failed", case-insensitive).
// The plan source embeds these in the next prompt so it does not repeat
// the same mistakes.
func RecentFailures(entries []HistoryEntry, n int) []HistoryEntry {
	start := len(entries) - n
	if start < 0 {
		start = 0
	}
	var failures []HistoryEntry
	for _, entry := range entries[start:] {
		if entry.Role != RoleSystem {
			continue
		}
		lower := strings.ToLower(entry.Content)
		if strings.Contains(lower, "error") || strings.Contains(lower, "failed") {
			failures = append(failures, entry)
		}
	}
	return failures
}
