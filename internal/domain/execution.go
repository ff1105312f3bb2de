package domain

import "time"

// ExecutionRecord captures the result of running one step.
type ExecutionRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	SessionID  string    `json:"session_id"`
	Command    string    `json:"command"`
	Args       []string  `json:"args"`
	ExitCode   int       `json:"exit_code"`
	Output     string    `json:"output"`
	DurationMS int64     `json:"duration_ms"`
}

// Success reports whether the step counts as successful for
// completion-checking. Exit code 0 succeeds; so does `which` exiting 1,
// because a failing existence check after an uninstall is the expected
// outcome. The raw exit code is still what gets logged.
func (r ExecutionRecord) Success() bool {
	if r.ExitCode == 0 {
		return true
	}
	return r.Command == "which" && r.ExitCode == 1
}

// CommandLine renders the executed command for history and audit lines.
func (r ExecutionRecord) CommandLine() string {
	return Step{Command: r.Command, Args: r.Args}.CommandLine()
}
