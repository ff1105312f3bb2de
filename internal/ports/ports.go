// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the application core and
// external adapters (infrastructure). Following the Ports and Adapters
// pattern, these interfaces keep the control loop independent of the
// concrete AI backend, process spawner, and persistence implementations.
package ports

import (
	"context"

	"github.com/nyxlabs/nyx/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.nyx/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// PlanText is the raw outcome of one planning request: the full model
// response (appended verbatim to history) and the extracted JSON object,
// which is either a plan envelope or a synthesized {"error": ...}.
type PlanText struct {
	Raw  string
	JSON string
}

// PlanRequest carries everything the plan source needs to build a prompt.
type PlanRequest struct {
	Task    string
	OS      string
	History []domain.HistoryEntry
}

// PlanSource is the language-model backend. All methods downgrade transport
// failures to returned errors; none of them panic on malformed output.
type PlanSource interface {
	// GeneratePlan streams a planning response and returns the full text
	// plus the extracted JSON plan object.
	GeneratePlan(ctx context.Context, req PlanRequest) (PlanText, error)

	// CheckCompletion asks whether the task is done given the history.
	// Callers must treat an error as CONTINUE, never as success.
	CheckCompletion(ctx context.Context, task string, history []domain.HistoryEntry) (bool, error)

	// SummarizeSession produces the natural-language wrap-up shown when a
	// task completes.
	SummarizeSession(ctx context.Context, task string, history []domain.HistoryEntry) (string, error)

	// SummarizeEntries condenses dropped history entries into one note for
	// context compression.
	SummarizeEntries(ctx context.Context, entries []domain.HistoryEntry) (string, error)
}

// SafetyPolicy classifies a (command, args) pair. It must be consulted
// before every execution and is deterministic and side-effect free.
type SafetyPolicy interface {
	Classify(command string, args []string) domain.Verdict
}

// CommandRunner executes one normalized step. Every failure mode — policy
// rejection, missing executable, spawn error, timeout — is folded into the
// returned record; Run never panics and never returns an error value.
type CommandRunner interface {
	Run(ctx context.Context, step domain.Step) domain.ExecutionRecord
}

// HistoryRepository persists the session transcript as one JSON array,
// overwritten on every save. Load tolerates a missing or corrupt file.
type HistoryRepository interface {
	Load() ([]domain.HistoryEntry, error)
	Save(entries []domain.HistoryEntry) error
	Path() string
}

// RecordStore keeps one row per executed step for later inspection.
type RecordStore interface {
	Save(record domain.ExecutionRecord) error
	Records(limit int, search string) ([]domain.ExecutionRecord, error)
	PruneOlderThan(days int) error
	Close() error
}

// PlanApproval is the user's answer to a plan review.
type PlanApproval int

const (
	ApprovalYes PlanApproval = iota
	ApprovalNo
	ApprovalSkip
)

// ContinuationChoice is the user's answer to the iteration-control prompt.
type ContinuationChoice int

const (
	ChoiceContinue ContinuationChoice = iota
	ChoiceQuit
	ChoiceRestart
	ChoiceToggleApproval
)

// Prompter handles the interactive confirmations of the control loop.
// Implementations must degrade safely when no terminal is attached.
type Prompter interface {
	// Interactive reports whether stdin is attached to a terminal.
	Interactive() bool
	// ConfirmSudo asks before running a privilege-escalation step.
	ConfirmSudo(step domain.Step) bool
	// ApprovePlan shows the plan with per-step verdicts and asks y/N/skip.
	ApprovePlan(plan domain.Plan, verdicts []domain.Verdict) PlanApproval
	// ContinuationChoice asks how to proceed after repeated failures.
	ContinuationChoice() ContinuationChoice
}

// StreamWriter receives display events while plan text streams in.
type StreamWriter interface {
	WriteChunk(text string)
	Done()
}

// OSDetector names the host distribution for OS-specific planning.
type OSDetector interface {
	Detect(ctx context.Context, history []domain.HistoryEntry) string
}

// Logger provides structured logging abstraction for the application layer.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
