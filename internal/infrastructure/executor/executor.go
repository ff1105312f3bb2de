// Package executor runs normalized steps as direct argv spawns. There is no
// shell interposition: command lines containing metacharacters are refused
// before any process starts, and the safety policy is consulted on every
// call regardless of what upstream validation already happened.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/nyxlabs/nyx/internal/domain"
	"github.com/nyxlabs/nyx/internal/ports"
)

const noOutputSentinel = "Command executed successfully with no output.\n"

var metacharacters = []string{"|", ">", "<", "&"}

// LocalExecutor is the ports.CommandRunner backed by os/exec. All failure
// modes are folded into the returned ExecutionRecord; Run never returns an
// error and never propagates a fault to the caller.
type LocalExecutor struct {
	policy    ports.SafetyPolicy
	audit     *AuditLog
	timeout   time.Duration
	sessionID string
}

var _ ports.CommandRunner = (*LocalExecutor)(nil)

// NewLocalExecutor creates an executor bound to a safety policy and an audit
// log. A zero timeout disables the per-step deadline. audit may be nil.
func NewLocalExecutor(policy ports.SafetyPolicy, audit *AuditLog, timeout time.Duration, sessionID string) *LocalExecutor {
	return &LocalExecutor{
		policy:    policy,
		audit:     audit,
		timeout:   timeout,
		sessionID: sessionID,
	}
}

// Run executes one step and returns its record. The policy check runs
// unconditionally, then the metacharacter check, then the spawn.
func (e *LocalExecutor) Run(ctx context.Context, step domain.Step) domain.ExecutionRecord {
	record := domain.ExecutionRecord{
		Timestamp: time.Now().UTC(),
		SessionID: e.sessionID,
		Command:   step.Command,
		Args:      append([]string(nil), step.Args...),
	}

	verdict := e.policy.Classify(step.Command, step.Args)
	if !verdict.Allowed {
		record.ExitCode = 1
		record.Output = fmt.Sprintf("Command blocked for safety: %s\n", verdict.Reason)
		e.writeAudit(record)
		return record
	}

	if meta := findMetacharacter(step); meta != "" {
		record.ExitCode = 1
		record.Output = fmt.Sprintf("Command rejected: shell metacharacter %q is not supported. Use separate plan steps instead.\n", meta)
		e.writeAudit(record)
		return record
	}

	exitCode, output := e.spawn(ctx, step)
	record.ExitCode = exitCode
	record.Output = output
	record.DurationMS = time.Since(record.Timestamp).Milliseconds()
	e.writeAudit(record)
	return record
}

func (e *LocalExecutor) spawn(ctx context.Context, step domain.Step) (int, string) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, step.Command, step.Args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return 1, fmt.Sprintf("Error executing command '%s': timed out after %s\n", step.Command, e.timeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), formatOutput(stdout.String(), stderr.String())
		}
		// Spawn failure: executable missing, permission denied, and so on.
		return 1, fmt.Sprintf("Error executing command '%s': %v\n", step.Command, err)
	}
	return 0, formatOutput(stdout.String(), stderr.String())
}

// formatOutput renders captured streams into the block format appended to
// conversation history. Both streams empty yields a fixed sentinel so the
// model never sees a blank result.
func formatOutput(stdout, stderr string) string {
	var b strings.Builder
	if strings.TrimSpace(stdout) != "" {
		fmt.Fprintf(&b, "--- Output ---\n%s\n", strings.TrimRight(stdout, "\n"))
	}
	if strings.TrimSpace(stderr) != "" {
		fmt.Fprintf(&b, "--- Errors ---\n%s\n", strings.TrimRight(stderr, "\n"))
	}
	if b.Len() == 0 {
		return noOutputSentinel
	}
	return b.String()
}

// findMetacharacter returns the first shell metacharacter appearing anywhere
// in the step text, or "" when the step is clean. Substring matching is
// deliberate here: without a shell there is no legitimate use for these
// characters in an argv.
func findMetacharacter(step domain.Step) string {
	for _, meta := range metacharacters {
		if strings.Contains(step.Command, meta) {
			return meta
		}
		for _, arg := range step.Args {
			if strings.Contains(arg, meta) {
				return meta
			}
		}
	}
	return ""
}

func (e *LocalExecutor) writeAudit(record domain.ExecutionRecord) {
	if e.audit == nil {
		return
	}
	// Audit failures never block execution.
	_ = e.audit.Record(record)
}
