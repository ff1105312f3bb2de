// Package services contains the application core: the control loop that
// turns one natural-language task into planned, validated, executed command
// steps, iterating until the task completes or the iteration budget runs
// out.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nyxlabs/nyx/internal/domain"
	"github.com/nyxlabs/nyx/internal/infrastructure/plan"
	"github.com/nyxlabs/nyx/internal/ports"
)

// AgentService drives the plan/validate/execute/check cycle. All external
// effects go through ports so the loop itself stays testable.
type AgentService struct {
	source   ports.PlanSource
	policy   ports.SafetyPolicy
	runner   ports.CommandRunner
	history  ports.HistoryRepository
	records  ports.RecordStore
	prompter ports.Prompter
	osDetect ports.OSDetector
	logger   ports.Logger
	out      io.Writer
	session  *domain.SessionConfig
	loop     domain.LoopSettings
}

// AgentDeps carries the wiring for NewAgentService. records may be nil when
// the execution database is unavailable.
type AgentDeps struct {
	Source   ports.PlanSource
	Policy   ports.SafetyPolicy
	Runner   ports.CommandRunner
	History  ports.HistoryRepository
	Records  ports.RecordStore
	Prompter ports.Prompter
	OSDetect ports.OSDetector
	Logger   ports.Logger
	Out      io.Writer
	Session  *domain.SessionConfig
	Loop     domain.LoopSettings
}

// NewAgentService wires the control loop.
func NewAgentService(deps AgentDeps) *AgentService {
	return &AgentService{
		source:   deps.Source,
		policy:   deps.Policy,
		runner:   deps.Runner,
		history:  deps.History,
		records:  deps.Records,
		prompter: deps.Prompter,
		osDetect: deps.OSDetect,
		logger:   deps.Logger,
		out:      deps.Out,
		session:  deps.Session,
		loop:     deps.Loop,
	}
}

// Run executes one task to completion. Each invocation starts from a fresh
// history seeded with only the user request, so prior sessions can never
// inject context into this one. The transcript is persisted on every exit
// path for post-mortem inspection.
func (a *AgentService) Run(ctx context.Context, task string) error {
	history := []domain.HistoryEntry{{Role: domain.RoleUser, Content: task}}
	defer func() {
		if err := a.history.Save(history); err != nil {
			a.logger.Warn("failed to persist transcript", map[string]interface{}{"error": err.Error()})
		}
	}()

	iteration := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		iteration++
		if iteration > a.loop.MaxIterations {
			fmt.Fprintf(a.out, "\n🛑 Reached maximum iterations (%d). Stopping.\n", a.loop.MaxIterations)
			history = append(history, domain.HistoryEntry{
				Role:    domain.RoleSystem,
				Content: fmt.Sprintf("Stopped after reaching the maximum of %d iterations.", a.loop.MaxIterations),
			})
			return nil
		}

		if domain.EstimateContextSize(history) > a.loop.MaxContextChars {
			fmt.Fprintln(a.out, "\n💾 Context getting large, compressing history...")
			history = a.compress(ctx, history)
			iteration = 1
		}

		normalized, ok := a.planIteration(ctx, task, &history)
		if !ok {
			continue
		}

		switch a.executePlan(ctx, normalized, &history) {
		case planFailed:
			continue
		case planRan:
			done, err := a.checkCompletion(ctx, task, &history)
			if err == nil && done {
				return nil
			}
		}

		history, iteration = a.iterationControl(ctx, history, iteration)
		if iteration < 0 {
			return nil
		}
	}
}

// planIteration asks the plan source for the next plan and normalizes it.
// Every failure mode appends a corrective note to the history and reports
// not-ok so the loop replans.
func (a *AgentService) planIteration(ctx context.Context, task string, history *[]domain.HistoryEntry) (domain.Plan, bool) {
	osName := a.osDetect.Detect(ctx, *history)

	text, err := a.source.GeneratePlan(ctx, ports.PlanRequest{Task: task, OS: osName, History: *history})
	if err != nil {
		fmt.Fprintf(a.out, "\n❌ Error from AI service: %v\n", err)
		a.logger.Warn("plan generation failed", map[string]interface{}{"error": err.Error()})
		*history = append(*history, domain.HistoryEntry{
			Role:    domain.RoleSystem,
			Content: fmt.Sprintf("AI service error: %v", err),
		})
		return domain.Plan{}, false
	}

	// The full response, reasoning included, is what the model sees next
	// iteration.
	*history = append(*history, domain.HistoryEntry{Role: domain.RoleAssistant, Content: text.Raw})

	doc, err := plan.Parse(text.JSON)
	if err != nil {
		switch {
		case errors.Is(err, plan.ErrSourceError):
			fmt.Fprintf(a.out, "❌ Error from AI service: %s\n", doc.Err)
			*history = append(*history, domain.HistoryEntry{
				Role:    domain.RoleSystem,
				Content: fmt.Sprintf("AI service error: %s", doc.Err),
			})
		default:
			fmt.Fprintln(a.out, "⚠️  Invalid plan received, retrying...")
			*history = append(*history, domain.HistoryEntry{
				Role:    domain.RoleSystem,
				Content: fmt.Sprintf("AI returned invalid JSON: %s", text.JSON),
			})
		}
		return domain.Plan{}, false
	}

	normalized := plan.Normalize(doc)
	if normalized.Empty() {
		fmt.Fprintln(a.out, "⚠️  Invalid plan received, retrying...")
		*history = append(*history, domain.HistoryEntry{
			Role:    domain.RoleSystem,
			Content: "AI returned a plan with no executable steps. Provide concrete commands without shell operators.",
		})
		return domain.Plan{}, false
	}
	return normalized, true
}

// planOutcome tells Run how a plan ended. Completion is only consulted after
// a fully executed plan; a skip runs nothing, so the loop falls through to
// iteration control instead.
type planOutcome int

const (
	planFailed planOutcome = iota
	planSkipped
	planRan
)

// executePlan shows the plan, handles approval, and runs the steps in order
// with fail-fast semantics.
func (a *AgentService) executePlan(ctx context.Context, p domain.Plan, history *[]domain.HistoryEntry) planOutcome {
	verdicts := make([]domain.Verdict, len(p.Steps))
	for i, step := range p.Steps {
		verdicts[i] = a.policy.Classify(step.Command, step.Args)
	}
	a.renderPlan(p, verdicts)

	if a.session.RequireApproval && a.prompter.Interactive() {
		switch a.prompter.ApprovePlan(p, verdicts) {
		case ports.ApprovalNo:
			fmt.Fprintln(a.out, "❌ Plan rejected by user. Re-planning...")
			*history = append(*history, domain.HistoryEntry{
				Role:    domain.RoleSystem,
				Content: "User rejected the execution plan. Please create a different approach.",
			})
			return planFailed
		case ports.ApprovalSkip:
			fmt.Fprintln(a.out, "⏭️  Plan skipped by user.")
			return planSkipped
		}
	}

	for _, step := range p.Steps {
		if step.Command == sudoCommand && !a.prompter.ConfirmSudo(step) {
			*history = append(*history, domain.HistoryEntry{
				Role:    domain.RoleSystem,
				Content: fmt.Sprintf("Cancelled '%s'. User declined sudo.", step.CommandLine()),
			})
			return planFailed
		}

		fmt.Fprintf(a.out, "🤖 Executing: %s\n", step.CommandLine())
		record := a.runner.Run(ctx, step)
		*history = append(*history, domain.HistoryEntry{
			Role:    domain.RoleSystem,
			Content: fmt.Sprintf("Executed '%s'. Exit code: %d. Result:\n%s", step.CommandLine(), record.ExitCode, record.Output),
		})
		fmt.Fprint(a.out, record.Output)
		a.saveRecord(record)

		if !record.Success() {
			fmt.Fprintln(a.out, "⚠️  Command failed, will re-plan...")
			return planFailed
		}
	}
	return planRan
}

const sudoCommand = "sudo"

func (a *AgentService) renderPlan(p domain.Plan, verdicts []domain.Verdict) {
	fmt.Fprintln(a.out, "📋 Execution Plan:")
	for i, step := range p.Steps {
		marker := "✅"
		if !verdicts[i].Allowed {
			marker = "⚠️"
		}
		fmt.Fprintf(a.out, "  %d. %s %s\n", i+1, marker, step.CommandLine())
	}
	fmt.Fprintln(a.out)
}

func (a *AgentService) saveRecord(record domain.ExecutionRecord) {
	if a.records == nil {
		return
	}
	if err := a.records.Save(record); err != nil {
		a.logger.Warn("failed to save execution record", map[string]interface{}{"error": err.Error()})
	}
}

// checkCompletion consults the model only when the last step succeeded. A
// backend error always means continue; completion is never assumed.
func (a *AgentService) checkCompletion(ctx context.Context, task string, history *[]domain.HistoryEntry) (bool, error) {
	complete, err := a.source.CheckCompletion(ctx, task, *history)
	if err != nil {
		a.logger.Warn("completion check failed", map[string]interface{}{"error": err.Error()})
		return false, err
	}
	if !complete {
		fmt.Fprintln(a.out, "\n🔄 Commands succeeded but task may not be complete. Continuing...")
		return false, nil
	}

	fmt.Fprintln(a.out, "\n✅ Task complete! Generating summary...")
	summary, err := a.source.SummarizeSession(ctx, task, *history)
	if err != nil {
		a.logger.Warn("summary generation failed", map[string]interface{}{"error": err.Error()})
		return true, nil
	}
	fmt.Fprintf(a.out, "📝 Summary: %s\n", summary)
	*history = append(*history, domain.HistoryEntry{
		Role:    domain.RoleAssistant,
		Content: fmt.Sprintf("Summary: %s", summary),
	})
	return true, nil
}

// iterationControl applies the escalation ladder: ask an interactive user
// how to proceed after PromptAfter iterations, otherwise force a compression
// after CompressAfter. A negative returned iteration means stop. Compression
// resets the counter because the loop is effectively starting over on a
// smaller context.
func (a *AgentService) iterationControl(ctx context.Context, history []domain.HistoryEntry, iteration int) ([]domain.HistoryEntry, int) {
	if iteration >= a.loop.PromptAfter && a.prompter.Interactive() {
		switch a.prompter.ContinuationChoice() {
		case ports.ChoiceQuit:
			fmt.Fprintln(a.out, "🛑 Stopping execution.")
			return history, -1
		case ports.ChoiceRestart:
			fmt.Fprintln(a.out, "🔄 Restarting with compressed context...")
			return a.compress(ctx, history), 0
		case ports.ChoiceToggleApproval:
			status := "disabled"
			if a.session.ToggleApproval() {
				status = "enabled"
			}
			fmt.Fprintf(a.out, "🔒 Plan approval %s\n", status)
			return history, iteration
		}
		return history, iteration
	}
	if iteration >= a.loop.CompressAfter {
		fmt.Fprintln(a.out, "🔄 Auto-compressing context to continue...")
		return a.compress(ctx, history), 0
	}
	return history, iteration
}

// compress summarizes the middle of the transcript, keeping the original
// request and the most recent entries verbatim. Compression never fails: a
// failed summarization call falls back to a fixed placeholder note.
func (a *AgentService) compress(ctx context.Context, history []domain.HistoryEntry) []domain.HistoryEntry {
	if len(history) <= domain.MinCompressibleEntries {
		return history
	}
	keep := a.loop.KeepRecent
	if keep <= 0 {
		keep = domain.DefaultKeepRecent
	}
	if len(history)-keep <= 1 {
		return history
	}
	middle := history[1 : len(history)-keep]

	summary, err := a.source.SummarizeEntries(ctx, middle)
	if err != nil || summary == "" {
		a.logger.Warn("history summarization failed", map[string]interface{}{"entries": len(middle)})
		summary = domain.CompressionPlaceholder
	}

	compressed := make([]domain.HistoryEntry, 0, keep+2)
	compressed = append(compressed, history[0])
	compressed = append(compressed, domain.HistoryEntry{
		Role:    domain.RoleSystem,
		Content: fmt.Sprintf("Previous session summary: %s", summary),
	})
	compressed = append(compressed, history[len(history)-keep:]...)
	return compressed
}
