package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nyxlabs/nyx/internal/domain"
	"github.com/nyxlabs/nyx/internal/infrastructure/safety"
	"github.com/nyxlabs/nyx/internal/ports"
)

// fakeSource scripts plan-source behavior per call.
type fakeSource struct {
	plans       []ports.PlanText
	planErrs    []error
	planCalls   int
	complete    []bool
	checkCalls  int
	checkErr    error
	summary     string
	compressed  string
	compressErr error
}

func (f *fakeSource) GeneratePlan(context.Context, ports.PlanRequest) (ports.PlanText, error) {
	idx := f.planCalls
	f.planCalls++
	if idx < len(f.planErrs) && f.planErrs[idx] != nil {
		return ports.PlanText{}, f.planErrs[idx]
	}
	if idx >= len(f.plans) {
		return f.plans[len(f.plans)-1], nil
	}
	return f.plans[idx], nil
}

func (f *fakeSource) CheckCompletion(context.Context, string, []domain.HistoryEntry) (bool, error) {
	idx := f.checkCalls
	f.checkCalls++
	if f.checkErr != nil {
		return false, f.checkErr
	}
	if idx >= len(f.complete) {
		return false, nil
	}
	return f.complete[idx], nil
}

func (f *fakeSource) SummarizeSession(context.Context, string, []domain.HistoryEntry) (string, error) {
	return f.summary, nil
}

func (f *fakeSource) SummarizeEntries(context.Context, []domain.HistoryEntry) (string, error) {
	if f.compressErr != nil {
		return "", f.compressErr
	}
	return f.compressed, nil
}

// fakeRunner returns scripted exit codes per command line.
type fakeRunner struct {
	exitCodes map[string]int
	ran       []string
}

func (f *fakeRunner) Run(_ context.Context, step domain.Step) domain.ExecutionRecord {
	line := step.CommandLine()
	f.ran = append(f.ran, line)
	code := f.exitCodes[line]
	return domain.ExecutionRecord{
		Command:  step.Command,
		Args:     step.Args,
		ExitCode: code,
		Output:   fmt.Sprintf("output of %s\n", line),
	}
}

// memoryHistory captures the saved transcript.
type memoryHistory struct {
	saved []domain.HistoryEntry
}

func (m *memoryHistory) Load() ([]domain.HistoryEntry, error) { return nil, nil }
func (m *memoryHistory) Save(e []domain.HistoryEntry) error   { m.saved = e; return nil }
func (m *memoryHistory) Path() string                         { return "memory" }

// silentPrompter is non-interactive and approves everything unless scripted
// otherwise.
type silentPrompter struct {
	interactive  bool
	choices      []ports.ContinuationChoice
	choiceCalls  int
	approvals    []ports.PlanApproval
	approveCalls int
	sudoOK       bool
}

func (p *silentPrompter) Interactive() bool            { return p.interactive }
func (p *silentPrompter) ConfirmSudo(domain.Step) bool { return p.sudoOK }
func (p *silentPrompter) ApprovePlan(domain.Plan, []domain.Verdict) ports.PlanApproval {
	idx := p.approveCalls
	p.approveCalls++
	if idx >= len(p.approvals) {
		return ports.ApprovalYes
	}
	return p.approvals[idx]
}
func (p *silentPrompter) ContinuationChoice() ports.ContinuationChoice {
	idx := p.choiceCalls
	p.choiceCalls++
	if idx >= len(p.choices) {
		return ports.ChoiceContinue
	}
	return p.choices[idx]
}

type fixedOS struct{ name string }

func (f fixedOS) Detect(context.Context, []domain.HistoryEntry) string { return f.name }

type nopLogger struct{}

func (nopLogger) Debug(string, map[string]interface{})        {}
func (nopLogger) Info(string, map[string]interface{})         {}
func (nopLogger) Warn(string, map[string]interface{})         {}
func (nopLogger) Error(string, error, map[string]interface{}) {}

type allowAll struct{}

func (allowAll) Classify(string, []string) domain.Verdict { return domain.Allow() }

func planText(jsonText string) ports.PlanText {
	return ports.PlanText{Raw: "<think>reasoning</think>\n" + jsonText, JSON: jsonText}
}

func newAgent(source *fakeSource, runner *fakeRunner, prompter ports.Prompter, history *memoryHistory, out *bytes.Buffer) *AgentService {
	return NewAgentService(AgentDeps{
		Source:   source,
		Policy:   allowAll{},
		Runner:   runner,
		History:  history,
		Prompter: prompter,
		OSDetect: fixedOS{"Arch Linux"},
		Logger:   nopLogger{},
		Out:      out,
		Session:  &domain.SessionConfig{},
		Loop: domain.LoopSettings{
			MaxIterations:   10,
			PromptAfter:     3,
			CompressAfter:   5,
			MaxContextChars: 4000,
			KeepRecent:      3,
		},
	})
}

func TestRunCompletesAfterSuccessfulPlan(t *testing.T) {
	source := &fakeSource{
		plans:    []ports.PlanText{planText(`{"plan": ["ls -la"]}`)},
		complete: []bool{true},
		summary:  "Listed the directory contents.",
	}
	runner := &fakeRunner{exitCodes: map[string]int{}}
	history := &memoryHistory{}
	var out bytes.Buffer

	agent := newAgent(source, runner, &silentPrompter{sudoOK: true}, history, &out)
	if err := agent.Run(context.Background(), "list files"); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(runner.ran) != 1 || runner.ran[0] != "ls -la" {
		t.Fatalf("ran = %v", runner.ran)
	}
	if !strings.Contains(out.String(), "Task complete!") {
		t.Fatalf("output missing completion: %q", out.String())
	}
	last := history.saved[len(history.saved)-1]
	if last.Role != domain.RoleAssistant || !strings.Contains(last.Content, "Summary: Listed") {
		t.Fatalf("summary not appended: %+v", last)
	}
	if history.saved[0].Content != "list files" {
		t.Fatalf("history not seeded with task: %+v", history.saved[0])
	}
}

func TestRunReplansAfterFailedStep(t *testing.T) {
	source := &fakeSource{
		plans: []ports.PlanText{
			planText(`{"plan": ["cat /missing", "whoami"]}`),
			planText(`{"plan": ["ls -la"]}`),
		},
		complete: []bool{true},
		summary:  "done",
	}
	runner := &fakeRunner{exitCodes: map[string]int{"cat /missing": 1}}
	history := &memoryHistory{}
	var out bytes.Buffer

	agent := newAgent(source, runner, &silentPrompter{sudoOK: true}, history, &out)
	if err := agent.Run(context.Background(), "inspect"); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	// Fail-fast: whoami never ran in the first plan.
	want := []string{"cat /missing", "ls -la"}
	if diff := cmp.Diff(want, runner.ran); diff != "" {
		t.Fatalf("ran mismatch (-want +got):\n%s", diff)
	}

	var failureNoted bool
	for _, entry := range history.saved {
		if entry.Role == domain.RoleSystem && strings.Contains(entry.Content, "Exit code: 1") {
			failureNoted = true
		}
	}
	if !failureNoted {
		t.Fatal("failed execution not recorded in history")
	}
}

func TestRunWhichExitOneCountsAsSuccess(t *testing.T) {
	source := &fakeSource{
		plans:    []ports.PlanText{planText(`{"plan": ["which calc"]}`)},
		complete: []bool{true},
		summary:  "calc is gone",
	}
	runner := &fakeRunner{exitCodes: map[string]int{"which calc": 1}}
	history := &memoryHistory{}
	var out bytes.Buffer

	agent := newAgent(source, runner, &silentPrompter{sudoOK: true}, history, &out)
	if err := agent.Run(context.Background(), "verify calc removed"); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if source.checkCalls != 1 {
		t.Fatalf("completion should have been checked once, got %d", source.checkCalls)
	}
	if len(runner.ran) != 1 {
		t.Fatalf("ran = %v, which exit 1 must not trigger a replan", runner.ran)
	}
}

func TestRunStopsAtMaxIterations(t *testing.T) {
	source := &fakeSource{
		plans: []ports.PlanText{planText(`{"plan": ["false"]}`)},
	}
	runner := &fakeRunner{exitCodes: map[string]int{"false": 1}}
	history := &memoryHistory{}
	var out bytes.Buffer

	agent := newAgent(source, runner, &silentPrompter{sudoOK: true}, history, &out)
	if err := agent.Run(context.Background(), "impossible"); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if source.planCalls != 10 {
		t.Fatalf("planCalls = %d, want the full iteration budget", source.planCalls)
	}
	if !strings.Contains(out.String(), "maximum iterations") {
		t.Fatalf("output missing stop notice: %q", out.String())
	}
}

func TestRunMalformedPlanTriggersReplan(t *testing.T) {
	source := &fakeSource{
		plans: []ports.PlanText{
			{Raw: "gibberish", JSON: `{"error": "Failed to extract JSON from AI response."}`},
			planText(`{"plan": ["uptime"]}`),
		},
		complete: []bool{true},
		summary:  "done",
	}
	runner := &fakeRunner{exitCodes: map[string]int{}}
	history := &memoryHistory{}
	var out bytes.Buffer

	agent := newAgent(source, runner, &silentPrompter{sudoOK: true}, history, &out)
	if err := agent.Run(context.Background(), "check uptime"); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if source.planCalls != 2 {
		t.Fatalf("planCalls = %d", source.planCalls)
	}

	var noted bool
	for _, entry := range history.saved {
		if entry.Role == domain.RoleSystem && strings.Contains(entry.Content, "AI service error") {
			noted = true
		}
	}
	if !noted {
		t.Fatal("source error not recorded in history")
	}
}

func TestRunBackendUnreachableContinues(t *testing.T) {
	backendDown := errors.New("model backend unreachable")
	source := &fakeSource{
		plans:    []ports.PlanText{{}, planText(`{"plan": ["uptime"]}`)},
		planErrs: []error{backendDown, nil},
		complete: []bool{true},
		summary:  "done",
	}
	runner := &fakeRunner{exitCodes: map[string]int{}}
	history := &memoryHistory{}
	var out bytes.Buffer

	agent := newAgent(source, runner, &silentPrompter{sudoOK: true}, history, &out)
	if err := agent.Run(context.Background(), "check uptime"); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if source.planCalls != 2 {
		t.Fatalf("planCalls = %d", source.planCalls)
	}
}

func TestRunSudoDeclineAbortsPlanOnly(t *testing.T) {
	source := &fakeSource{
		plans: []ports.PlanText{
			planText(`{"plan": ["sudo pacman -S python"]}`),
			planText(`{"plan": ["which python"]}`),
		},
		complete: []bool{true},
		summary:  "done",
	}
	runner := &fakeRunner{exitCodes: map[string]int{}}
	history := &memoryHistory{}
	var out bytes.Buffer

	agent := newAgent(source, runner, &silentPrompter{sudoOK: false}, history, &out)
	if err := agent.Run(context.Background(), "install python"); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(runner.ran) != 1 || runner.ran[0] != "which python" {
		t.Fatalf("ran = %v, sudo step must not execute after decline", runner.ran)
	}

	var cancelled bool
	for _, entry := range history.saved {
		if strings.Contains(entry.Content, "User declined sudo") {
			cancelled = true
		}
	}
	if !cancelled {
		t.Fatal("sudo cancellation not recorded")
	}
}

func TestRunQuitChoiceStops(t *testing.T) {
	source := &fakeSource{
		plans: []ports.PlanText{planText(`{"plan": ["uptime"]}`)},
	}
	runner := &fakeRunner{exitCodes: map[string]int{}}
	history := &memoryHistory{}
	var out bytes.Buffer

	prompter := &silentPrompter{
		interactive: true,
		sudoOK:      true,
		choices: []ports.ContinuationChoice{
			ports.ChoiceContinue, ports.ChoiceQuit,
		},
	}
	agent := newAgent(source, runner, prompter, history, &out)
	if err := agent.Run(context.Background(), "loop forever"); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	// Prompted at iterations 3 and 4; quit on the second prompt.
	if source.planCalls != 4 {
		t.Fatalf("planCalls = %d", source.planCalls)
	}
	if !strings.Contains(out.String(), "Stopping execution") {
		t.Fatalf("output missing stop notice: %q", out.String())
	}
}

func TestRunSkippedPlanSkipsCompletionCheck(t *testing.T) {
	// A skipped plan runs no commands, so the session must never be declared
	// complete on its account. The loop falls through to iteration control.
	source := &fakeSource{
		plans:    []ports.PlanText{planText(`{"plan": ["ls -la"]}`)},
		complete: []bool{true},
		summary:  "should never be generated",
	}
	runner := &fakeRunner{exitCodes: map[string]int{}}
	history := &memoryHistory{}
	var out bytes.Buffer

	prompter := &silentPrompter{
		interactive: true,
		sudoOK:      true,
		approvals:   []ports.PlanApproval{ports.ApprovalSkip, ports.ApprovalSkip, ports.ApprovalSkip},
		choices:     []ports.ContinuationChoice{ports.ChoiceQuit},
	}
	agent := newAgent(source, runner, prompter, history, &out)
	agent.session.RequireApproval = true
	if err := agent.Run(context.Background(), "list files"); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(runner.ran) != 0 {
		t.Fatalf("ran = %v, skipped plans must not execute", runner.ran)
	}
	if source.checkCalls != 0 {
		t.Fatalf("checkCalls = %d, completion must not be consulted after a skip", source.checkCalls)
	}
	// Skips count as iterations, so the continuation prompt fired at 3.
	if source.planCalls != 3 {
		t.Fatalf("planCalls = %d", source.planCalls)
	}
	if strings.Contains(out.String(), "Task complete!") {
		t.Fatalf("skip must not complete the task: %q", out.String())
	}
	if !strings.Contains(out.String(), "Plan skipped by user") {
		t.Fatalf("skip notice missing: %q", out.String())
	}
}

func TestCompressKeepsEndpointsAndResetsCounter(t *testing.T) {
	source := &fakeSource{compressed: "installed several packages"}
	runner := &fakeRunner{}
	history := &memoryHistory{}
	var out bytes.Buffer
	agent := newAgent(source, runner, &silentPrompter{}, history, &out)

	entries := []domain.HistoryEntry{
		{Role: domain.RoleUser, Content: "install things"},
		{Role: domain.RoleAssistant, Content: "plan 1"},
		{Role: domain.RoleSystem, Content: "result 1"},
		{Role: domain.RoleAssistant, Content: "plan 2"},
		{Role: domain.RoleSystem, Content: "result 2"},
		{Role: domain.RoleAssistant, Content: "plan 3"},
		{Role: domain.RoleSystem, Content: "result 3"},
	}
	got := agent.compress(context.Background(), entries)
	want := []domain.HistoryEntry{
		{Role: domain.RoleUser, Content: "install things"},
		{Role: domain.RoleSystem, Content: "Previous session summary: installed several packages"},
		{Role: domain.RoleSystem, Content: "result 2"},
		{Role: domain.RoleAssistant, Content: "plan 3"},
		{Role: domain.RoleSystem, Content: "result 3"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("compress mismatch (-want +got):\n%s", diff)
	}
}

func TestCompressShortHistoryUntouched(t *testing.T) {
	source := &fakeSource{compressed: "anything"}
	agent := newAgent(source, &fakeRunner{}, &silentPrompter{}, &memoryHistory{}, &bytes.Buffer{})

	entries := []domain.HistoryEntry{
		{Role: domain.RoleUser, Content: "task"},
		{Role: domain.RoleSystem, Content: "one"},
	}
	got := agent.compress(context.Background(), entries)
	if diff := cmp.Diff(entries, got); diff != "" {
		t.Fatalf("short history must pass through (-want +got):\n%s", diff)
	}
}

func TestCompressFallsBackToPlaceholder(t *testing.T) {
	source := &fakeSource{compressErr: errors.New("backend down")}
	agent := newAgent(source, &fakeRunner{}, &silentPrompter{}, &memoryHistory{}, &bytes.Buffer{})

	entries := make([]domain.HistoryEntry, 8)
	for i := range entries {
		entries[i] = domain.HistoryEntry{Role: domain.RoleSystem, Content: fmt.Sprintf("entry %d", i)}
	}
	got := agent.compress(context.Background(), entries)
	if len(got) != 5 {
		t.Fatalf("len = %d", len(got))
	}
	if !strings.Contains(got[1].Content, domain.CompressionPlaceholder) {
		t.Fatalf("placeholder missing: %+v", got[1])
	}
}

func TestInstallPythonOnArchEndToEnd(t *testing.T) {
	// Full pipeline with the real policy and normalizer: the plan source
	// answers an Arch install task with the pacman step from its prompt
	// examples, and every layer lets it through.
	policy, err := safety.NewPolicy("/nonexistent/policy.yaml")
	if err != nil {
		t.Fatalf("NewPolicy error: %v", err)
	}
	source := &fakeSource{
		plans: []ports.PlanText{planText(
			`{"plan": [{"command": "sudo", "args": ["pacman", "-S", "--noconfirm", "python"]}]}`,
		)},
		complete: []bool{true},
		summary:  "Installed python with pacman.",
	}
	runner := &fakeRunner{exitCodes: map[string]int{}}
	history := &memoryHistory{}
	var out bytes.Buffer

	agent := NewAgentService(AgentDeps{
		Source:   source,
		Policy:   policy,
		Runner:   runner,
		History:  history,
		Prompter: &silentPrompter{sudoOK: true},
		OSDetect: fixedOS{"Arch Linux"},
		Logger:   nopLogger{},
		Out:      &out,
		Session:  &domain.SessionConfig{},
		Loop:     domain.LoopSettings{MaxIterations: 10, PromptAfter: 3, CompressAfter: 5, MaxContextChars: 4000, KeepRecent: 3},
	})
	if err := agent.Run(context.Background(), "install python"); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(runner.ran) != 1 || runner.ran[0] != "sudo pacman -S --noconfirm python" {
		t.Fatalf("ran = %v", runner.ran)
	}
	if !strings.Contains(out.String(), "✅ sudo pacman -S --noconfirm python") {
		t.Fatalf("plan should render as allowed: %q", out.String())
	}
	if !strings.Contains(out.String(), "Summary: Installed python") {
		t.Fatalf("summary missing: %q", out.String())
	}
}

func TestRunWithRealPolicyBlocksDeniedCommand(t *testing.T) {
	policy, err := safety.NewPolicy("/nonexistent/policy.yaml")
	if err != nil {
		t.Fatalf("NewPolicy error: %v", err)
	}
	source := &fakeSource{
		plans: []ports.PlanText{
			planText(`{"plan": ["ls -la"]}`),
		},
		complete: []bool{true},
		summary:  "done",
	}
	runner := &fakeRunner{exitCodes: map[string]int{}}
	history := &memoryHistory{}
	var out bytes.Buffer

	agent := NewAgentService(AgentDeps{
		Source:   source,
		Policy:   policy,
		Runner:   runner,
		History:  history,
		Prompter: &silentPrompter{sudoOK: true},
		OSDetect: fixedOS{"Arch Linux"},
		Logger:   nopLogger{},
		Out:      &out,
		Session:  &domain.SessionConfig{},
		Loop:     domain.LoopSettings{MaxIterations: 3, PromptAfter: 3, CompressAfter: 5, MaxContextChars: 4000, KeepRecent: 3},
	})
	if err := agent.Run(context.Background(), "list files"); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !strings.Contains(out.String(), "✅ ls -la") {
		t.Fatalf("plan rendering missing verdict marker: %q", out.String())
	}
}
