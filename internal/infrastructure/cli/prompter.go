package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/nyxlabs/nyx/internal/domain"
	"github.com/nyxlabs/nyx/internal/ports"
)

// Prompter implements the interactive confirmations over stdio. Every
// question degrades safely when no terminal is attached: sudo confirmation
// passes through, plan approval auto-approves, and the continuation prompt
// never fires at all because the loop checks Interactive first.
type Prompter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

var _ ports.Prompter = (*Prompter)(nil)

// NewPrompter constructs a prompter referencing stdio.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	interactive := false
	if in == nil {
		in = os.Stdin
		interactive = isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}
	if out == nil {
		out = os.Stdout
	}
	return &Prompter{
		in:          bufio.NewReader(in),
		out:         out,
		interactive: interactive,
	}
}

// NewTestPrompter builds a prompter over explicit streams that reports
// itself interactive.
func NewTestPrompter(in io.Reader, out io.Writer) *Prompter {
	p := NewPrompter(in, out)
	p.interactive = true
	return p
}

// Interactive reports whether stdin is a terminal.
func (p *Prompter) Interactive() bool {
	return p.interactive
}

// ConfirmSudo asks before a privilege-escalation step runs. Without a
// terminal there is nobody to ask, so the step proceeds.
func (p *Prompter) ConfirmSudo(step domain.Step) bool {
	if !p.interactive {
		return true
	}
	fmt.Fprintln(p.out, "🔑 Sudo command detected - may require password.")
	fmt.Fprintf(p.out, "🔒 Confirm sudo execution of '%s'? [y/N]: ", step.CommandLine())
	line, err := p.in.ReadString('\n')
	if err != nil {
		fmt.Fprintln(p.out, "\n❌ Sudo command cancelled.")
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// ApprovePlan shows the plan review and asks y/N/skip. Rejection is the
// default on any unrecognized answer or read error.
func (p *Prompter) ApprovePlan(plan domain.Plan, verdicts []domain.Verdict) ports.PlanApproval {
	fmt.Fprintln(p.out, "\n🔍 Plan Review:")
	for i, step := range plan.Steps {
		marker := "✅"
		if !verdicts[i].Allowed {
			marker = "⚠️"
		}
		fmt.Fprintf(p.out, "  %d. %s %s\n", i+1, marker, step.CommandLine())
		if !verdicts[i].Allowed {
			fmt.Fprintf(p.out, "      └─ %s\n", verdicts[i].Reason)
		}
	}

	fmt.Fprint(p.out, "\n🤔 Approve this plan? [y/N/s(kip)]: ")
	line, err := p.in.ReadString('\n')
	if err != nil {
		return ports.ApprovalNo
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return ports.ApprovalYes
	case "s", "skip":
		return ports.ApprovalSkip
	default:
		return ports.ApprovalNo
	}
}

// ContinuationChoice asks how to proceed after repeated iterations. EOF
// defaults to continue so a closed pipe never wedges the loop.
func (p *Prompter) ContinuationChoice() ports.ContinuationChoice {
	fmt.Fprint(p.out, "\n\n[Press Enter to continue, 'q' to quit, 'r' to restart context, 'a' to approve plans]: ")
	line, err := p.in.ReadString('\n')
	if err != nil {
		return ports.ChoiceContinue
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "q":
		return ports.ChoiceQuit
	case "r":
		return ports.ChoiceRestart
	case "a":
		return ports.ChoiceToggleApproval
	default:
		return ports.ChoiceContinue
	}
}
