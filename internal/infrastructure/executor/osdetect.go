package executor

import (
	"context"
	"strings"

	"github.com/nyxlabs/nyx/internal/domain"
	"github.com/nyxlabs/nyx/internal/ports"
)

// OS names handed to the planner. Package-manager hints in the prompts key
// off these exact strings.
const (
	osArch    = "Arch Linux"
	osDebian  = "Debian-based Linux"
	osGeneric = "Linux"
	osUnknown = "Unknown"
)

// Detector names the host distribution by first scanning prior command
// output in the history, then probing with cheap read-only commands.
type Detector struct {
	runner ports.CommandRunner
}

var _ ports.OSDetector = (*Detector)(nil)

// NewDetector creates a Detector that probes via the given runner.
func NewDetector(runner ports.CommandRunner) *Detector {
	return &Detector{runner: runner}
}

// Detect returns the distribution name. History evidence wins over probes so
// repeat calls inside a session never re-spawn processes.
func (d *Detector) Detect(ctx context.Context, history []domain.HistoryEntry) string {
	if name := fromHistory(history); name != "" {
		return name
	}
	return d.probe(ctx)
}

func fromHistory(history []domain.HistoryEntry) string {
	for _, entry := range history {
		if entry.Role != domain.RoleSystem {
			continue
		}
		content := entry.Content
		if !strings.Contains(content, "Linux") {
			continue
		}
		lower := strings.ToLower(content)
		switch {
		case strings.Contains(lower, "arch"):
			return osArch
		case strings.Contains(lower, "ubuntu"), strings.Contains(lower, "debian"):
			return osDebian
		case strings.Contains(content, "GNU"):
			return osGeneric
		}
	}
	return ""
}

func (d *Detector) probe(ctx context.Context) string {
	if rec := d.runner.Run(ctx, domain.Step{Command: "which", Args: []string{"pacman"}}); rec.ExitCode == 0 {
		return osArch
	}
	if rec := d.runner.Run(ctx, domain.Step{Command: "which", Args: []string{"apt-get"}}); rec.ExitCode == 0 {
		return osDebian
	}
	if rec := d.runner.Run(ctx, domain.Step{Command: "uname", Args: []string{"-a"}}); strings.Contains(rec.Output, "Linux") {
		return osGeneric
	}
	return osUnknown
}
