// Package domain defines core business entities and value objects for nyx.
//
// The domain layer is independent of infrastructure concerns and represents
// pure data structures: plan steps, safety verdicts, execution records, and
// the conversation history exchanged with the plan source.
package domain

import "strings"

// Step is one planned action: an executable name and its argument vector.
// Arguments are opaque tokens; no further tokenization is performed on them.
type Step struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

// CommandLine renders the step as a display string. Arguments containing
// whitespace are quoted so the rendered line reads unambiguously.
func (s Step) CommandLine() string {
	parts := make([]string, 0, 1+len(s.Args))
	parts = append(parts, s.Command)
	for _, arg := range s.Args {
		if strings.ContainsAny(arg, " \t\n") {
			parts = append(parts, "'"+arg+"'")
			continue
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// Plan is the ordered sequence of steps produced for one planning iteration.
type Plan struct {
	Steps []Step
}

// Empty reports whether no valid steps survived normalization. An empty plan
// is treated as malformed by the control loop, never as a no-op success.
func (p Plan) Empty() bool {
	return len(p.Steps) == 0
}
