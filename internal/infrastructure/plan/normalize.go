// Package plan turns raw plan-source output into a canonical, bounded
// sequence of steps. It owns the two untrusted-input boundaries: extracting
// a JSON object from free-form model text, and normalizing heterogeneous
// step shapes into {command, args} pairs with shell operators rejected.
package plan

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nyxlabs/nyx/internal/domain"
	"github.com/nyxlabs/nyx/internal/pkg/shellwords"
)

// ErrSourceError marks an explicit {"error": ...} envelope from the plan source.
var ErrSourceError = errors.New("plan source error")

// ErrMalformed marks an envelope without a usable plan array.
var ErrMalformed = errors.New("malformed plan")

// shellOperators is the fixed token set that disqualifies a step. This is a
// token-equality check by design: operators embedded inside a larger
// argument never reach execution anyway because the executor refuses
// metacharacter command lines outright.
var shellOperators = map[string]struct{}{
	"&&": {}, "||": {}, ";": {}, "|": {}, ">": {}, "<": {},
}

// StepInput is the tagged union of plan-step shapes the source may emit:
// a raw shell-like string or a structured {command, args} object.
type StepInput struct {
	Raw        string
	Structured *StructuredStep
}

// StructuredStep is the object form of a step. Args may arrive as a string
// (tokenized), an array (entries validated as strings), or be missing.
type StructuredStep struct {
	Command string
	Args    []string
}

// UnmarshalJSON decodes either variant. Steps that are neither a string nor
// an object decode to the zero StepInput and are dropped by Normalize.
func (s *StepInput) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		s.Raw = raw
		return nil
	}

	var obj struct {
		Command string          `json:"command"`
		Args    json.RawMessage `json:"args"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		// Not a string, not an object: leave the zero value.
		return nil
	}
	s.Structured = &StructuredStep{
		Command: obj.Command,
		Args:    decodeArgs(obj.Args),
	}
	return nil
}

// decodeArgs accepts a string (tokenized), an array of strings, or anything
// else (treated as empty, including arrays with non-string entries).
func decodeArgs(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		tokens, err := shellwords.Split(asString)
		if err != nil {
			return nil
		}
		return tokens
	}
	var asArray []string
	if err := json.Unmarshal(raw, &asArray); err == nil {
		return asArray
	}
	return nil
}

// Document is the decoded plan envelope.
type Document struct {
	Steps []StepInput
	Err   string
}

// Parse decodes the extracted JSON text into a Document. It returns
// ErrSourceError when the source reported an error, and ErrMalformed when
// the envelope is unparsable or carries no plan array.
func Parse(text string) (Document, error) {
	var envelope struct {
		Plan  json.RawMessage `json:"plan"`
		Error string          `json:"error"`
	}
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if envelope.Error != "" {
		return Document{Err: envelope.Error}, fmt.Errorf("%w: %s", ErrSourceError, envelope.Error)
	}
	if len(envelope.Plan) == 0 {
		return Document{}, fmt.Errorf("%w: missing plan array", ErrMalformed)
	}
	var steps []StepInput
	if err := json.Unmarshal(envelope.Plan, &steps); err != nil {
		return Document{}, fmt.Errorf("%w: plan is not an array", ErrMalformed)
	}
	return Document{Steps: steps}, nil
}

// Normalize reduces a Document to the canonical Plan. Invalid or unsafe
// steps are dropped silently — never partially executed — and surviving
// steps keep their input order. Normalizing an already-normal plan is a
// no-op, so the operation is idempotent.
func Normalize(doc Document) domain.Plan {
	var out domain.Plan
	for _, input := range doc.Steps {
		step, ok := normalizeStep(input)
		if !ok {
			continue
		}
		out.Steps = append(out.Steps, step)
	}
	return out
}

// FromSteps wraps an already-normalized plan back into a Document, mainly
// so callers can re-run Normalize over prior output.
func FromSteps(steps []domain.Step) Document {
	doc := Document{Steps: make([]StepInput, 0, len(steps))}
	for _, step := range steps {
		args := append([]string(nil), step.Args...)
		doc.Steps = append(doc.Steps, StepInput{
			Structured: &StructuredStep{Command: step.Command, Args: args},
		})
	}
	return doc
}

func normalizeStep(input StepInput) (domain.Step, bool) {
	var cmd string
	var args []string

	switch {
	case input.Raw != "":
		tokens, err := shellwords.Split(input.Raw)
		if err != nil || len(tokens) == 0 {
			return domain.Step{}, false
		}
		cmd, args = tokens[0], tokens[1:]
	case input.Structured != nil:
		cmd = input.Structured.Command
		args = append([]string(nil), input.Structured.Args...)
		// A command field with embedded whitespace is split; the extra
		// tokens are prepended to args.
		if cmd != "" {
			tokens, err := shellwords.Split(cmd)
			if err != nil || len(tokens) == 0 {
				return domain.Step{}, false
			}
			cmd = tokens[0]
			args = append(tokens[1:], args...)
		}
	default:
		return domain.Step{}, false
	}

	if cmd == "" {
		return domain.Step{}, false
	}
	if hasShellOperator(cmd, args) {
		return domain.Step{}, false
	}
	return domain.Step{Command: cmd, Args: args}, true
}

func hasShellOperator(cmd string, args []string) bool {
	if _, ok := shellOperators[cmd]; ok {
		return true
	}
	for _, arg := range args {
		if _, ok := shellOperators[arg]; ok {
			return true
		}
	}
	return false
}
