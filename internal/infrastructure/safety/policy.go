// Package safety implements the command safety classifier: a deterministic,
// side-effect-free mapping from a (command, args) pair to an allow/deny
// verdict. Policy sets load from ~/.nyx/policy.yaml and fall back to
// embedded defaults when the file is missing.
package safety

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nyxlabs/nyx/assets"
	"github.com/nyxlabs/nyx/internal/domain"
	"github.com/nyxlabs/nyx/internal/pkg/filesystem"
	"github.com/nyxlabs/nyx/internal/ports"
)

// sudoCommand is the privilege-escalation wrapper with its own validation tier.
const sudoCommand = "sudo"

// Policy implements the SafetyPolicy port.
type Policy struct {
	allow          map[string]struct{}
	deny           map[string]struct{}
	sudoTargets    map[string]struct{}
	dangerousFlags []string
}

// PolicyDocument is the YAML schema root.
type PolicyDocument struct {
	Rules struct {
		Allow          []string `yaml:"allow"`
		Deny           []string `yaml:"deny"`
		SudoTargets    []string `yaml:"sudo_targets"`
		DangerousFlags []string `yaml:"dangerous_flags"`
	} `yaml:"rules"`
}

// NewPolicy loads policy rules from disk (or embedded defaults when missing).
func NewPolicy(path string) (*Policy, error) {
	doc, err := loadRules(path)
	if err != nil {
		return nil, err
	}
	return fromDocument(doc), nil
}

// FromDocument builds a classifier from an in-memory policy document.
func FromDocument(doc PolicyDocument) *Policy {
	return fromDocument(doc)
}

func fromDocument(doc PolicyDocument) *Policy {
	return &Policy{
		allow:          toSet(doc.Rules.Allow),
		deny:           toSet(doc.Rules.Deny),
		sudoTargets:    toSet(doc.Rules.SudoTargets),
		dangerousFlags: doc.Rules.DangerousFlags,
	}
}

// Classify implements ports.SafetyPolicy. Tiers are checked in order:
// deny-set first, so an explicitly dangerous command is never rescued by
// also appearing in the allow-set; then allow-set membership; then the
// sudo tier for the privilege-escalation wrapper.
func (p *Policy) Classify(command string, args []string) domain.Verdict {
	if _, denied := p.deny[command]; denied {
		return domain.Deny(fmt.Sprintf("Command '%s' is in the dangerous commands list", command))
	}
	if _, allowed := p.allow[command]; !allowed {
		return domain.Deny(fmt.Sprintf("Command '%s' is not in the allowed commands list", command))
	}
	if command == sudoCommand {
		return p.classifySudo(args)
	}
	return domain.Allow()
}

// classifySudo validates the wrapper: the first argument must be one of the
// reduced safe targets (package and service managers only), and no argument
// may contain a dangerous-flag substring — containment, not equality, so
// "-rfv" is still caught.
func (p *Policy) classifySudo(args []string) domain.Verdict {
	if len(args) == 0 {
		return domain.Deny("Sudo command requires arguments")
	}
	target := args[0]
	if _, ok := p.sudoTargets[target]; !ok {
		return domain.Deny(fmt.Sprintf("Sudo with '%s' is not allowed", target))
	}
	for _, arg := range args {
		for _, flag := range p.dangerousFlags {
			if strings.Contains(arg, flag) {
				return domain.Deny(fmt.Sprintf("Dangerous flag detected: %s", arg))
			}
		}
	}
	return domain.Allow()
}

func loadRules(path string) (PolicyDocument, error) {
	var doc PolicyDocument
	path = expandPolicyPath(path)
	data, err := os.ReadFile(path)
	if err != nil {
		// fall back to embedded defaults
		return defaultDocument()
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return PolicyDocument{}, err
	}
	if len(doc.Rules.Allow) == 0 && len(doc.Rules.Deny) == 0 {
		return defaultDocument()
	}
	if len(doc.Rules.DangerousFlags) == 0 {
		def, err := defaultDocument()
		if err != nil {
			return PolicyDocument{}, err
		}
		doc.Rules.DangerousFlags = def.Rules.DangerousFlags
	}
	return doc, nil
}

func defaultDocument() (PolicyDocument, error) {
	var doc PolicyDocument
	if err := yaml.Unmarshal(assets.DefaultPolicyYAML, &doc); err != nil {
		return PolicyDocument{}, fmt.Errorf("embedded policy: %w", err)
	}
	return doc, nil
}

func expandPolicyPath(path string) string {
	if path == "" {
		return filepath.Join(filesystem.UserHomeDir(), ".nyx", "policy.yaml")
	}
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(filesystem.UserHomeDir(), path[2:])
	}
	return filepath.Join(filesystem.UserHomeDir(), path)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		set[value] = struct{}{}
	}
	return set
}

var _ ports.SafetyPolicy = (*Policy)(nil)

// LoadPolicyDocument returns the raw YAML structure.
func LoadPolicyDocument(path string) (PolicyDocument, error) {
	return loadRules(path)
}

// SavePolicyDocument writes the YAML structure to disk.
func SavePolicyDocument(path string, doc PolicyDocument) error {
	path = expandPolicyPath(path)
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return err
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
