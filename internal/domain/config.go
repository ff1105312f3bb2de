package domain

// Config mirrors ~/.nyx/config.yaml.
type Config struct {
	ConfigFormatVersion string            `yaml:"config_format_version"`
	Model               ModelSettings     `yaml:"model"`
	Security            SecuritySettings  `yaml:"security"`
	Execution           ExecutionSettings `yaml:"execution"`
	History             HistorySettings   `yaml:"history"`
	Audit               AuditSettings     `yaml:"audit"`
	Loop                LoopSettings      `yaml:"loop"`
}

// ModelSettings selects the plan source backend.
type ModelSettings struct {
	Endpoint string `yaml:"endpoint"`
	Name     string `yaml:"name"`
}

// SecuritySettings locates the command safety policy.
type SecuritySettings struct {
	PolicyFile string `yaml:"policy_file"`
}

// ExecutionSettings controls how steps run.
type ExecutionSettings struct {
	RequireApproval bool `yaml:"require_approval"`
	// TimeoutSeconds bounds a single step; 0 disables the limit.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// HistorySettings configures transcript and execution-record persistence.
type HistorySettings struct {
	File          string `yaml:"file"`
	Database      string `yaml:"database"`
	RetentionDays int    `yaml:"retention_days"`
}

// AuditSettings locates the append-only audit log.
type AuditSettings struct {
	File string `yaml:"file"`
}

// LoopSettings bounds the control loop.
type LoopSettings struct {
	MaxIterations   int `yaml:"max_iterations"`
	PromptAfter     int `yaml:"prompt_after"`
	CompressAfter   int `yaml:"compress_after"`
	MaxContextChars int `yaml:"max_context_chars"`
	KeepRecent      int `yaml:"keep_recent"`
}
