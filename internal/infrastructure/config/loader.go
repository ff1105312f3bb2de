// Package config loads YAML configuration from ~/.nyx/config.yaml,
// seeding the file from embedded defaults on first run.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nyxlabs/nyx/assets"
	"github.com/nyxlabs/nyx/internal/domain"
	"github.com/nyxlabs/nyx/internal/pkg/filesystem"
	"github.com/nyxlabs/nyx/internal/ports"
)

// FileLoader loads configuration from ~/.nyx/config.yaml (overridable via
// NYX_CONFIG or an explicit path).
type FileLoader struct {
	overridePath string
}

var _ ports.ConfigProvider = (*FileLoader)(nil)

// NewFileLoader builds a loader. path may be empty to use the default chain.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load implements ports.ConfigProvider. A missing file is seeded from the
// embedded defaults so the first run leaves an editable config behind.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.resolvePath()
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return domain.Config{}, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if err := os.WriteFile(path, assets.DefaultConfigYAML, domain.SecureFilePermissions); err != nil {
				return domain.Config{}, fmt.Errorf("failed to seed default config: %w", err)
			}
			data = assets.DefaultConfigYAML
		} else {
			return domain.Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return hydrateDefaults(cfg), nil
}

func (l *FileLoader) resolvePath() string {
	if l.overridePath != "" {
		return ExpandPath(l.overridePath)
	}
	if custom := os.Getenv("NYX_CONFIG"); custom != "" {
		return ExpandPath(custom)
	}
	return filepath.Join(filesystem.UserHomeDir(), ".nyx", "config.yaml")
}

// hydrateDefaults fills in anything an edited or partial config left out,
// so downstream code never sees zero-valued loop bounds or empty paths.
func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.Model.Endpoint == "" {
		cfg.Model.Endpoint = "http://localhost:11434/api/generate"
	}
	if cfg.Model.Name == "" {
		cfg.Model.Name = "smollm2:1.7b"
	}
	if cfg.Security.PolicyFile == "" {
		cfg.Security.PolicyFile = filepath.Join(filesystem.UserHomeDir(), ".nyx", "policy.yaml")
	}
	if cfg.History.File == "" {
		cfg.History.File = filepath.Join(filesystem.UserHomeDir(), ".nyx", "history.json")
	}
	if cfg.History.Database == "" {
		cfg.History.Database = filepath.Join(filesystem.UserHomeDir(), ".nyx", "executions.db")
	}
	if cfg.Audit.File == "" {
		cfg.Audit.File = filepath.Join(filesystem.UserHomeDir(), ".nyx", "agent.log")
	}
	if cfg.Loop.MaxIterations == 0 {
		cfg.Loop.MaxIterations = domain.DefaultMaxIterations
	}
	if cfg.Loop.PromptAfter == 0 {
		cfg.Loop.PromptAfter = domain.DefaultPromptAfter
	}
	if cfg.Loop.CompressAfter == 0 {
		cfg.Loop.CompressAfter = domain.DefaultCompressAfter
	}
	if cfg.Loop.MaxContextChars == 0 {
		cfg.Loop.MaxContextChars = domain.DefaultMaxContextChars
	}
	if cfg.Loop.KeepRecent == 0 {
		cfg.Loop.KeepRecent = domain.DefaultKeepRecent
	}
	cfg.Security.PolicyFile = ExpandPath(cfg.Security.PolicyFile)
	cfg.History.File = ExpandPath(cfg.History.File)
	cfg.History.Database = ExpandPath(cfg.History.Database)
	cfg.Audit.File = ExpandPath(cfg.Audit.File)
	return cfg
}

// ExpandPath resolves a leading ~/ against the user home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(filesystem.UserHomeDir(), path[2:])
	}
	return path
}
