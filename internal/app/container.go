// Package app wires application services to infrastructure adapters.
package app

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nyxlabs/nyx/internal/domain"
	"github.com/nyxlabs/nyx/internal/infrastructure/ai"
	"github.com/nyxlabs/nyx/internal/infrastructure/config"
	"github.com/nyxlabs/nyx/internal/infrastructure/executor"
	"github.com/nyxlabs/nyx/internal/infrastructure/history"
	"github.com/nyxlabs/nyx/internal/infrastructure/safety"
	"github.com/nyxlabs/nyx/internal/pkg/logger"
	"github.com/nyxlabs/nyx/internal/ports"
	"github.com/nyxlabs/nyx/internal/services"
)

// Options tunes container construction from CLI flags. Stream and Prompter
// are injected by the presentation layer so this package stays free of
// terminal concerns.
type Options struct {
	Verbose         bool
	Model           string
	RequireApproval bool
	ConfigPath      string
	Out             io.Writer
	Stream          ports.StreamWriter
	Prompter        ports.Prompter
}

// Container holds the wired dependency graph for one session.
type Container struct {
	Agent     *services.AgentService
	Config    domain.Config
	SessionID string
	Records   ports.RecordStore
	Logger    ports.Logger
}

// BuildContainer constructs the dependency graph. A broken execution
// database degrades to no record keeping rather than failing the session.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	cfgLoader := config.NewFileLoader(opts.ConfigPath)
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Model != "" {
		cfg.Model.Name = opts.Model
	}

	log := logger.NewStd(opts.Verbose)
	sessionID := uuid.NewString()

	policy, err := safety.NewPolicy(cfg.Security.PolicyFile)
	if err != nil {
		return nil, err
	}

	audit, err := executor.NewAuditLog(cfg.Audit.File, sessionID)
	if err != nil {
		log.Warn("audit log unavailable", map[string]interface{}{"error": err.Error()})
		audit = nil
	}
	runner := executor.NewLocalExecutor(policy, audit,
		time.Duration(cfg.Execution.TimeoutSeconds)*time.Second, sessionID)

	var records ports.RecordStore
	if store, err := history.NewSQLiteRecordStore(cfg.History.Database); err != nil {
		log.Warn("execution database unavailable", map[string]interface{}{"error": err.Error()})
	} else {
		records = store
		if err := store.PruneOlderThan(cfg.History.RetentionDays); err != nil {
			log.Warn("failed to prune execution records", map[string]interface{}{"error": err.Error()})
		}
	}

	streamClient := &http.Client{Timeout: domain.DefaultStreamIdleTimeout}
	source := ai.NewClient(cfg.Model.Endpoint, cfg.Model.Name, streamClient, opts.Stream)

	session := &domain.SessionConfig{
		RequireApproval: opts.RequireApproval || cfg.Execution.RequireApproval,
	}

	agent := services.NewAgentService(services.AgentDeps{
		Source:   source,
		Policy:   policy,
		Runner:   runner,
		History:  history.NewTranscriptStore(cfg.History.File),
		Records:  records,
		Prompter: opts.Prompter,
		OSDetect: executor.NewDetector(runner),
		Logger:   log,
		Out:      opts.Out,
		Session:  session,
		Loop:     cfg.Loop,
	})

	return &Container{
		Agent:     agent,
		Config:    cfg,
		SessionID: sessionID,
		Records:   records,
		Logger:    log,
	}, nil
}

// Close releases container-held resources.
func (c *Container) Close() error {
	if c.Records != nil {
		return c.Records.Close()
	}
	return nil
}
