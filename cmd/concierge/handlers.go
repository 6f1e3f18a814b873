package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/haasonsaas/concierge/internal/agent"
	"github.com/haasonsaas/concierge/internal/assistant"
	"github.com/haasonsaas/concierge/internal/config"
	"github.com/haasonsaas/concierge/internal/observability"
	"github.com/haasonsaas/concierge/internal/orchestrator"
	"github.com/haasonsaas/concierge/internal/schedule"
	"github.com/haasonsaas/concierge/internal/store"
	"github.com/haasonsaas/concierge/internal/tools"
	"github.com/haasonsaas/concierge/internal/tools/weather"
	"github.com/haasonsaas/concierge/internal/tools/websearch"
	"github.com/haasonsaas/concierge/internal/transport/telegram"
	"github.com/haasonsaas/concierge/pkg/models"
)

// shutdownTimeout bounds graceful shutdown after SIGINT/SIGTERM.
const shutdownTimeout = 30 * time.Second

// runServe implements the serve command.
func runServe(ctx context.Context, configPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if debug {
		cfg.Log.Level = "debug"
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	slog.SetDefault(logger)

	logger.Info("starting concierge",
		"version", version,
		"commit", commit,
		"config", configPath,
		"model", cfg.OpenAI.Model,
	)

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	registry := tools.NewRegistry()
	if cfg.WebSearch.Enabled {
		if err := registry.Register(websearch.New(websearch.Config{CacheTTL: cfg.WebSearch.CacheTTL})); err != nil {
			return fmt.Errorf("register web search tool: %w", err)
		}
	}
	if err := registry.Register(weather.New(weather.Config{})); err != nil {
		return fmt.Errorf("register weather tool: %w", err)
	}
	logger.Info("tools registered", "tools", registry.Names())

	client := assistant.NewOpenAIClient(assistant.OpenAIConfig{
		APIKey:       cfg.OpenAI.APIKey,
		Model:        cfg.OpenAI.Model,
		PollInterval: cfg.OpenAI.PollInterval,
		Logger:       logger,
	})

	sessions := agent.NewSessions(client, st, registry, logger)
	processor := agent.NewProcessor(client, registry, logger, agent.ProcessorConfig{
		MaxRounds:       cfg.Agent.MaxToolRounds,
		ToolConcurrency: cfg.Agent.ToolConcurrency,
		PerToolTimeout:  cfg.Agent.ToolTimeout,
	})

	tp, err := telegram.NewAdapter(telegram.Config{
		Token:  cfg.Telegram.Token,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("create telegram transport: %w", err)
	}

	orch := orchestrator.New(st, sessions, processor, tp, logger, orchestrator.Config{
		PresenceInterval: cfg.Agent.PresenceInterval,
	})
	schedules := schedule.NewRegistry(st, orch, logger)
	orch.SetSchedules(schedules)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := orch.Rebuild(ctx); err != nil {
		return fmt.Errorf("rebuild schedules: %w", err)
	}
	if err := orch.Start(ctx); err != nil {
		return fmt.Errorf("start orchestrator: %w", err)
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := orch.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("stop orchestrator: %w", err)
	}
	return nil
}

// openStore loads the config and opens the store for offline commands.
func openStore(configPath string) (*config.Config, store.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return cfg, st, nil
}

// runPromptsList implements "prompts list".
func runPromptsList(ctx context.Context, configPath, tenantID string) error {
	_, st, err := openStore(configPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := st.GetTenant(ctx, tenantID); err != nil {
		return err
	}
	jobs, err := st.ListJobsByTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("no scheduled prompts")
		return nil
	}
	for _, job := range jobs {
		fmt.Printf("%d\t%02d:%02d\t%s\n", job.ID, job.Hour, job.Minute, job.Prompt)
	}
	return nil
}

// runPromptsAdd implements "prompts add". The new timer is installed
// when the server next rebuilds its schedules.
func runPromptsAdd(ctx context.Context, configPath, tenantID, at, prompt string) error {
	firing, err := time.Parse("15:04", at)
	if err != nil {
		return models.ErrValidation(fmt.Sprintf("firing time %q is not HH:MM", at), err)
	}

	_, st, err := openStore(configPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := st.GetTenant(ctx, tenantID); err != nil {
		return err
	}

	job := &models.Job{
		TenantID: tenantID,
		Hour:     firing.Hour(),
		Minute:   firing.Minute(),
		Prompt:   prompt,
	}
	if err := st.CreateJob(ctx, job); err != nil {
		return err
	}
	fmt.Printf("created job %d\n", job.ID)
	return nil
}

// runPromptsRemove implements "prompts remove".
func runPromptsRemove(ctx context.Context, configPath string, jobID int64) error {
	_, st, err := openStore(configPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeleteJob(ctx, jobID); err != nil {
		return err
	}
	fmt.Printf("removed job %d\n", jobID)
	return nil
}

// runTenantsSet implements "tenants set".
func runTenantsSet(ctx context.Context, configPath, tenantID, instructions, timezone string) error {
	if _, err := time.LoadLocation(timezone); err != nil {
		return models.ErrValidation(fmt.Sprintf("unknown timezone %q", timezone), err)
	}

	_, st, err := openStore(configPath)
	if err != nil {
		return err
	}
	defer st.Close()

	tenant := &models.Tenant{ID: tenantID, Instructions: instructions, Timezone: timezone}
	if err := st.UpsertTenant(ctx, tenant); err != nil {
		return err
	}
	fmt.Printf("tenant %s saved\n", tenantID)
	return nil
}
