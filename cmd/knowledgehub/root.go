package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/knowledgehub/workflow/internal/core/service"
	"github.com/knowledgehub/workflow/internal/infrastructure/config"
	"github.com/knowledgehub/workflow/internal/infrastructure/security"
	"github.com/knowledgehub/workflow/internal/infrastructure/storage"
	"github.com/knowledgehub/workflow/pkg/logger"
)

const serviceName = "knowledgehub"

func newRootCmd() *cobra.Command {
	var backend string

	root := &cobra.Command{
		Use:   "knowledgehub",
		Short: "Knowledge sharing governance workflow engine",
		Long: `knowledgehub tracks account approval, knowledge submission and
validation decisions, and scores contributors on a leaderboard.

Configuration is read from the environment (PORT, STORAGE_BACKEND,
MONGO_URI, REDIS_ADDR, JWT_SECRET, ...).`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&backend, "backend", "", "override STORAGE_BACKEND (memory, file, sqlite, mongo)")

	root.AddCommand(newServeCmd(&backend))
	root.AddCommand(newBootstrapCmd(&backend))
	root.AddCommand(newLeaderboardCmd(&backend))
	return root
}

// app is the wired engine shared by every subcommand.
type app struct {
	cfg         *config.Config
	log         zerolog.Logger
	backend     *storage.Backend
	accounts    *service.AccountService
	knowledge   *service.KnowledgeService
	leaderboard *service.LeaderboardService
}

// setup loads configuration and wires storage and services. Logs go to
// logOut, or stdout when nil.
func setup(ctx context.Context, backendOverride string, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if backendOverride != "" {
		cfg.Storage.Backend = backendOverride
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Output:  logOut,
		Service: serviceName,
	})

	backend, err := storage.Open(ctx, cfg, logger.Component(log, "storage"))
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}

	policy := service.KnowledgePolicy{
		StrictDecisions: cfg.Workflow.StrictDecisions,
		AllowRedecision: cfg.Workflow.AllowRedecision,
	}
	hasher := security.NewBcryptHasher(cfg.Security.BcryptCost)

	return &app{
		cfg:         cfg,
		log:         log,
		backend:     backend,
		accounts:    service.NewAccountService(backend.Users, hasher, logger.Component(log, "accounts")),
		knowledge:   service.NewKnowledgeService(backend.Knowledge, backend.Idempotency, policy, logger.Component(log, "knowledge")),
		leaderboard: service.NewLeaderboardService(backend.Knowledge),
	}, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.backend.Close(ctx); err != nil {
		a.log.Error().Err(err).Msg("failed to close storage")
	}
}
