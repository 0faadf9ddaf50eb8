package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/knowledgehub/workflow/internal/api"
	"github.com/knowledgehub/workflow/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(backend *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx, *backend, nil)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			seeded, err := a.accounts.Bootstrap(ctx)
			if err != nil {
				return err
			}
			if seeded > 0 {
				a.log.Info().Int("accounts", seeded).Msg("seeded default accounts")
			}

			e := api.NewRouter(api.Dependencies{
				Accounts:    a.accounts,
				Knowledge:   a.knowledge,
				Leaderboard: a.leaderboard,
				Checks:      a.backend.Checks,
				JWTSecret:   a.cfg.JWTSecret,
				Logger:      logger.Component(a.log, "http"),
			})

			errCh := make(chan error, 1)
			go func() {
				a.log.Info().
					Str("port", a.cfg.Port).
					Str("backend", a.backend.Name).
					Bool("verified_callers", a.cfg.JWTSecret != "").
					Msg("server starting")
				if err := e.Start(":" + a.cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	}
}
