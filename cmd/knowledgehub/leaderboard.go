package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/knowledgehub/workflow/internal/core/ports"
)

func newLeaderboardCmd(backend *string) *cobra.Command {
	var (
		q         ports.LeaderboardQuery
		timeframe string
	)

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the contributor leaderboard as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch timeframe {
			case "", "all":
			case "month":
				now := time.Now().UTC()
				q.Since = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
			default:
				return fmt.Errorf("unknown timeframe %q (want month or all)", timeframe)
			}

			a, err := setup(cmd.Context(), *backend, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			board, err := a.leaderboard.Leaderboard(cmd.Context(), q)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(board)
		},
	}
	cmd.Flags().StringVar(&q.Region, "region", "", "only score items from this region")
	cmd.Flags().StringVar(&q.Project, "project", "", "only score items from this project")
	cmd.Flags().StringVar(&q.Search, "search", "", "filter contributors by name")
	cmd.Flags().StringVar(&timeframe, "timeframe", "all", "month or all")
	return cmd
}
