package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newBootstrapCmd(backend *string) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Seed the default accounts into an empty store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd.Context(), *backend, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			seeded, err := a.accounts.Bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			if seeded == 0 {
				cmd.Println("users already present, nothing seeded")
				return nil
			}
			cmd.Printf("seeded %d accounts\n", seeded)
			return nil
		},
	}
}
