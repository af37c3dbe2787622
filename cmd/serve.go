package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the batch scan workers",
		Long: `Starts the HTTP API together with the batch scan workers and blocks
until SIGINT or SIGTERM, then shuts down gracefully.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.Run(cmd.Context()); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}
}
