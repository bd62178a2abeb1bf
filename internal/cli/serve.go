package cli

import (
	"github.com/spf13/cobra"

	"github.com/sundayezeilo/shortlink/internal/app"
)

func newServeCommand(bootstrap bootstrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the expiry sweeper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			application, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer application.Shutdown()

			return application.Start(ctx)
		},
	}
}
