package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sundayezeilo/shortlink/internal/app"
	"github.com/sundayezeilo/shortlink/internal/sweeper"
)

func newSweepCommand(bootstrap bootstrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete every expired link once, for external schedulers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}

			pool, err := app.ConnectDatabase(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			s := sweeper.New(app.NewRepository(pool), sweeper.Config{
				Interval: cfg.Sweeper.Interval,
				Logger:   logger,
			})
			n, err := s.SweepOnce(cmd.Context())
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired links\n", n)
			return err
		},
	}
}
