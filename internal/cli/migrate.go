package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sundayezeilo/shortlink/internal/app"
)

func newMigrateCommand(bootstrap bootstrapFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigrate(cmd, bootstrap, true)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigrate(cmd, bootstrap, false)
			},
		},
	)
	return cmd
}

func runMigrate(cmd *cobra.Command, bootstrap bootstrapFunc, up bool) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}

	pool, err := app.ConnectDatabase(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := app.Migrate(pool, logger, up); err != nil {
		return err
	}

	direction := "applied"
	if !up {
		direction = "rolled back"
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "migrations %s\n", direction)
	return err
}
