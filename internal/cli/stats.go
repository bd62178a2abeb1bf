package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sundayezeilo/shortlink/internal/app"
	"github.com/sundayezeilo/shortlink/internal/shortener"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"
)

func newStatsCommand(bootstrap bootstrapFunc) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "stats <code>",
		Short: "Print usage statistics for a short code",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(*cobra.Command, []string) error {
			return validateOutput(output)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}

			pool, err := app.ConnectDatabase(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := shortener.NewService(app.NewRepository(pool), &shortener.ServiceConfig{
				StoreTimeout: cfg.Shortener.StoreTimeout,
				Logger:       logger,
			})
			link, err := svc.Stats(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeStats(cmd.OutOrStdout(), link.Stats(), output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputJSON, "output format: json or yaml")
	return cmd
}

func validateOutput(format string) error {
	switch format {
	case outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (want json or yaml)", format)
	}
}

func writeStats(w io.Writer, stats shortener.Stats, format string) error {
	switch format {
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(stats); err != nil {
			return fmt.Errorf("failed to encode stats: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
}
