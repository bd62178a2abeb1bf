// Package cli defines the shortlink command tree.
package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sundayezeilo/shortlink/internal/app"
	"github.com/sundayezeilo/shortlink/internal/config"
)

// bootstrapFunc loads configuration and a logger. Tests replace it.
type bootstrapFunc func() (*config.Config, *slog.Logger, error)

// NewRootCommand builds the shortlink command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(app.Bootstrap)
}

func newRootCommand(bootstrap bootstrapFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           "shortlink",
		Short:         "URL shortener service",
		Long:          "shortlink maps long URLs to short codes, redirects visitors, tracks usage and expires old links.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCommand(bootstrap),
		newMigrateCommand(bootstrap),
		newSweepCommand(bootstrap),
		newStatsCommand(bootstrap),
	)
	return root
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
