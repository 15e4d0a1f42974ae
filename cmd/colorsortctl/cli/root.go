package cli

import (
	"context"
	"fmt"

	"github.com/lyzr/colorsort/common/bootstrap"
	"github.com/lyzr/colorsort/common/logger"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel string
	Format   string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the admin CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "colorsortctl",
		Short: "Administer color sort sequences",
		Long:  "Schema migration, maintenance and diagnostics for the color sort service.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewComputeCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))

	return cmd
}

// setup bootstraps the components a command needs. Logs go to stderr so
// command output stays parseable.
func setup(ctx context.Context, cmd *cobra.Command, opts *RootOptions, extra ...bootstrap.Option) (*bootstrap.Components, error) {
	log := logger.NewWithWriter(cmd.ErrOrStderr(), opts.LogLevel, "text")

	options := append([]bootstrap.Option{
		bootstrap.WithCustomLogger(log),
		bootstrap.WithoutQueue(),
		bootstrap.WithoutTelemetry(),
	}, extra...)

	return bootstrap.Setup(ctx, "colorsortctl", options...)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
