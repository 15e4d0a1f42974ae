package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/lyzr/colorsort/common/repository"
	"github.com/lyzr/colorsort/common/worker"
	"github.com/spf13/cobra"
)

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete pending sequences whose task was lost",
		Long: `Delete pending color sort sequences older than --older-than so their
colors can be requested again. Defaults to PENDING_TIMEOUT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("older-than") && olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}

			ctx := cmd.Context()
			components, err := setup(ctx, cmd, rootOpts)
			if err != nil {
				return err
			}
			defer components.Shutdown(ctx)

			cfg := components.Config
			if olderThan <= 0 {
				olderThan = cfg.Queue.PendingTimeout
			}

			store := repository.NewSequenceStore(components.DB, components.Cache, cfg.Cache.DefaultTTL, components.Logger)
			n, err := worker.NewPendingSweeper(store, olderThan, 0, components.Logger).Sweep(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d stale pending sequences\n", n)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "minimum age of deleted pending sequences")
	return cmd
}
