package cli

import (
	"errors"
	"fmt"

	"github.com/lyzr/colorsort/common/bootstrap"
	"github.com/lyzr/colorsort/common/repository"
	"github.com/spf13/cobra"
)

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all color sort sequences",
		Long: `Delete every stored color sort sequence, pending ones included.
Users have to request their colors again afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete all sequences without --yes")
			}

			ctx := cmd.Context()
			components, err := setup(ctx, cmd, rootOpts, bootstrap.WithoutRedis(), bootstrap.WithoutCache())
			if err != nil {
				return err
			}
			defer components.Shutdown(ctx)

			if err := repository.Clear(ctx, components.DB); err != nil {
				return err
			}

			// cached entries expire on their own
			components.Logger.Info("all color sort sequences deleted",
				"cache_ttl", components.Config.Cache.DefaultTTL)
			fmt.Fprintln(cmd.OutOrStdout(), "deleted all color sort sequences")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting all sequences")
	return cmd
}
