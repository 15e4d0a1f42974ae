package cli

import (
	"fmt"

	"github.com/lyzr/colorsort/common/bootstrap"
	"github.com/lyzr/colorsort/common/db"
	"github.com/lyzr/colorsort/common/repository"
	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the color sort tables",
		Long: `Create the color_sort_sequence table, and the volumes and images tables
when the host application has not created them. Safe to run repeatedly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			components, err := setup(ctx, cmd, rootOpts,
				bootstrap.WithoutRedis(),
				bootstrap.WithoutCache(),
				bootstrap.WithDBInitHook(func(database *db.DB) error {
					return repository.Migrate(ctx, database)
				}),
			)
			if err != nil {
				return err
			}
			defer components.Shutdown(ctx)

			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}
