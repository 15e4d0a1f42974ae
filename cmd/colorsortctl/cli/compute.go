package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/lyzr/colorsort/common/models"
	"github.com/lyzr/colorsort/common/repository"
	"github.com/lyzr/colorsort/common/worker"
	"github.com/spf13/cobra"
)

// ComputeResult is the outcome of a synchronous computation
type ComputeResult struct {
	VolumeID   int64   `json:"volume_id"`
	Color      string  `json:"color"`
	Sequence   []int64 `json:"sequence"`
	DurationMS int64   `json:"duration_ms"`
}

// NewComputeCommand creates the compute command.
func NewComputeCommand(rootOpts *RootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "compute <volume-id> <color>",
		Short: "Compute a color sort sequence synchronously",
		Long: `Compute and store the color sort sequence of a volume in this process,
bypassing the task queue. Useful to diagnose ranker failures.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			volumeID, color, err := parseComputeArgs(args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			components, err := setup(ctx, cmd, rootOpts)
			if err != nil {
				return err
			}
			defer components.Shutdown(ctx)

			cfg := components.Config
			log := components.Logger
			store := repository.NewSequenceStore(components.DB, components.Cache, cfg.Cache.DefaultTTL, log)
			catalog := repository.NewPostgresImageCatalog(components.DB)

			if force {
				if err := store.DeleteByColor(ctx, volumeID, color); err != nil && !errors.Is(err, models.ErrNotFound) {
					return err
				}
			}

			seq, err := store.Create(ctx, volumeID, color)
			if errors.Is(err, models.ErrConflict) {
				return fmt.Errorf("a sequence for %s already exists, use --force to recompute", color)
			}
			if err != nil {
				return err
			}

			start := time.Now()
			handler := worker.NewComputeSequenceHandlerFromConfig(cfg, store, catalog, log)
			if err := handler.Handle(ctx, worker.ComputeSequenceTask{
				SequenceID:   seq.ID,
				CollectionID: volumeID,
				Color:        color,
			}); err != nil {
				return err
			}

			stored, err := store.Get(ctx, volumeID, color)
			if err != nil {
				return fmt.Errorf("sequence was not stored: %w", err)
			}

			return writeComputeResult(cmd.OutOrStdout(), rootOpts.Format, ComputeResult{
				VolumeID:   volumeID,
				Color:      color,
				Sequence:   stored.Sequence,
				DurationMS: time.Since(start).Milliseconds(),
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "replace an existing sequence")
	return cmd
}

func parseComputeArgs(args []string) (int64, string, error) {
	volumeID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || volumeID <= 0 {
		return 0, "", fmt.Errorf("invalid volume id %q", args[0])
	}

	color, err := models.NormalizeColor(args[1])
	if err != nil {
		return 0, "", err
	}
	return volumeID, color, nil
}

func writeComputeResult(w io.Writer, format string, res ComputeResult) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	ids := make([]string, len(res.Sequence))
	for i, id := range res.Sequence {
		ids[i] = strconv.FormatInt(id, 10)
	}
	_, err := fmt.Fprintf(w, "volume %d, color %s: %d images in %dms\n%s\n",
		res.VolumeID, res.Color, len(res.Sequence), res.DurationMS, strings.Join(ids, " "))
	return err
}
