package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lyzr/colorsort/common/logger"
	"github.com/lyzr/colorsort/common/metrics"
	"github.com/lyzr/colorsort/common/models"
	"github.com/lyzr/colorsort/common/ranker"
	"github.com/lyzr/colorsort/common/repository"
	"github.com/lyzr/colorsort/common/thumbnails"
)

// ThumbnailBatcher makes thumbnails available as local files while fn runs
type ThumbnailBatcher interface {
	Batch(ctx context.Context, locs []thumbnails.Location, fn func(paths []string) error) error
}

// ComputeSequenceHandler computes pending sequences.
// A task is attempted once; on any failure the pending record is deleted so
// the color can be requested again.
type ComputeSequenceHandler struct {
	store    repository.SequenceStore
	catalog  repository.ImageCatalog
	resolver *thumbnails.Resolver
	files    ThumbnailBatcher
	ranker   ranker.Ranker
	timeout  time.Duration
	log      *logger.Logger
}

// NewComputeSequenceHandler creates the handler. A zero timeout disables the deadline.
func NewComputeSequenceHandler(
	store repository.SequenceStore,
	catalog repository.ImageCatalog,
	resolver *thumbnails.Resolver,
	files ThumbnailBatcher,
	rk ranker.Ranker,
	timeout time.Duration,
	log *logger.Logger,
) *ComputeSequenceHandler {
	return &ComputeSequenceHandler{
		store:    store,
		catalog:  catalog,
		resolver: resolver,
		files:    files,
		ranker:   rk,
		timeout:  timeout,
		log:      log,
	}
}

// HandleMessage decodes a task payload and handles it
func (h *ComputeSequenceHandler) HandleMessage(ctx context.Context, payload []byte) error {
	var task ComputeSequenceTask
	if err := json.Unmarshal(payload, &task); err != nil {
		return fmt.Errorf("failed to unmarshal %s task: %w", KindComputeSequence, err)
	}
	return h.Handle(ctx, task)
}

// Handle computes and stores the sequence of task's record
func (h *ComputeSequenceHandler) Handle(ctx context.Context, task ComputeSequenceTask) (err error) {
	start := time.Now()
	log := h.log.WithContext(ctx).WithSequence(task.SequenceID.String(), task.CollectionID, task.Color)
	outcome := metrics.OutcomeSucceeded

	defer func() {
		if r := recover(); r != nil {
			outcome = metrics.OutcomePanicked
			err = fmt.Errorf("compute sequence panicked: %v", r)
			log.Error("compute sequence panicked", "panic", r)
			h.fail(ctx, task, log)
		}
		metrics.SequenceTasks.WithLabelValues(outcome).Inc()
		metrics.SequenceTaskDuration.Observe(time.Since(start).Seconds())
	}()

	seq, err := h.store.GetByID(ctx, task.SequenceID)
	if errors.Is(err, models.ErrNotFound) {
		outcome = metrics.OutcomeMissing
		log.Info("sequence no longer exists, skipping")
		return nil
	}
	if err != nil {
		outcome = metrics.OutcomeFailed
		log.Error("failed to load sequence", "error", err)
		h.fail(ctx, task, log)
		return err
	}

	stored, err := h.compute(ctx, seq, log)
	if err != nil {
		outcome = metrics.OutcomeFailed
		log.Error("failed to compute sequence", "error", err)
		h.fail(ctx, task, log)
		return err
	}
	if !stored {
		outcome = metrics.OutcomeMissing
	}

	log.Info("sequence computed", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// compute ranks the collection and stores the result. It reports false when
// the record was deleted before the result could be stored.
func (h *ComputeSequenceHandler) compute(ctx context.Context, seq *models.Sequence, log *logger.Logger) (bool, error) {
	images, err := h.catalog.ListImages(ctx, seq.CollectionID)
	if err != nil {
		return false, fmt.Errorf("failed to list images: %w", err)
	}

	ids, err := h.rank(ctx, seq.Color, images)
	if err != nil {
		return false, err
	}

	// images may have been removed while ranking
	members, err := h.catalog.ListImages(ctx, seq.CollectionID)
	if err != nil {
		return false, fmt.Errorf("failed to list images: %w", err)
	}
	ids, err = models.Intersect(ids, models.ImageIDs(members))
	if err != nil {
		return false, err
	}

	ok, err := h.store.SetResult(ctx, seq.ID, ids)
	if err != nil {
		return false, fmt.Errorf("failed to store sequence: %w", err)
	}
	if !ok {
		log.Info("sequence deleted while computing, result discarded")
		return false, nil
	}

	// deletions after the membership read only saw a pending record
	after, err := h.catalog.ListImages(ctx, seq.CollectionID)
	if err != nil {
		return true, fmt.Errorf("failed to list images: %w", err)
	}
	current := make(map[int64]struct{}, len(after))
	for _, img := range after {
		current[img.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := current[id]; ok {
			continue
		}
		if err := h.removeImage(ctx, seq.CollectionID, id, log); err != nil {
			return true, err
		}
		log.Info("removed image deleted during computation", "image_id", id)
	}

	return true, nil
}

// removeImage retries once so a transient store error does not discard a stored result
func (h *ComputeSequenceHandler) removeImage(ctx context.Context, collectionID, imageID int64, log *logger.Logger) error {
	_, err := h.store.RemoveImage(ctx, collectionID, imageID)
	if err == nil {
		return nil
	}

	log.Warn("failed to remove image, retrying", "image_id", imageID, "error", err)
	if _, err := h.store.RemoveImage(ctx, collectionID, imageID); err != nil {
		return fmt.Errorf("failed to remove image %d: %w", imageID, err)
	}
	return nil
}

func (h *ComputeSequenceHandler) rank(ctx context.Context, color string, images []models.Image) ([]int64, error) {
	metrics.RankedImages.Observe(float64(len(images)))
	if len(images) == 0 {
		return []int64{}, nil
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	locs := h.resolver.ResolveAll(images)

	var ids []int64
	err := h.files.Batch(ctx, locs, func(paths []string) error {
		items := make([]ranker.Item, len(locs))
		for i, loc := range locs {
			items[i] = ranker.Item{ImageID: loc.ImageID, Path: paths[i]}
		}

		var err error
		ids, err = h.ranker.Rank(ctx, ranker.Request{Color: color, Items: items})
		if err != nil {
			return err
		}
		return ranker.Validate(items, ids)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return nil, fmt.Errorf("%w: %v", ctxErr, err)
		}
		return nil, err
	}

	return ids, nil
}

// fail deletes the pending record so the color can be requested again
func (h *ComputeSequenceHandler) fail(ctx context.Context, task ComputeSequenceTask, log *logger.Logger) {
	err := h.store.Delete(context.WithoutCancel(ctx), task.SequenceID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		log.Error("failed to delete sequence after failure", "error", err)
		return
	}
	log.Warn("deleted sequence after failed computation")
}
