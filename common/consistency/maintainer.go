package consistency

import (
	"context"
	"fmt"

	"github.com/lyzr/colorsort/common/logger"
	"github.com/lyzr/colorsort/common/metrics"
	"github.com/lyzr/colorsort/common/repository"
)

// Maintainer keeps stored sequences in line with collection changes made by the host
type Maintainer struct {
	store repository.SequenceStore
	log   *logger.Logger
}

// NewMaintainer creates a maintainer
func NewMaintainer(store repository.SequenceStore, log *logger.Logger) *Maintainer {
	return &Maintainer{store: store, log: log}
}

// OnImagesAdded invalidates every sequence of the collection, pending ones included.
// New images would otherwise be missing from the stored orderings.
func (m *Maintainer) OnImagesAdded(ctx context.Context, collectionID int64, imageIDs []int64) (int64, error) {
	n, err := m.store.DeleteByCollection(ctx, collectionID)
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate sequences of collection %d: %w", collectionID, err)
	}

	metrics.SequencesRepaired.WithLabelValues("images_added").Add(float64(n))
	m.log.WithContext(ctx).WithCollection(collectionID).Info("images added, sequences invalidated",
		"image_count", len(imageIDs),
		"deleted", n)
	return n, nil
}

// OnImageDeleted removes the image from every populated sequence of the collection
func (m *Maintainer) OnImageDeleted(ctx context.Context, collectionID, imageID int64) (int, error) {
	n, err := m.store.RemoveImage(ctx, collectionID, imageID)
	if err != nil {
		return 0, fmt.Errorf("failed to remove image %d from sequences: %w", imageID, err)
	}

	metrics.SequencesRepaired.WithLabelValues("image_deleted").Add(float64(n))
	m.log.WithContext(ctx).WithCollection(collectionID).Info("image removed from sequences",
		"image_id", imageID,
		"updated", n)
	return n, nil
}

// OnCollectionDeleted removes every sequence of the collection
func (m *Maintainer) OnCollectionDeleted(ctx context.Context, collectionID int64) (int64, error) {
	n, err := m.store.DeleteByCollection(ctx, collectionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sequences of collection %d: %w", collectionID, err)
	}

	metrics.SequencesRepaired.WithLabelValues("collection_deleted").Add(float64(n))
	m.log.WithContext(ctx).WithCollection(collectionID).Info("collection deleted, sequences removed", "deleted", n)
	return n, nil
}
