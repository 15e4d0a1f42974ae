package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/lyzr/colorsort/common/logger"
	"github.com/lyzr/colorsort/common/metrics"
	"github.com/lyzr/colorsort/common/models"
	"github.com/lyzr/colorsort/common/repository"
	"github.com/lyzr/colorsort/common/worker"
)

// Policy decides whether a collection can be color sorted
type Policy interface {
	Sortable(col *models.Collection) (bool, error)
}

// TaskSubmitter schedules background tasks
type TaskSubmitter interface {
	Submit(ctx context.Context, task worker.Task) error
}

// SequenceService handles color sort sequence requests
type SequenceService struct {
	store   repository.SequenceStore
	catalog repository.ImageCatalog
	policy  Policy
	tasks   TaskSubmitter
	log     *logger.Logger
}

// NewSequenceService creates a new sequence service
func NewSequenceService(
	store repository.SequenceStore,
	catalog repository.ImageCatalog,
	policy Policy,
	tasks TaskSubmitter,
	log *logger.Logger,
) *SequenceService {
	return &SequenceService{
		store:   store,
		catalog: catalog,
		policy:  policy,
		tasks:   tasks,
		log:     log,
	}
}

// Create inserts a pending sequence and schedules its computation.
// It returns as soon as the task is queued.
func (s *SequenceService) Create(ctx context.Context, collectionID int64, rawColor string) (*models.Sequence, error) {
	color, err := models.NormalizeColor(rawColor)
	if err != nil {
		return nil, err
	}

	col, err := s.catalog.GetCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	sortable, err := s.policy.Sortable(col)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate sortable policy: %w", err)
	}
	if !sortable {
		return nil, models.NewValidationError("id", "%s volumes cannot be color sorted", col.MediaType)
	}

	seq, err := s.store.Create(ctx, collectionID, color)
	if err != nil {
		return nil, err
	}

	log := s.log.WithContext(ctx).WithSequence(seq.ID.String(), collectionID, color)

	task := worker.ComputeSequenceTask{
		SequenceID:   seq.ID,
		CollectionID: collectionID,
		Color:        color,
	}
	if err := s.tasks.Submit(ctx, task); err != nil {
		log.Error("failed to submit compute task", "error", err)
		if delErr := s.store.Delete(context.WithoutCancel(ctx), seq.ID); delErr != nil && !errors.Is(delErr, models.ErrNotFound) {
			log.Error("failed to delete unscheduled sequence", "error", delErr)
		}
		return nil, fmt.Errorf("failed to schedule computation: %w", err)
	}

	metrics.SequencesRequested.Inc()
	log.Info("color sort sequence requested")

	return seq, nil
}

// ListColors returns the colors with a computed sequence
func (s *SequenceService) ListColors(ctx context.Context, collectionID int64) ([]string, error) {
	if err := s.requireSortable(ctx, collectionID); err != nil {
		return nil, err
	}
	return s.store.ListColors(ctx, collectionID)
}

// Get returns the sequence for a color. A pending record has a nil Sequence.
func (s *SequenceService) Get(ctx context.Context, collectionID int64, rawColor string) (*models.Sequence, error) {
	color, err := models.NormalizeColor(rawColor)
	if err != nil {
		return nil, models.ErrNotFound
	}

	if err := s.requireSortable(ctx, collectionID); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, collectionID, color)
}

// Delete removes the sequence for a color, pending or populated
func (s *SequenceService) Delete(ctx context.Context, collectionID int64, rawColor string) error {
	color, err := models.NormalizeColor(rawColor)
	if err != nil {
		return models.ErrNotFound
	}

	if _, err := s.catalog.GetCollection(ctx, collectionID); err != nil {
		return err
	}

	if err := s.store.DeleteByColor(ctx, collectionID, color); err != nil {
		return err
	}

	s.log.WithContext(ctx).WithCollection(collectionID).Info("color sort sequence deleted", "color", color)
	return nil
}

// requireSortable hides sequences of collections that cannot be sorted
func (s *SequenceService) requireSortable(ctx context.Context, collectionID int64) error {
	col, err := s.catalog.GetCollection(ctx, collectionID)
	if err != nil {
		return err
	}

	sortable, err := s.policy.Sortable(col)
	if err != nil {
		return fmt.Errorf("failed to evaluate sortable policy: %w", err)
	}
	if !sortable {
		return models.ErrNotFound
	}
	return nil
}
