package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lyzr/colorsort/common/models"
)

type pairKey struct {
	collectionID int64
	color        string
}

// MemorySequenceStore is an in-memory SequenceStore for tests and single process setups
type MemorySequenceStore struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*models.Sequence
	byPair map[pairKey]uuid.UUID
}

// NewMemorySequenceStore creates an empty in-memory store
func NewMemorySequenceStore() *MemorySequenceStore {
	return &MemorySequenceStore{
		byID:   make(map[uuid.UUID]*models.Sequence),
		byPair: make(map[pairKey]uuid.UUID),
	}
}

func (s *MemorySequenceStore) Create(ctx context.Context, collectionID int64, color string) (*models.Sequence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{collectionID, color}
	if _, exists := s.byPair[key]; exists {
		return nil, models.ErrConflict
	}

	seq := &models.Sequence{
		ID:           uuid.New(),
		CollectionID: collectionID,
		Color:        color,
		CreatedAt:    time.Now(),
	}
	s.byID[seq.ID] = seq
	s.byPair[key] = seq.ID

	return seq.Clone(), nil
}

func (s *MemorySequenceStore) Get(ctx context.Context, collectionID int64, color string) (*models.Sequence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byPair[pairKey{collectionID, color}]
	if !ok {
		return nil, models.ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *MemorySequenceStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Sequence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seq, ok := s.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return seq.Clone(), nil
}

func (s *MemorySequenceStore) ListColors(ctx context.Context, collectionID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	colors := []string{}
	for _, seq := range s.byID {
		if seq.CollectionID == collectionID && !seq.Pending() {
			colors = append(colors, seq.Color)
		}
	}
	sort.Strings(colors)
	return colors, nil
}

func (s *MemorySequenceStore) SetResult(ctx context.Context, id uuid.UUID, sequence []int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	seq.Sequence = append([]int64{}, sequence...)
	return true, nil
}

func (s *MemorySequenceStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, ok := s.byID[id]
	if !ok {
		return models.ErrNotFound
	}
	s.remove(seq)
	return nil
}

func (s *MemorySequenceStore) DeleteByColor(ctx context.Context, collectionID int64, color string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byPair[pairKey{collectionID, color}]
	if !ok {
		return models.ErrNotFound
	}
	s.remove(s.byID[id])
	return nil
}

func (s *MemorySequenceStore) DeleteByCollection(ctx context.Context, collectionID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, seq := range s.byID {
		if seq.CollectionID == collectionID {
			s.remove(seq)
			n++
		}
	}
	return n, nil
}

func (s *MemorySequenceStore) RemoveImage(ctx context.Context, collectionID, imageID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for _, seq := range s.byID {
		if seq.CollectionID != collectionID || seq.Pending() {
			continue
		}
		next, removed, err := models.Without(seq.Sequence, imageID)
		if err != nil {
			return updated, err
		}
		if removed {
			seq.Sequence = next
			updated++
		}
	}
	return updated, nil
}

func (s *MemorySequenceStore) DeleteStalePending(ctx context.Context, before time.Time) ([]models.Sequence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted []models.Sequence
	for _, seq := range s.byID {
		if seq.Pending() && seq.CreatedAt.Before(before) {
			deleted = append(deleted, *seq.Clone())
			s.remove(seq)
		}
	}
	return deleted, nil
}

// Len returns the number of stored records
func (s *MemorySequenceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *MemorySequenceStore) remove(seq *models.Sequence) {
	delete(s.byID, seq.ID)
	delete(s.byPair, pairKey{seq.CollectionID, seq.Color})
}
