package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lyzr/colorsort/common/cache"
	"github.com/lyzr/colorsort/common/logger"
	"github.com/lyzr/colorsort/common/models"
	"golang.org/x/sync/singleflight"
)

// CachedSequenceStore caches populated sequences in front of another store.
// Pending records are never cached, every write path invalidates.
//
// Each invalidation also writes a fresh generation token for the key. A fill
// only keeps its entry when the token it saw before reading the inner store is
// unchanged after the write, so a read that raced a write never outlives it.
// Tokens live in the cache itself and work across processes sharing it.
type CachedSequenceStore struct {
	SequenceStore
	cache cache.Cache
	ttl   time.Duration
	sf    *singleflight.Group
	mu    sync.Mutex // orders fills against invalidations of this process
	epoch uint64     // bumped by every local invalidation
	log   *logger.Logger
}

type cachedSequence struct {
	ID           uuid.UUID `json:"id"`
	CollectionID int64     `json:"collection_id"`
	Color        string    `json:"color"`
	Sequence     []int64   `json:"sequence"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewCachedSequenceStore wraps inner with a read cache
func NewCachedSequenceStore(inner SequenceStore, c cache.Cache, ttl time.Duration, log *logger.Logger) *CachedSequenceStore {
	return &CachedSequenceStore{
		SequenceStore: inner,
		cache:         c,
		ttl:           ttl,
		sf:            &singleflight.Group{},
		log:           log,
	}
}

func sequenceKey(collectionID int64, color string) string {
	return fmt.Sprintf("seq:%d:%s", collectionID, color)
}

func generationKey(key string) string {
	return key + ":gen"
}

// Get serves populated sequences from cache, filling misses once per key
func (s *CachedSequenceStore) Get(ctx context.Context, collectionID int64, color string) (*models.Sequence, error) {
	key := sequenceKey(collectionID, color)

	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		s.log.Warn("sequence cache read failed", "key", key, "error", err)
	} else if ok {
		var cs cachedSequence
		if err := json.Unmarshal(raw, &cs); err == nil {
			return &models.Sequence{
				ID:           cs.ID,
				CollectionID: cs.CollectionID,
				Color:        cs.Color,
				Sequence:     cs.Sequence,
				CreatedAt:    cs.CreatedAt,
			}, nil
		}
		_ = s.cache.Delete(ctx, key)
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		epoch := s.currentEpoch()
		gen, genErr := s.generation(ctx, key)
		start := time.Now()

		seq, err := s.SequenceStore.Get(ctx, collectionID, color)
		if err != nil {
			return nil, err
		}
		if !seq.Pending() && genErr == nil && time.Since(start) < s.ttl {
			s.fill(ctx, key, epoch, gen, seq)
		}
		return seq, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*models.Sequence).Clone(), nil
}

func (s *CachedSequenceStore) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// fill caches seq unless key was invalidated since epoch and gen were read
func (s *CachedSequenceStore) fill(ctx context.Context, key string, epoch uint64, gen string, seq *models.Sequence) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch || !s.unchanged(ctx, key, gen) {
		return
	}
	s.store(ctx, key, seq)

	// another process may have invalidated between the check and the write
	if !s.unchanged(ctx, key, gen) {
		_ = s.cache.Delete(ctx, key)
	}
}

func (s *CachedSequenceStore) generation(ctx context.Context, key string) (string, error) {
	raw, ok, err := s.cache.Get(ctx, generationKey(key))
	if err != nil || !ok {
		return "", err
	}
	return string(raw), nil
}

func (s *CachedSequenceStore) unchanged(ctx context.Context, key, gen string) bool {
	current, err := s.generation(ctx, key)
	return err == nil && current == gen
}

func (s *CachedSequenceStore) store(ctx context.Context, key string, seq *models.Sequence) {
	raw, err := json.Marshal(cachedSequence{
		ID:           seq.ID,
		CollectionID: seq.CollectionID,
		Color:        seq.Color,
		Sequence:     seq.Sequence,
		CreatedAt:    seq.CreatedAt,
	})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		s.log.Warn("sequence cache write failed", "key", key, "error", err)
	}
}

func (s *CachedSequenceStore) invalidate(ctx context.Context, collectionID int64, colors ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	for _, color := range colors {
		key := sequenceKey(collectionID, color)
		s.sf.Forget(key)
		if err := s.cache.Set(ctx, generationKey(key), []byte(uuid.NewString()), s.ttl); err != nil {
			s.log.Warn("sequence cache generation write failed", "key", key, "error", err)
		}
		if err := s.cache.Delete(ctx, key); err != nil {
			s.log.Warn("sequence cache invalidation failed", "key", key, "error", err)
		}
	}
}

// SetResult stores the result and drops any cached copy
func (s *CachedSequenceStore) SetResult(ctx context.Context, id uuid.UUID, sequence []int64) (bool, error) {
	ok, err := s.SequenceStore.SetResult(ctx, id, sequence)
	if err != nil || !ok {
		return ok, err
	}

	if seq, err := s.SequenceStore.GetByID(ctx, id); err == nil {
		s.invalidate(ctx, seq.CollectionID, seq.Color)
	}
	return true, nil
}

// Delete removes a record and drops any cached copy
func (s *CachedSequenceStore) Delete(ctx context.Context, id uuid.UUID) error {
	seq, err := s.SequenceStore.GetByID(ctx, id)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}

	if err := s.SequenceStore.Delete(ctx, id); err != nil {
		return err
	}

	if seq != nil {
		s.invalidate(ctx, seq.CollectionID, seq.Color)
	}
	return nil
}

// DeleteByColor removes a record and drops any cached copy
func (s *CachedSequenceStore) DeleteByColor(ctx context.Context, collectionID int64, color string) error {
	defer s.invalidate(ctx, collectionID, color)
	return s.SequenceStore.DeleteByColor(ctx, collectionID, color)
}

// DeleteByCollection removes all records of a collection and their cached copies
func (s *CachedSequenceStore) DeleteByCollection(ctx context.Context, collectionID int64) (int64, error) {
	colors, err := s.SequenceStore.ListColors(ctx, collectionID)
	if err != nil {
		return 0, err
	}
	defer s.invalidate(ctx, collectionID, colors...)

	return s.SequenceStore.DeleteByCollection(ctx, collectionID)
}

// RemoveImage rewrites sequences and drops the cached copies of the collection
func (s *CachedSequenceStore) RemoveImage(ctx context.Context, collectionID, imageID int64) (int, error) {
	colors, err := s.SequenceStore.ListColors(ctx, collectionID)
	if err != nil {
		return 0, err
	}
	defer s.invalidate(ctx, collectionID, colors...)

	return s.SequenceStore.RemoveImage(ctx, collectionID, imageID)
}

// DeleteStalePending removes abandoned pending records and drops their keys
func (s *CachedSequenceStore) DeleteStalePending(ctx context.Context, before time.Time) ([]models.Sequence, error) {
	deleted, err := s.SequenceStore.DeleteStalePending(ctx, before)
	for _, seq := range deleted {
		s.invalidate(ctx, seq.CollectionID, seq.Color)
	}
	return deleted, err
}
