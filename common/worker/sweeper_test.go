package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lyzr/colorsort/common/logger"
	"github.com/lyzr/colorsort/common/models"
	"github.com/lyzr/colorsort/common/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingSweeper_DeletesOnlyStalePending(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemorySequenceStore()

	stale, err := store.Create(ctx, 1, "BADA55")
	require.NoError(t, err)
	done, err := store.Create(ctx, 1, "000000")
	require.NoError(t, err)
	_, err = store.SetResult(ctx, done.ID, []int64{1})
	require.NoError(t, err)

	s := NewPendingSweeper(store, 30*time.Minute, time.Minute, logger.Discard())

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "fresh pending records are kept")

	s.now = func() time.Time { return time.Now().Add(time.Hour) }

	n, err = s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.GetByID(ctx, stale.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	got, err := store.GetByID(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, got.Sequence, "populated records are never swept")

	_, err = store.Create(ctx, 1, "BADA55")
	assert.NoError(t, err, "the color can be requested again")
}

type failingStaleStore struct{}

func (failingStaleStore) DeleteStalePending(context.Context, time.Time) ([]models.Sequence, error) {
	return nil, errors.New("db down")
}

func TestPendingSweeper_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewPendingSweeper(failingStaleStore{}, time.Minute, time.Millisecond, logger.Discard())

	done := make(chan error)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
