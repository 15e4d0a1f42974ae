package consistency

import (
	"context"
	"testing"

	"github.com/lyzr/colorsort/common/logger"
	"github.com/lyzr/colorsort/common/models"
	"github.com/lyzr/colorsort/common/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) *repository.MemorySequenceStore {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemorySequenceStore()

	a, err := store.Create(ctx, 1, "BADA55")
	require.NoError(t, err)
	_, _ = store.SetResult(ctx, a.ID, []int64{2, 1, 3})

	b, _ := store.Create(ctx, 1, "C0FFEE")
	_, _ = store.SetResult(ctx, b.ID, []int64{1, 3})

	_, _ = store.Create(ctx, 1, "ABCDEF") // pending

	c, _ := store.Create(ctx, 2, "BADA55")
	_, _ = store.SetResult(ctx, c.ID, []int64{1})

	return store
}

func TestOnImageDeleted(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	m := NewMaintainer(store, logger.Discard())

	n, err := m.OnImageDeleted(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	seq, _ := store.Get(ctx, 1, "BADA55")
	assert.Equal(t, []int64{2, 3}, seq.Sequence)
	seq, _ = store.Get(ctx, 1, "C0FFEE")
	assert.Equal(t, []int64{3}, seq.Sequence)
	seq, _ = store.Get(ctx, 1, "ABCDEF")
	assert.True(t, seq.Pending())
	seq, _ = store.Get(ctx, 2, "BADA55")
	assert.Equal(t, []int64{1}, seq.Sequence, "other collections are untouched")
}

func TestOnImagesAdded(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	m := NewMaintainer(store, logger.Discard())

	n, err := m.OnImagesAdded(ctx, 1, []int64{4})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = store.Get(ctx, 1, "ABCDEF")
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = store.Get(ctx, 2, "BADA55")
	assert.NoError(t, err)
}

func TestOnCollectionDeleted(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	m := NewMaintainer(store, logger.Discard())

	n, err := m.OnCollectionDeleted(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 3, store.Len())

	n, err = m.OnCollectionDeleted(ctx, 99)
	require.NoError(t, err)
	assert.Zero(t, n)
}
