package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lyzr/colorsort/common/logger"
	"github.com/lyzr/colorsort/common/models"
	"github.com/lyzr/colorsort/common/ranker"
	"github.com/lyzr/colorsort/common/repository"
	"github.com/lyzr/colorsort/common/thumbnails"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rankFunc func(ctx context.Context, req ranker.Request) ([]int64, error)

func (f rankFunc) Rank(ctx context.Context, req ranker.Request) ([]int64, error) {
	return f(ctx, req)
}

// hookCatalog runs a hook before the n-th ListImages call
type hookCatalog struct {
	*repository.MemoryImageCatalog
	calls  atomic.Int32
	before map[int32]func()
}

func (c *hookCatalog) ListImages(ctx context.Context, collectionID int64) ([]models.Image, error) {
	n := c.calls.Add(1)
	if hook, ok := c.before[n]; ok {
		hook()
	}
	return c.MemoryImageCatalog.ListImages(ctx, collectionID)
}

type fixture struct {
	store   *repository.MemorySequenceStore
	catalog *hookCatalog
	seq     *models.Sequence
}

func newFixture(t *testing.T, imageIDs ...int64) *fixture {
	t.Helper()
	catalog := repository.NewMemoryImageCatalog()
	catalog.PutCollection(models.Collection{ID: 1, MediaType: models.MediaTypeImage})
	for _, id := range imageIDs {
		catalog.PutImages(models.Image{ID: id, CollectionID: 1, UUID: uuid.NewString()})
	}

	store := repository.NewMemorySequenceStore()
	seq, err := store.Create(context.Background(), 1, "BADA55")
	require.NoError(t, err)

	return &fixture{
		store:   store,
		catalog: &hookCatalog{MemoryImageCatalog: catalog, before: map[int32]func(){}},
		seq:     seq,
	}
}

// flakyStore fails the first failures RemoveImage calls
type flakyStore struct {
	repository.SequenceStore
	failures atomic.Int32
}

func (s *flakyStore) RemoveImage(ctx context.Context, collectionID, imageID int64) (int, error) {
	if s.failures.Add(-1) >= 0 {
		return 0, errors.New("connection reset")
	}
	return s.SequenceStore.RemoveImage(ctx, collectionID, imageID)
}

func (f *fixture) handler(rk ranker.Ranker, timeout time.Duration) *ComputeSequenceHandler {
	return f.handlerWith(f.store, rk, timeout)
}

func (f *fixture) handlerWith(store repository.SequenceStore, rk ranker.Ranker, timeout time.Duration) *ComputeSequenceHandler {
	log := logger.Discard()
	return NewComputeSequenceHandler(
		store,
		f.catalog,
		thumbnails.NewResolver("/thumbs", "jpg"),
		thumbnails.NewFileCache(nil, "", 1, log),
		rk,
		timeout,
		log,
	)
}

func (f *fixture) task() ComputeSequenceTask {
	return ComputeSequenceTask{SequenceID: f.seq.ID, CollectionID: 1, Color: "BADA55"}
}

func TestHandle_Success(t *testing.T) {
	f := newFixture(t, 1, 2, 3)

	var got ranker.Request
	h := f.handler(rankFunc(func(ctx context.Context, req ranker.Request) ([]int64, error) {
		got = req
		return []int64{2, 1, 3}, nil
	}), time.Minute)

	require.NoError(t, h.Handle(context.Background(), f.task()))

	assert.Equal(t, "BADA55", got.Color)
	require.Len(t, got.Items, 3)
	assert.Equal(t, int64(1), got.Items[0].ImageID)
	assert.Contains(t, got.Items[0].Path, "/thumbs/")

	seq, err := f.store.Get(context.Background(), 1, "BADA55")
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1, 3}, seq.Sequence)
}

func TestHandle_EmptyCollection(t *testing.T) {
	f := newFixture(t)

	called := false
	h := f.handler(rankFunc(func(ctx context.Context, req ranker.Request) ([]int64, error) {
		called = true
		return nil, nil
	}), time.Minute)

	require.NoError(t, h.Handle(context.Background(), f.task()))
	assert.False(t, called)

	seq, _ := f.store.Get(context.Background(), 1, "BADA55")
	assert.False(t, seq.Pending())
	assert.Empty(t, seq.Sequence)
}

func TestHandle_DropsImagesRemovedWhileRanking(t *testing.T) {
	f := newFixture(t, 3, 7, 9)

	h := f.handler(rankFunc(func(ctx context.Context, req ranker.Request) ([]int64, error) {
		f.catalog.RemoveImage(1, 7)
		return []int64{7, 3, 9}, nil
	}), time.Minute)

	require.NoError(t, h.Handle(context.Background(), f.task()))

	seq, _ := f.store.Get(context.Background(), 1, "BADA55")
	assert.Equal(t, []int64{3, 9}, seq.Sequence)
}

func TestHandle_RepairsImagesRemovedBeforeStore(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	f.catalog.before[3] = func() { f.catalog.RemoveImage(1, 3) }

	h := f.handler(rankFunc(func(ctx context.Context, req ranker.Request) ([]int64, error) {
		return []int64{3, 2, 1}, nil
	}), time.Minute)

	require.NoError(t, h.Handle(context.Background(), f.task()))

	seq, _ := f.store.Get(context.Background(), 1, "BADA55")
	assert.Equal(t, []int64{2, 1}, seq.Sequence)
}

func TestHandle_RepairRetriesOnce(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	f.catalog.before[3] = func() { f.catalog.RemoveImage(1, 3) }

	store := &flakyStore{SequenceStore: f.store}
	store.failures.Store(1)

	h := f.handlerWith(store, rankFunc(func(ctx context.Context, req ranker.Request) ([]int64, error) {
		return []int64{3, 2, 1}, nil
	}), time.Minute)

	require.NoError(t, h.Handle(context.Background(), f.task()))

	seq, err := f.store.Get(context.Background(), 1, "BADA55")
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, seq.Sequence)
}

func TestHandle_RepairFailureDeletesRecord(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	f.catalog.before[3] = func() { f.catalog.RemoveImage(1, 3) }

	store := &flakyStore{SequenceStore: f.store}
	store.failures.Store(2)

	h := f.handlerWith(store, rankFunc(func(ctx context.Context, req ranker.Request) ([]int64, error) {
		return []int64{3, 2, 1}, nil
	}), time.Minute)

	assert.ErrorContains(t, h.Handle(context.Background(), f.task()), "connection reset")
	assert.Zero(t, f.store.Len())
}

func TestHandle_FailureDeletesRecord(t *testing.T) {
	f := newFixture(t, 1, 2)
	ctx := context.Background()

	h := f.handler(rankFunc(func(ctx context.Context, req ranker.Request) ([]int64, error) {
		return nil, models.NewComputationError("script", errors.New("exit status 1"))
	}), time.Minute)

	err := h.Handle(ctx, f.task())
	var ce *models.ComputationError
	require.True(t, errors.As(err, &ce))

	_, err = f.store.Get(ctx, 1, "BADA55")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.store.Create(ctx, 1, "BADA55")
	assert.NoError(t, err, "the color can be requested again")
}

func TestHandle_InvalidRankerOutputFails(t *testing.T) {
	f := newFixture(t, 1, 2)

	h := f.handler(rankFunc(func(ctx context.Context, req ranker.Request) ([]int64, error) {
		return []int64{1, 1}, nil
	}), time.Minute)

	assert.Error(t, h.Handle(context.Background(), f.task()))
	assert.Zero(t, f.store.Len())
}

func TestHandle_PanicDeletesRecord(t *testing.T) {
	f := newFixture(t, 1)

	h := f.handler(rankFunc(func(ctx context.Context, req ranker.Request) ([]int64, error) {
		panic("boom")
	}), time.Minute)

	err := h.Handle(context.Background(), f.task())
	assert.ErrorContains(t, err, "boom")
	assert.Zero(t, f.store.Len())
}

func TestHandle_MissingRecordIgnored(t *testing.T) {
	f := newFixture(t, 1)
	require.NoError(t, f.store.Delete(context.Background(), f.seq.ID))

	called := false
	h := f.handler(rankFunc(func(ctx context.Context, req ranker.Request) ([]int64, error) {
		called = true
		return []int64{1}, nil
	}), time.Minute)

	assert.NoError(t, h.Handle(context.Background(), f.task()))
	assert.False(t, called)
}

func TestHandle_RecordDeletedWhileComputing(t *testing.T) {
	f := newFixture(t, 1, 2)

	h := f.handler(rankFunc(func(ctx context.Context, req ranker.Request) ([]int64, error) {
		require.NoError(t, f.store.Delete(context.Background(), f.seq.ID))
		return []int64{1, 2}, nil
	}), time.Minute)

	assert.NoError(t, h.Handle(context.Background(), f.task()))
	assert.Zero(t, f.store.Len())
}

func TestHandle_TimeoutIsFailure(t *testing.T) {
	f := newFixture(t, 1)

	h := f.handler(rankFunc(func(ctx context.Context, req ranker.Request) ([]int64, error) {
		<-ctx.Done()
		return nil, models.NewComputationError("native", ctx.Err())
	}), 20*time.Millisecond)

	err := h.Handle(context.Background(), f.task())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, f.store.Len())
}

func TestHandleMessage_BadPayload(t *testing.T) {
	f := newFixture(t)
	h := f.handler(nil, 0)

	assert.Error(t, h.HandleMessage(context.Background(), []byte("{")))
}
