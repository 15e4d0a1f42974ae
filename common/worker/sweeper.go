package worker

import (
	"context"
	"time"

	"github.com/lyzr/colorsort/common/logger"
	"github.com/lyzr/colorsort/common/metrics"
	"github.com/lyzr/colorsort/common/models"
)

// StaleStore deletes pending records that outlived their task
type StaleStore interface {
	DeleteStalePending(ctx context.Context, before time.Time) ([]models.Sequence, error)
}

// PendingSweeper deletes pending records whose task was lost: dropped by a
// closing memory queue or abandoned by a crashed worker. Without it the pair
// would stay pending and every new request would conflict.
type PendingSweeper struct {
	store    StaleStore
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time
	log      *logger.Logger
}

// NewPendingSweeper creates a sweeper removing records pending longer than maxAge
func NewPendingSweeper(store StaleStore, maxAge, interval time.Duration, log *logger.Logger) *PendingSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &PendingSweeper{
		store:    store,
		maxAge:   maxAge,
		interval: interval,
		now:      time.Now,
		log:      log,
	}
}

// Sweep runs one pass and returns the number of deleted records
func (s *PendingSweeper) Sweep(ctx context.Context) (int, error) {
	deleted, err := s.store.DeleteStalePending(ctx, s.now().Add(-s.maxAge))
	if err != nil {
		return 0, err
	}

	for _, seq := range deleted {
		s.log.WithSequence(seq.ID.String(), seq.CollectionID, seq.Color).Warn("deleted stale pending sequence",
			"age", s.now().Sub(seq.CreatedAt).Round(time.Second).String(),
		)
	}
	metrics.StalePendingDeleted.Add(float64(len(deleted)))
	return len(deleted), nil
}

// Run sweeps immediately and then every interval until ctx is cancelled
func (s *PendingSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("failed to sweep stale sequences", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
