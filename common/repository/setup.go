package repository

import (
	"time"

	"github.com/lyzr/colorsort/common/cache"
	"github.com/lyzr/colorsort/common/db"
	"github.com/lyzr/colorsort/common/logger"
)

// NewSequenceStore returns the Postgres store, behind the read cache when c is set
func NewSequenceStore(database *db.DB, c cache.Cache, ttl time.Duration, log *logger.Logger) SequenceStore {
	store := NewPostgresSequenceStore(database)
	if c == nil {
		return store
	}
	return NewCachedSequenceStore(store, c, ttl, log)
}
