package container

import (
	"fmt"

	"github.com/lyzr/colorsort/cmd/colorsort-api/service"
	"github.com/lyzr/colorsort/common/bootstrap"
	"github.com/lyzr/colorsort/common/consistency"
	"github.com/lyzr/colorsort/common/policy"
	"github.com/lyzr/colorsort/common/ratelimit"
	"github.com/lyzr/colorsort/common/repository"
	"github.com/lyzr/colorsort/common/worker"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components

	// Repositories
	Store   repository.SequenceStore
	Catalog repository.ImageCatalog

	// Services
	Policy          *policy.SortablePolicy
	Tasks           *worker.TaskQueue
	Maintainer      *consistency.Maintainer
	SequenceService *service.SequenceService

	// RateLimiter is nil when rate limiting is disabled
	RateLimiter *ratelimit.RateLimiter

	// Worker side, used when the pool runs embedded
	ComputeHandler *worker.ComputeSequenceHandler
	Dispatcher     *worker.Dispatcher
}

// NewContainer initializes all services and repositories once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	store := repository.NewSequenceStore(
		components.DB,
		components.Cache,
		components.Config.Cache.DefaultTTL,
		components.Logger,
	)
	catalog := repository.NewPostgresImageCatalog(components.DB)

	return NewContainerWith(components, store, catalog)
}

// NewContainerWith builds the container on top of the given storage
func NewContainerWith(components *bootstrap.Components, store repository.SequenceStore, catalog repository.ImageCatalog) (*Container, error) {
	cfg := components.Config
	log := components.Logger

	if components.Queue == nil {
		return nil, fmt.Errorf("queue is required")
	}

	sortable, err := policy.NewSortablePolicy(cfg.Policy.Sortable)
	if err != nil {
		return nil, fmt.Errorf("failed to create sortable policy: %w", err)
	}

	tasks := worker.NewTaskQueue(components.Queue, cfg.Queue.Topic, log)
	computeHandler := worker.NewComputeSequenceHandlerFromConfig(cfg, store, catalog, log)

	c := &Container{
		Components:      components,
		Store:           store,
		Catalog:         catalog,
		Policy:          sortable,
		Tasks:           tasks,
		Maintainer:      consistency.NewMaintainer(store, log),
		SequenceService: service.NewSequenceService(store, catalog, sortable, tasks, log),
		ComputeHandler:  computeHandler,
		Dispatcher:      worker.NewComputeDispatcher(computeHandler, log),
	}

	if cfg.RateLimit.Enabled && components.Redis != nil {
		c.RateLimiter = ratelimit.NewRateLimiter(components.RedisRaw(), log)
	}

	return c, nil
}

// NewPool creates the worker pool consuming compute tasks
func (c *Container) NewPool() *worker.Pool {
	cfg := c.Components.Config
	return worker.NewPool(c.Components.Queue, cfg.Queue.Topic, cfg.Queue.Concurrency, c.Dispatcher, c.Components.Logger)
}

// NewSweeper creates the sweeper deleting pending records whose task was lost
func (c *Container) NewSweeper() *worker.PendingSweeper {
	return worker.NewPendingSweeperFromConfig(c.Components.Config, c.Store, c.Components.Logger)
}
