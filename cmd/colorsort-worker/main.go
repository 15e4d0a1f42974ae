package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/colorsort/common/bootstrap"
	"github.com/lyzr/colorsort/common/metrics"
	"github.com/lyzr/colorsort/common/repository"
	"github.com/lyzr/colorsort/common/server"
	"github.com/lyzr/colorsort/common/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Worker needs the database, the queue and the cache it invalidates
	components, err := bootstrap.Setup(ctx, "colorsort-worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(context.Background())

	cfg := components.Config
	log := components.Logger

	if cfg.Queue.Type == "memory" {
		log.Error("memory queue cannot be consumed by a separate worker, set QUEUE_TYPE=redis")
		return
	}

	store := repository.NewSequenceStore(components.DB, components.Cache, cfg.Cache.DefaultTTL, log)
	catalog := repository.NewPostgresImageCatalog(components.DB)

	handler := worker.NewComputeSequenceHandlerFromConfig(cfg, store, catalog, log)
	pool := worker.NewPool(
		components.Queue,
		cfg.Queue.Topic,
		cfg.Queue.Concurrency,
		worker.NewComputeDispatcher(handler, log),
		log,
	)

	host := metrics.Host()
	log.Info("colorsort worker ready",
		"topic", cfg.Queue.Topic,
		"concurrency", cfg.Queue.Concurrency,
		"ranker", cfg.Ranker.Type,
		"pending_timeout", cfg.Queue.PendingTimeout.String(),
		"hostname", host.Hostname,
		"cpu_logical", host.CPULogical,
		"total_memory_mb", host.TotalMemoryMB,
		"in_container", host.InContainer,
	)

	sweeper := worker.NewPendingSweeperFromConfig(cfg, store, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pool.Run(gctx)
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		return server.New(cfg.Service.Name, cfg.Service.Port, healthHandler(components), log).Run(gctx)
	})

	if err := g.Wait(); err != nil {
		log.Error("worker error", "error", err)
	}
}

// healthHandler serves /health for the orchestrator's liveness probes
func healthHandler(components *bootstrap.Components) http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.GET("/health", func(c echo.Context) error {
		if err := components.Health(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "colorsort-worker",
		})
	})
	return e
}
