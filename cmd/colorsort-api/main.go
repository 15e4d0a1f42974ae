package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lyzr/colorsort/cmd/colorsort-api/container"
	apimw "github.com/lyzr/colorsort/cmd/colorsort-api/middleware"
	"github.com/lyzr/colorsort/cmd/colorsort-api/routes"
	"github.com/lyzr/colorsort/common/bootstrap"
	"github.com/lyzr/colorsort/common/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bootstrap common components (DB, redis, logger, queue, cache, telemetry)
	components, err := bootstrap.Setup(ctx, "colorsort-api")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap colorsort-api: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(context.Background())

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		components.Logger.Error("Failed to initialize service container", "error", err)
		return
	}

	// The memory queue can only be consumed in process
	if components.Config.Queue.Embedded || components.Config.Queue.Type == "memory" {
		startWorkers(ctx, serviceContainer)
	}

	// Initialize Echo server
	e := setupEcho()

	// Setup middleware
	setupMiddleware(e)

	// Setup health check
	setupHealthCheck(e, components)

	// Register all routes
	registerRoutes(e, serviceContainer)

	// Start server
	if err := startServer(ctx, e, components); err != nil {
		components.Logger.Error("Server error", "error", err)
	}
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(apimw.PropagateRequestID())
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo, components *bootstrap.Components) {
	e.GET("/health", func(c echo.Context) error {
		if err := components.Health(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status":  "unhealthy",
				"service": "colorsort-api",
				"error":   err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "colorsort-api",
		})
	})
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, serviceContainer *container.Container) {
	routes.RegisterSequenceRoutes(e, serviceContainer)
	routes.RegisterInternalRoutes(e, serviceContainer)
}

// startWorkers runs the compute worker pool and the pending sweeper inside the API process
func startWorkers(ctx context.Context, serviceContainer *container.Container) {
	log := serviceContainer.Components.Logger
	pool := serviceContainer.NewPool()
	sweeper := serviceContainer.NewSweeper()

	go func() {
		if err := pool.Run(ctx); err != nil {
			log.Error("Embedded worker pool stopped", "error", err)
		}
	}()
	go func() {
		_ = sweeper.Run(ctx)
	}()
}

// startServer serves until ctx is cancelled
func startServer(ctx context.Context, e *echo.Echo, components *bootstrap.Components) error {
	port := components.Config.Service.Port
	components.Logger.Info("Starting colorsort-api", "port", port)

	return server.New("colorsort-api", port, e, components.Logger).Run(ctx)
}
