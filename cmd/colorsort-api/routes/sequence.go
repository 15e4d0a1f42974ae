package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/lyzr/colorsort/cmd/colorsort-api/container"
	"github.com/lyzr/colorsort/cmd/colorsort-api/handlers"
	"github.com/lyzr/colorsort/cmd/colorsort-api/middleware"
	commonmw "github.com/lyzr/colorsort/common/middleware"
)

// RegisterSequenceRoutes registers color sort sequence routes of a volume
func RegisterSequenceRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewSequenceHandler(c.SequenceService, c.Components.Logger)
	cfg := c.Components.Config

	create := []echo.MiddlewareFunc{middleware.RequireRole(middleware.RoleEditor)}
	if c.RateLimiter != nil {
		create = append(create, commonmw.CreateRateLimitMiddleware(
			c.RateLimiter,
			cfg.RateLimit.CreatePerMin,
			cfg.RateLimit.WindowSeconds,
			cfg.Service.InternalSecret,
		))
	}

	adminOnly := middleware.RequireRole(middleware.RoleAdmin)

	sequences := e.Group("/api/v1/volumes/:id/color-sort-sequence", middleware.ExtractUsername())
	{
		sequences.GET("", h.ListColors)                          // GET /api/v1/volumes/1/color-sort-sequence
		sequences.GET("/:color", h.GetSequence)                  // GET /api/v1/volumes/1/color-sort-sequence/BADA55
		sequences.POST("", h.CreateSequence, create...)          // POST /api/v1/volumes/1/color-sort-sequence
		sequences.DELETE("/:color", h.DeleteSequence, adminOnly) // DELETE /api/v1/volumes/1/color-sort-sequence/BADA55
	}
}
