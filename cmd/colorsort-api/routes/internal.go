package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/lyzr/colorsort/cmd/colorsort-api/container"
	"github.com/lyzr/colorsort/cmd/colorsort-api/handlers"
	commonmw "github.com/lyzr/colorsort/common/middleware"
)

// RegisterInternalRoutes registers the hooks the host application calls when
// a volume's images change
func RegisterInternalRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewEventHandler(c.Maintainer, c.Components.Logger)

	internal := e.Group("/internal/v1/volumes", commonmw.InternalOnly(c.Components.Config.Service.InternalSecret))
	{
		internal.POST("/:id/images", h.ImagesAdded)              // POST /internal/v1/volumes/1/images
		internal.DELETE("/:id/images/:image_id", h.ImageDeleted) // DELETE /internal/v1/volumes/1/images/7
		internal.DELETE("/:id", h.CollectionDeleted)             // DELETE /internal/v1/volumes/1
	}
}
