package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/colorsort/common/consistency"
	"github.com/lyzr/colorsort/common/logger"
)

// EventHandler receives collection change notifications from the host application
type EventHandler struct {
	maintainer *consistency.Maintainer
	log        *logger.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(maintainer *consistency.Maintainer, log *logger.Logger) *EventHandler {
	return &EventHandler{
		maintainer: maintainer,
		log:        log,
	}
}

// ImagesAddedRequest lists the images added to a volume
type ImagesAddedRequest struct {
	ImageIDs []int64 `json:"image_ids"`
}

// ImagesAdded invalidates all sequences of the volume
// POST /internal/v1/volumes/:id/images
func (h *EventHandler) ImagesAdded(c echo.Context) error {
	volumeID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}

	var req ImagesAddedRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}

	n, err := h.maintainer.OnImagesAdded(c.Request().Context(), volumeID, req.ImageIDs)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"deleted": n,
	})
}

// ImageDeleted removes the image from the volume's sequences
// DELETE /internal/v1/volumes/:id/images/:image_id
func (h *EventHandler) ImageDeleted(c echo.Context) error {
	volumeID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	imageID, err := paramID(c, "image_id")
	if err != nil {
		return writeError(c, h.log, err)
	}

	n, err := h.maintainer.OnImageDeleted(c.Request().Context(), volumeID, imageID)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"updated": n,
	})
}

// CollectionDeleted drops all sequences of the volume
// DELETE /internal/v1/volumes/:id
func (h *EventHandler) CollectionDeleted(c echo.Context) error {
	volumeID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}

	n, err := h.maintainer.OnCollectionDeleted(c.Request().Context(), volumeID)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"deleted": n,
	})
}
