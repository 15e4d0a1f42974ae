package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/colorsort/cmd/colorsort-api/service"
	"github.com/lyzr/colorsort/common/logger"
)

// SequenceHandler handles color sort sequence requests of a volume
type SequenceHandler struct {
	service *service.SequenceService
	log     *logger.Logger
}

// NewSequenceHandler creates a new sequence handler
func NewSequenceHandler(svc *service.SequenceService, log *logger.Logger) *SequenceHandler {
	return &SequenceHandler{
		service: svc,
		log:     log,
	}
}

// CreateSequenceRequest is the body of a create request
type CreateSequenceRequest struct {
	Color string `json:"color"`
}

// ListColors lists the requested colors of a volume
// GET /api/v1/volumes/:id/color-sort-sequence
func (h *SequenceHandler) ListColors(c echo.Context) error {
	volumeID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}

	colors, err := h.service.ListColors(c.Request().Context(), volumeID)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, colors)
}

// GetSequence returns the sorted image ids for a color.
// Responds with an empty body while the computation is pending.
// GET /api/v1/volumes/:id/color-sort-sequence/:color
func (h *SequenceHandler) GetSequence(c echo.Context) error {
	volumeID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}

	seq, err := h.service.Get(c.Request().Context(), volumeID, c.Param("color"))
	if err != nil {
		return writeError(c, h.log, err)
	}

	if seq.Pending() {
		return c.NoContent(http.StatusOK)
	}
	return c.JSON(http.StatusOK, seq.Sequence)
}

// CreateSequence requests a new color sort sequence
// POST /api/v1/volumes/:id/color-sort-sequence
func (h *SequenceHandler) CreateSequence(c echo.Context) error {
	volumeID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}

	var req CreateSequenceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}

	seq, err := h.service.Create(c.Request().Context(), volumeID, req.Color)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(http.StatusCreated, seq)
}

// DeleteSequence removes the sequence of a color
// DELETE /api/v1/volumes/:id/color-sort-sequence/:color
func (h *SequenceHandler) DeleteSequence(c echo.Context) error {
	volumeID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}

	if err := h.service.Delete(c.Request().Context(), volumeID, c.Param("color")); err != nil {
		return writeError(c, h.log, err)
	}

	return c.NoContent(http.StatusOK)
}
