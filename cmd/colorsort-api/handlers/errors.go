package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/colorsort/common/logger"
	"github.com/lyzr/colorsort/common/models"
	"github.com/lyzr/colorsort/common/ratelimit"
)

// writeError maps domain errors to HTTP responses
func writeError(c echo.Context, log *logger.Logger, err error) error {
	var validation *models.ValidationError
	var limited *ratelimit.RateLimitError

	switch {
	case errors.As(err, &validation):
		body := map[string]interface{}{"error": validation.Error()}
		if validation.Field != "" {
			body["errors"] = map[string][]string{validation.Field: {validation.Message}}
		}
		return c.JSON(http.StatusUnprocessableEntity, body)

	case errors.Is(err, models.ErrConflict):
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error": err.Error(),
		})

	case errors.Is(err, models.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "not found",
		})

	case errors.As(err, &limited):
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(limited.RetryAfter/time.Second)))
		return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
			"error": limited.Error(),
		})
	}

	log.WithContext(c.Request().Context()).Error("request failed",
		"method", c.Request().Method,
		"path", c.Path(),
		"error", err)
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": "internal server error",
	})
}

// paramID parses a positive integer path parameter. Malformed ids are reported
// as not found.
func paramID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.ErrNotFound
	}
	return id, nil
}
