package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/colorsort/common/logger"
	"github.com/lyzr/colorsort/common/models"
	"github.com/lyzr/colorsort/common/ratelimit"
	"github.com/stretchr/testify/assert"
)

func TestWriteError(t *testing.T) {
	e := echo.New()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", models.NewValidationError("color", "bad"), http.StatusUnprocessableEntity},
		{"conflict", fmt.Errorf("create: %w", models.ErrConflict), http.StatusConflict},
		{"not found", models.ErrNotFound, http.StatusNotFound},
		{"rate limited", &ratelimit.RateLimitError{Limit: 1, RetryAfter: 30 * time.Second}, http.StatusTooManyRequests},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			assert.NoError(t, writeError(c, logger.Discard(), tt.err))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestWriteError_RetryAfter(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

	_ = writeError(c, logger.Discard(), &ratelimit.RateLimitError{Limit: 1, RetryAfter: 30 * time.Second})
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
}

func TestParamID(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")

	c.SetParamValues("42")
	id, err := paramID(c, "id")
	assert.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"0", "-1", "abc", ""} {
		c.SetParamValues(bad)
		_, err := paramID(c, "id")
		assert.ErrorIs(t, err, models.ErrNotFound, bad)
	}
}
