package middleware

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/colorsort/common/ratelimit"
)

// InternalServiceHeader carries the shared secret of service-to-service calls
const InternalServiceHeader = "X-Internal-Service"

// isInternalRequest checks if the request is from an internal service
func isInternalRequest(c echo.Context, secret string) bool {
	header := c.Request().Header.Get(InternalServiceHeader)
	if header == "" || secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(header), []byte(secret)) == 1
}

// InternalOnly rejects requests that do not carry the internal service secret
func InternalOnly(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !isInternalRequest(c, secret) {
				return c.JSON(http.StatusForbidden, map[string]interface{}{
					"error": "internal endpoint",
				})
			}
			return next(c)
		}
	}
}

// CreateRateLimitMiddleware limits how many sequence computations a user may request.
// Requires username to be set in context by ExtractUsername middleware.
// Skips rate limiting for internal service-to-service calls.
func CreateRateLimitMiddleware(rateLimiter *ratelimit.RateLimiter, limit int64, windowSec int, internalSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isInternalRequest(c, internalSecret) {
				return next(c)
			}

			username, ok := c.Get("username").(string)
			if !ok || username == "" {
				return next(c)
			}

			result, err := rateLimiter.CheckCreateLimit(c.Request().Context(), username, limit, windowSec)
			if err != nil {
				// fail open
				return next(c)
			}

			if err := result.Err(); err != nil {
				c.Response().Header().Set("Retry-After", strconv.FormatInt(result.RetryAfterSeconds, 10))
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":   "user_rate_limit_exceeded",
					"message": err.Error(),
					"details": map[string]interface{}{
						"username":            username,
						"limit":               result.Limit,
						"window_seconds":      windowSec,
						"current_count":       result.CurrentCount,
						"retry_after_seconds": result.RetryAfterSeconds,
					},
				})
			}

			return next(c)
		}
	}
}
