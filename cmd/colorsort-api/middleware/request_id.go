package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/lyzr/colorsort/common/clients"
)

// PropagateRequestID copies the id assigned by echo's RequestID middleware into
// the request context, so logs and queued tasks carry it. Register it after RequestID.
func PropagateRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			if id == "" {
				id = c.Request().Header.Get(echo.HeaderXRequestID)
			}
			if id != "" {
				req := c.Request()
				c.SetRequest(req.WithContext(clients.WithRequestID(req.Context(), id)))
			}
			return next(c)
		}
	}
}
