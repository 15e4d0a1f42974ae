package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/colorsort/common/clients"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UsernameKey is the context key for storing the authenticated username.
	// The rate limiter reads the same key.
	UsernameKey ContextKey = "username"

	// RoleKey is the context key for the caller's role in the volume's project
	RoleKey ContextKey = "role"
)

// Role of a user in the project owning a volume, lowest first
type Role int

const (
	RoleNone Role = iota
	RoleGuest
	RoleEditor
	RoleExpert
	RoleAdmin
)

var roleNames = map[string]Role{
	"guest":  RoleGuest,
	"editor": RoleEditor,
	"expert": RoleExpert,
	"admin":  RoleAdmin,
}

// ParseRole maps a role name to a Role. Unknown names map to RoleNone.
func ParseRole(name string) Role {
	return roleNames[strings.ToLower(strings.TrimSpace(name))]
}

// ExtractUsername is a middleware that extracts the X-User-ID and X-User-Role
// headers set by the authenticating proxy and stores them in the context.
//
// Accessing in handlers:
//
//	username := middleware.GetUsername(c)
func ExtractUsername() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			username := c.Request().Header.Get("X-User-ID")
			if username != "" {
				c.Set(string(UsernameKey), username)
				c.Set(string(RoleKey), ParseRole(c.Request().Header.Get("X-User-Role")))

				req := c.Request()
				c.SetRequest(req.WithContext(clients.WithUserID(req.Context(), username)))
			}

			return next(c)
		}
	}
}

// RequireRole rejects requests from anonymous users (401) and from users
// below the minimum role (403)
func RequireRole(min Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if GetUsername(c) == "" {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"error": "authentication required (X-User-ID header missing)",
				})
			}

			if GetRole(c) < min {
				return c.JSON(http.StatusForbidden, map[string]interface{}{
					"error": "insufficient permissions",
				})
			}

			return next(c)
		}
	}
}

// GetUsername retrieves the username from the request context
// Returns empty string if not set
func GetUsername(c echo.Context) string {
	username, _ := c.Get(string(UsernameKey)).(string)
	return username
}

// GetRole retrieves the caller's role, RoleNone if not set
func GetRole(c echo.Context) Role {
	role, _ := c.Get(string(RoleKey)).(Role)
	return role
}
