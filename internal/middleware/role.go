package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agrolink/farm-marketplace/internal/model"
)

// RequireRole returns a middleware that enforces that the session's
// active role is one of the allowed roles. It assumes SessionAuth has
// already run; a missing or insufficient role rejects with 403. Note the
// check is against the role pinned in the token, not the granted set: a
// user holding the buyer role but operating as farmer is refused
// buyer-only routes until they switch.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed[ActiveRole(c)] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
