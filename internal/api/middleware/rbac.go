package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
)

// AdminAuthorizer re-checks a principal's live role.
type AdminAuthorizer interface {
	AuthorizeAdminOperation(ctx context.Context, p domain.Principal) (domain.Principal, error)
}

// RequireAdmin rejects requests whose principal is not an admin right now.
// The role carried by the principal is refreshed, never trusted.
func RequireAdmin(authz AdminAuthorizer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return domain.ErrNoToken
			}

			fresh, err := authz.AuthorizeAdminOperation(c.Request().Context(), p)
			if err != nil {
				return err
			}
			c.Set(PrincipalKey, fresh)
			return next(c)
		}
	}
}
