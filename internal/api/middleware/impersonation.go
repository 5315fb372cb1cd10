package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	// ImpersonationHeader carries the user id an admin is acting as.
	ImpersonationHeader = "X-Impersonate-User"
	// ImpersonationQueryParam is the query-string form of the same hint.
	ImpersonationQueryParam = "as_user"
)

// Impersonation stores the caller's declared impersonation target. The hint
// is only a request: the access engine ignores it for non-admins.
func Impersonation() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			target := strings.TrimSpace(c.Request().Header.Get(ImpersonationHeader))
			if target == "" {
				target = strings.TrimSpace(c.QueryParam(ImpersonationQueryParam))
			}
			if target != "" {
				c.Set(DeclaredTargetKey, target)
			}
			return next(c)
		}
	}
}

// DeclaredTargetFrom returns the impersonation hint, or "" when none was sent.
func DeclaredTargetFrom(c echo.Context) string {
	target, _ := c.Get(DeclaredTargetKey).(string)
	return target
}
