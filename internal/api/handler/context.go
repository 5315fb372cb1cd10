package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/vitaltrack/health-tracker/internal/api/middleware"
	"github.com/vitaltrack/health-tracker/internal/core/access"
	"github.com/vitaltrack/health-tracker/internal/core/domain"
)

// ctxPrincipal extracts the principal injected by the Auth middleware.
// Its absence means the route was wired without authentication, which is
// reported as a missing token rather than a server error.
func ctxPrincipal(c echo.Context) (domain.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return domain.Principal{}, domain.ErrNoToken
	}
	return p, nil
}

func ctxDeclaredTarget(c echo.Context) string {
	return middleware.DeclaredTargetFrom(c)
}

// writeScope labels a record write for metrics.
func writeScope(p domain.Principal, declaredTarget, owner string) string {
	switch {
	case owner == p.UserID:
		return "self"
	case access.IsImpersonating(p, declaredTarget):
		return "impersonated"
	default:
		return "admin"
	}
}

// deleteScope labels a delete, where the owner is not echoed back.
func deleteScope(p domain.Principal, declaredTarget string) string {
	if access.IsImpersonating(p, declaredTarget) {
		return "impersonated"
	}
	return "self"
}
