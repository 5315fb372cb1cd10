package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
	"github.com/vitaltrack/health-tracker/internal/core/ports"
)

// Context keys set by this package.
const (
	PrincipalKey      = "principal"
	DeclaredTargetKey = "declared_target"
)

// PrincipalResolver turns verified token claims into a principal carrying the
// user's current role.
type PrincipalResolver interface {
	Principal(ctx context.Context, claims domain.TokenClaims) (domain.Principal, error)
}

// Auth verifies the bearer token and injects the principal into context.
func Auth(tokens ports.TokenService, resolver PrincipalResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return err
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				return err
			}

			p, err := resolver.Principal(c.Request().Context(), claims)
			if err != nil {
				return err
			}

			c.Set(PrincipalKey, p)
			return next(c)
		}
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" || strings.EqualFold(header, "bearer") {
		return "", domain.ErrNoToken
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", domain.ErrInvalidToken
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", domain.ErrNoToken
	}
	return token, nil
}

// PrincipalFrom returns the principal stored by Auth.
func PrincipalFrom(c echo.Context) (domain.Principal, bool) {
	p, ok := c.Get(PrincipalKey).(domain.Principal)
	return p, ok && p.UserID != ""
}
