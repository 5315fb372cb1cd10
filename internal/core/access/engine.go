// Package access decides who may act on whose data.
//
// A request runs in one of two scopes. In self scope the effective target is
// the principal. In impersonation scope an admin has declared another user as
// the target. The declared target is an untrusted client hint: it only takes
// effect when the principal's live role is admin.
package access

import (
	"context"
	"errors"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
	"github.com/vitaltrack/health-tracker/internal/core/ports"
)

// Engine evaluates authorization rules against live roles.
type Engine struct {
	roles ports.RoleLookup
}

func NewEngine(roles ports.RoleLookup) *Engine {
	return &Engine{roles: roles}
}

// Principal builds the request principal from verified token claims. The role
// is looked up now, so a role change applies to the next request even when
// the token was issued before it.
func (e *Engine) Principal(ctx context.Context, claims domain.TokenClaims) (domain.Principal, error) {
	role, err := e.roles.RoleOf(ctx, claims.SubjectUserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Principal{}, domain.ErrInvalidToken
		}
		return domain.Principal{}, err
	}
	return domain.Principal{
		UserID: claims.SubjectUserID,
		Email:  claims.Email,
		Role:   role,
	}, nil
}

// ResolveEffectiveTarget returns the user id an operation applies to.
func ResolveEffectiveTarget(p domain.Principal, declaredTarget string) string {
	if declaredTarget == "" || declaredTarget == p.UserID || !p.IsAdmin() {
		return p.UserID
	}
	return declaredTarget
}

// ResolveEffectiveTarget is the method form of the package function.
func (e *Engine) ResolveEffectiveTarget(p domain.Principal, declaredTarget string) string {
	return ResolveEffectiveTarget(p, declaredTarget)
}

// ResolveExistingTarget is ResolveEffectiveTarget for operations that act on
// the target's data. An impersonated target must be a known user; otherwise
// domain.ErrUserNotFound is returned.
func (e *Engine) ResolveExistingTarget(ctx context.Context, p domain.Principal, declaredTarget string) (string, error) {
	target := ResolveEffectiveTarget(p, declaredTarget)
	if target == p.UserID {
		return target, nil
	}
	if _, err := e.roles.RoleOf(ctx, target); err != nil {
		return "", err
	}
	return target, nil
}

// IsImpersonating reports whether the declared target actually changes scope.
func IsImpersonating(p domain.Principal, declaredTarget string) bool {
	return ResolveEffectiveTarget(p, declaredTarget) != p.UserID
}

// AuthorizeOwnerOperation allows the operation when the resource belongs to
// the effective target, or when the principal is an admin.
func (e *Engine) AuthorizeOwnerOperation(p domain.Principal, resourceOwnerUserID, declaredTarget string) error {
	if resourceOwnerUserID == ResolveEffectiveTarget(p, declaredTarget) {
		return nil
	}
	if p.IsAdmin() {
		return nil
	}
	return domain.ErrAccessDenied
}

// AuthorizeAdminOperation re-fetches the principal's role and allows the
// operation only for admins. It returns the principal with the fresh role.
func (e *Engine) AuthorizeAdminOperation(ctx context.Context, p domain.Principal) (domain.Principal, error) {
	role, err := e.roles.RoleOf(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return p, domain.ErrAdminRequired
		}
		return p, err
	}
	p.Role = role
	if role != domain.RoleAdmin {
		return p, domain.ErrAdminRequired
	}
	return p, nil
}
