package ports

import (
	"context"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
)

// ListUsersFilter carries the admin console's user listing parameters.
type ListUsersFilter struct {
	Search string // optional: partial match on name or email
	Page   int    // 1-based
	Limit  int    // capped at 100 by the service
}

// RoleLookup returns the current role of a user. Implementations must make a
// role written through RoleStore visible to the very next lookup.
type RoleLookup interface {
	RoleOf(ctx context.Context, userID string) (domain.Role, error)
}

// RoleStore persists role changes.
type RoleStore interface {
	SetRole(ctx context.Context, userID string, role domain.Role) error
}

// UserRepository is the credential store: account identity, password hash,
// profile and role.
type UserRepository interface {
	RoleLookup
	RoleStore

	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// Update persists profile fields (not password, not role).
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// Delete removes the user and, through the store's cascade, their records.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListUsersFilter) ([]*domain.User, int64, error)
}

// RoleCache is a best-effort key/value cache for roles.
type RoleCache interface {
	Get(ctx context.Context, userID string) (domain.Role, bool, error)
	Set(ctx context.Context, userID string, role domain.Role) error
	Delete(ctx context.Context, userID string) error
}
