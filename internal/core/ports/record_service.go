package ports

import (
	"context"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
)

// RecordService is the authorized, validated entry point for health records.
//
// declaredTarget is the caller's impersonation hint. It is only honoured for
// admins; for everyone else the effective target is the principal itself.
type RecordService interface {
	Create(ctx context.Context, p domain.Principal, declaredTarget string, in domain.RecordInput) (*domain.HealthRecord, error)
	Update(ctx context.Context, p domain.Principal, declaredTarget, recordID string, in domain.RecordInput) (*domain.HealthRecord, error)
	Delete(ctx context.Context, p domain.Principal, declaredTarget, recordID string) error
	Get(ctx context.Context, p domain.Principal, declaredTarget, recordID string) (*domain.HealthRecord, error)
	List(ctx context.Context, p domain.Principal, declaredTarget string, filter ListRecordsFilter) ([]*domain.HealthRecord, error)
	Stats(ctx context.Context, p domain.Principal, declaredTarget string) (*domain.RecordStats, error)
}

// UserService serves the effective target's own profile.
type UserService interface {
	Profile(ctx context.Context, p domain.Principal, declaredTarget string) (*domain.User, error)
	UpdateProfile(ctx context.Context, p domain.Principal, declaredTarget string, update domain.ProfileUpdate) (*domain.User, error)
}

// CreateUserInput is an admin-initiated account creation.
type CreateUserInput struct {
	Email    string
	Password string
	Name     string
	Role     domain.Role
}

// AdminService holds the operations reserved for admins. Every method
// re-checks the caller's live role first.
type AdminService interface {
	Promote(ctx context.Context, p domain.Principal, userID string) (*domain.User, error)
	Demote(ctx context.Context, p domain.Principal, userID string) (*domain.User, error)
	ListUsers(ctx context.Context, p domain.Principal, filter ListUsersFilter) ([]*domain.User, int64, error)
	GetUser(ctx context.Context, p domain.Principal, userID string) (*domain.User, error)
	CreateUser(ctx context.Context, p domain.Principal, in CreateUserInput) (*domain.User, error)
	UpdateUser(ctx context.Context, p domain.Principal, userID string, update domain.ProfileUpdate) (*domain.User, error)
	DeleteUser(ctx context.Context, p domain.Principal, userID string) error
	ResetPassword(ctx context.Context, p domain.Principal, userID, newPassword string) error
	ListRecords(ctx context.Context, p domain.Principal, filter ListAllRecordsFilter) ([]*domain.OwnedRecord, int64, error)
	StartImpersonation(ctx context.Context, p domain.Principal, targetUserID string) (*domain.User, error)
	StopImpersonation(ctx context.Context, p domain.Principal, targetUserID string) error
}
