package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitaltrack/health-tracker/internal/core/access"
	"github.com/vitaltrack/health-tracker/internal/core/domain"
	"github.com/vitaltrack/health-tracker/internal/core/ports"
)

const (
	defaultPageLimit  = 20
	maxPageLimit      = 100
	minPasswordLength = 6
)

// RoleWriter changes roles and keeps any role cache coherent.
type RoleWriter interface {
	ports.RoleStore
	Forget(ctx context.Context, userID string)
}

// AdminService implements the admin console. Each operation re-reads the
// caller's role before doing anything.
type AdminService struct {
	users    ports.UserRepository
	records  ports.RecordRepository
	roles    RoleWriter
	access   *access.Engine
	hasher   ports.PasswordHasher
	activity ports.ActivitySink
	log      zerolog.Logger
	now      func() time.Time
}

func NewAdminService(
	users ports.UserRepository,
	records ports.RecordRepository,
	roles RoleWriter,
	accessEngine *access.Engine,
	hasher ports.PasswordHasher,
	activity ports.ActivitySink,
	log zerolog.Logger,
) *AdminService {
	if activity == nil {
		activity = ports.NopActivitySink{}
	}
	return &AdminService{
		users:    users,
		records:  records,
		roles:    roles,
		access:   accessEngine,
		hasher:   hasher,
		activity: activity,
		log:      log,
		now:      time.Now,
	}
}

// Promote grants the admin role to userID.
func (s *AdminService) Promote(ctx context.Context, p domain.Principal, userID string) (*domain.User, error) {
	return s.changeRole(ctx, p, userID, domain.RoleAdmin, domain.ActionRolePromote)
}

// Demote reverts userID to customer. The change applies to that user's very
// next request, whatever tokens they hold.
func (s *AdminService) Demote(ctx context.Context, p domain.Principal, userID string) (*domain.User, error) {
	return s.changeRole(ctx, p, userID, domain.RoleCustomer, domain.ActionRoleDemote)
}

func (s *AdminService) changeRole(ctx context.Context, p domain.Principal, userID string, role domain.Role, action string) (*domain.User, error) {
	p, err := s.access.AuthorizeAdminOperation(ctx, p)
	if err != nil {
		return nil, err
	}

	if err := s.roles.SetRole(ctx, userID, role); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.record(p, userID, action, userID, false)
	s.log.Info().
		Str("user_id", userID).
		Str("role", string(role)).
		Str("actor_user_id", p.UserID).
		Msg("user role changed")
	return user, nil
}

func (s *AdminService) ListUsers(ctx context.Context, p domain.Principal, filter ports.ListUsersFilter) ([]*domain.User, int64, error) {
	if _, err := s.access.AuthorizeAdminOperation(ctx, p); err != nil {
		return nil, 0, err
	}
	filter.Page, filter.Limit = clampPage(filter.Page, filter.Limit)
	filter.Search = strings.TrimSpace(filter.Search)
	return s.users.List(ctx, filter)
}

func (s *AdminService) GetUser(ctx context.Context, p domain.Principal, userID string) (*domain.User, error) {
	if _, err := s.access.AuthorizeAdminOperation(ctx, p); err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, userID)
}

// CreateUser creates an account on someone's behalf, optionally as admin.
func (s *AdminService) CreateUser(ctx context.Context, p domain.Principal, in ports.CreateUserInput) (*domain.User, error) {
	p, err := s.access.AuthorizeAdminOperation(ctx, p)
	if err != nil {
		return nil, err
	}

	email := domain.NormalizeEmail(in.Email)
	if email == "" {
		return nil, domain.MissingField("email")
	}
	if len(in.Password) < minPasswordLength {
		return nil, domain.InvalidValue("password", "must be at least 6 characters")
	}
	role := in.Role
	if role == "" {
		role = domain.RoleCustomer
	}
	if !role.Valid() {
		return nil, domain.InvalidValue("role", "must be customer or admin")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user, err := s.users.Create(ctx, &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.record(p, user.ID, domain.ActionUserCreate, user.ID, false)
	return user, nil
}

// UpdateUser edits another account's profile fields. Role and password have
// their own operations.
func (s *AdminService) UpdateUser(ctx context.Context, p domain.Principal, userID string, update domain.ProfileUpdate) (*domain.User, error) {
	p, err := s.access.AuthorizeAdminOperation(ctx, p)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	updated, err := applyProfile(ctx, s.users, user, update, s.now().UTC())
	if err != nil {
		return nil, err
	}

	if userID != p.UserID {
		s.record(p, userID, domain.ActionUserUpdate, userID, false)
	}
	s.log.Info().Str("user_id", userID).Str("actor_user_id", p.UserID).Msg("user updated")
	return updated, nil
}

// DeleteUser removes an account and all its records. Admins cannot delete
// themselves.
func (s *AdminService) DeleteUser(ctx context.Context, p domain.Principal, userID string) error {
	p, err := s.access.AuthorizeAdminOperation(ctx, p)
	if err != nil {
		return err
	}
	if userID == p.UserID {
		return domain.ErrAccessDenied
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	s.roles.Forget(ctx, userID)

	s.record(p, userID, domain.ActionUserDelete, userID, false)
	s.log.Info().Str("user_id", userID).Str("actor_user_id", p.UserID).Msg("user deleted")
	return nil
}

func (s *AdminService) ResetPassword(ctx context.Context, p domain.Principal, userID, newPassword string) error {
	p, err := s.access.AuthorizeAdminOperation(ctx, p)
	if err != nil {
		return err
	}
	if len(newPassword) < minPasswordLength {
		return domain.InvalidValue("password", "must be at least 6 characters")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	s.record(p, userID, domain.ActionPasswordReset, userID, false)
	return nil
}

// ListRecords pages through every user's records, most recently created
// first.
func (s *AdminService) ListRecords(ctx context.Context, p domain.Principal, filter ports.ListAllRecordsFilter) ([]*domain.OwnedRecord, int64, error) {
	if _, err := s.access.AuthorizeAdminOperation(ctx, p); err != nil {
		return nil, 0, err
	}
	filter.Page, filter.Limit = clampPage(filter.Page, filter.Limit)
	return s.records.ListAll(ctx, filter)
}

// StartImpersonation checks the target exists and returns its profile. The
// impersonation state itself stays on the client.
func (s *AdminService) StartImpersonation(ctx context.Context, p domain.Principal, targetUserID string) (*domain.User, error) {
	p, err := s.access.AuthorizeAdminOperation(ctx, p)
	if err != nil {
		return nil, err
	}

	target, err := s.users.FindByID(ctx, targetUserID)
	if err != nil {
		return nil, err
	}

	if target.ID != p.UserID {
		s.record(p, target.ID, domain.ActionImpersonationStart, target.ID, true)
	}
	return target, nil
}

func (s *AdminService) StopImpersonation(ctx context.Context, p domain.Principal, targetUserID string) error {
	p, err := s.access.AuthorizeAdminOperation(ctx, p)
	if err != nil {
		return err
	}
	if targetUserID != "" && targetUserID != p.UserID {
		s.record(p, targetUserID, domain.ActionImpersonationStop, targetUserID, true)
	}
	return nil
}

func (s *AdminService) record(p domain.Principal, subject, action, resourceID string, impersonated bool) {
	s.activity.Enqueue(domain.ActivityEvent{
		ActorUserID:   p.UserID,
		SubjectUserID: subject,
		Action:        action,
		ResourceID:    resourceID,
		Impersonated:  impersonated,
		OccurredAt:    s.now().UTC(),
	})
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}
