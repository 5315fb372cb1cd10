package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/vitaltrack/health-tracker/internal/core/access"
	"github.com/vitaltrack/health-tracker/internal/core/domain"
	"github.com/vitaltrack/health-tracker/internal/core/ports"
)

// UserService reads and edits the effective target's profile.
type UserService struct {
	users    ports.UserRepository
	access   *access.Engine
	activity ports.ActivitySink
	log      zerolog.Logger
	now      func() time.Time
}

func NewUserService(users ports.UserRepository, accessEngine *access.Engine, activity ports.ActivitySink, log zerolog.Logger) *UserService {
	if activity == nil {
		activity = ports.NopActivitySink{}
	}
	return &UserService{users: users, access: accessEngine, activity: activity, log: log, now: time.Now}
}

func (s *UserService) Profile(ctx context.Context, p domain.Principal, declaredTarget string) (*domain.User, error) {
	target := s.access.ResolveEffectiveTarget(p, declaredTarget)
	if err := s.access.AuthorizeOwnerOperation(p, target, declaredTarget); err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, target)
}

// UpdateProfile applies update to the effective target's profile. Role and
// password are never touched here.
func (s *UserService) UpdateProfile(ctx context.Context, p domain.Principal, declaredTarget string, update domain.ProfileUpdate) (*domain.User, error) {
	target := s.access.ResolveEffectiveTarget(p, declaredTarget)
	if err := s.access.AuthorizeOwnerOperation(p, target, declaredTarget); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, target)
	if err != nil {
		return nil, err
	}

	updated, err := applyProfile(ctx, s.users, user, update, s.now().UTC())
	if err != nil {
		return nil, err
	}

	if target != p.UserID {
		s.activity.Enqueue(domain.ActivityEvent{
			ActorUserID:   p.UserID,
			SubjectUserID: target,
			Action:        domain.ActionProfileUpdate,
			ResourceID:    target,
			Impersonated:  true,
			OccurredAt:    s.now().UTC(),
		})
	}
	return updated, nil
}

// applyProfile checks an email change for collisions, then writes update onto
// user and persists it.
func applyProfile(ctx context.Context, users ports.UserRepository, user *domain.User, update domain.ProfileUpdate, now time.Time) (*domain.User, error) {
	if update.Email != nil {
		email := domain.NormalizeEmail(*update.Email)
		if email == "" {
			return nil, domain.InvalidValue("email", "must not be empty")
		}
		if email != user.Email {
			if _, err := users.FindByEmail(ctx, email); err == nil {
				return nil, domain.ErrEmailExists
			} else if !errors.Is(err, domain.ErrUserNotFound) {
				return nil, err
			}
		}
	}

	update.Apply(user)
	user.UpdatedAt = now
	return users.Update(ctx, user)
}
