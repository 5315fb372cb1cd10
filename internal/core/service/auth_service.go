package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
	"github.com/vitaltrack/health-tracker/internal/core/ports"
)

// AuthService implements registration, login and token refresh.
type AuthService struct {
	users  ports.UserRepository
	hasher ports.PasswordHasher
	tokens ports.TokenService
	log    zerolog.Logger
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(users ports.UserRepository, hasher ports.PasswordHasher, tokens ports.TokenService, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		log:    log,
		now:    time.Now,
	}
}

// Register creates a customer account and signs the caller in.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	email := domain.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	switch {
	case email == "":
		return nil, domain.MissingField("email")
	case in.Password == "":
		return nil, domain.MissingField("password")
	case name == "":
		return nil, domain.MissingField("name")
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
		Name:         name,
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		// The unique email constraint catches concurrent sign-ups.
		return nil, err
	}

	tok, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return &ports.AuthResult{Token: tok, User: user}, nil
}

// Login exchanges credentials for a token. Unknown emails and wrong passwords
// fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.burnCompare(password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			s.log.Debug().Str("user_id", user.ID).Msg("login rejected: password mismatch")
		}
		return nil, err
	}

	tok, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &ports.AuthResult{Token: tok, User: user}, nil
}

// burnCompare spends one hash comparison so unknown emails take as long as
// wrong passwords.
func (s *AuthService) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		if h, err := s.hasher.Hash("not-a-real-password"); err == nil {
			s.dummyHash = h
		}
	})
	if s.dummyHash != "" {
		_ = s.hasher.Compare(s.dummyHash, password)
	}
}

// Refresh re-issues a still-valid token, provided its subject still exists.
func (s *AuthService) Refresh(ctx context.Context, rawToken string) (domain.Token, error) {
	claims, err := s.tokens.Verify(rawToken)
	if err != nil {
		return domain.Token{}, err
	}
	if _, err := s.users.FindByID(ctx, claims.SubjectUserID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Token{}, domain.ErrInvalidToken
		}
		return domain.Token{}, err
	}
	return s.tokens.Refresh(rawToken)
}

// Me returns the principal's own account, ignoring any impersonation.
func (s *AuthService) Me(ctx context.Context, p domain.Principal) (*domain.User, error) {
	return s.users.FindByID(ctx, p.UserID)
}
