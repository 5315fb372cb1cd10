package ports

import (
	"context"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
)

// TokenService issues and verifies bearer tokens.
type TokenService interface {
	Issue(userID, email string) (domain.Token, error)
	// Verify fails with domain.ErrTokenExpired once now >= expiry and with
	// domain.ErrInvalidToken for anything else wrong with the token.
	Verify(raw string) (domain.TokenClaims, error)
	Refresh(raw string) (domain.Token, error)
}

// PasswordHasher is a one-way hash with constant-time verification.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare returns domain.ErrInvalidCredentials on mismatch.
	Compare(hash, password string) error
}

// RegisterInput is a self-service sign-up request.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token domain.Token
	User  *domain.User
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Refresh(ctx context.Context, rawToken string) (domain.Token, error)
	Me(ctx context.Context, p domain.Principal) (*domain.User, error)
}
