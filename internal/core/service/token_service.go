package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
)

const defaultTokenTTL = 7 * 24 * time.Hour

// ErrEmptySecret is returned when a TokenService is built without a secret.
var ErrEmptySecret = errors.New("token service: signing secret must not be empty")

// tokenClaims is the JWT payload: registered claims plus the email.
type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 bearer tokens. It holds no state
// beyond its configuration.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// WithIssuer sets the iss claim.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) { s.issuer = issuer }
}

func NewTokenService(secret string, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if ttl < time.Second {
		ttl = defaultTokenTTL
	}
	s := &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token for userID valid from now until now + ttl.
func (s *TokenService) Issue(userID, email string) (domain.Token, error) {
	// NumericDate has second precision; truncate so the returned times match
	// what the token carries.
	issuedAt := s.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.ttl)

	claims := tokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return domain.Token{}, err
	}

	return domain.Token{
		Raw:           raw,
		SubjectUserID: userID,
		Email:         email,
		IssuedAt:      issuedAt,
		ExpiresAt:     expiresAt,
	}, nil
}

// Verify checks signature, algorithm and expiry. A token is valid strictly
// before its expiry, with no leeway.
func (s *TokenService) Verify(raw string) (domain.TokenClaims, error) {
	if raw == "" {
		return domain.TokenClaims{}, domain.ErrNoToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.TokenClaims{}, domain.ErrTokenExpired
		}
		return domain.TokenClaims{}, domain.ErrInvalidToken
	}
	if claims.Subject == "" {
		return domain.TokenClaims{}, domain.ErrInvalidToken
	}

	out := domain.TokenClaims{
		SubjectUserID: claims.Subject,
		Email:         claims.Email,
		ExpiresAt:     claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

// Refresh re-issues a token from a still-valid one.
func (s *TokenService) Refresh(raw string) (domain.Token, error) {
	claims, err := s.Verify(raw)
	if err != nil {
		return domain.Token{}, err
	}
	return s.Issue(claims.SubjectUserID, claims.Email)
}
