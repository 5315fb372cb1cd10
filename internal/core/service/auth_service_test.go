package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
	"github.com/vitaltrack/health-tracker/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub user repository
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	createErr error
	roleReads int
}

func newStubUserRepo(seed ...*domain.User) *stubUserRepo {
	r := &stubUserRepo{users: make(map[string]*domain.User)}
	for _, u := range seed {
		r.users[u.ID] = cloneUser(u)
	}
	return r
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrEmailExists
		}
	}
	r.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) Update(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[user.ID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	for id, u := range r.users {
		if id != user.ID && u.Email == user.Email {
			return nil, domain.ErrEmailExists
		}
	}
	updated := cloneUser(user)
	updated.Role = existing.Role
	updated.PasswordHash = existing.PasswordHash
	r.users[user.ID] = updated
	return cloneUser(updated), nil
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *stubUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *stubUserRepo) List(_ context.Context, f ports.ListUsersFilter) ([]*domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*domain.User
	for _, u := range r.users {
		if f.Search != "" && !strings.Contains(u.Email, f.Search) && !strings.Contains(u.Name, f.Search) {
			continue
		}
		matched = append(matched, cloneUser(u))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Email < matched[j].Email })
	total := int64(len(matched))
	skip := (f.Page - 1) * f.Limit
	if skip > len(matched) {
		return []*domain.User{}, total, nil
	}
	end := skip + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[skip:end], total, nil
}

func (r *stubUserRepo) RoleOf(_ context.Context, id string) (domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roleReads++
	u, ok := r.users[id]
	if !ok {
		return "", domain.ErrUserNotFound
	}
	return u.Role, nil
}

func (r *stubUserRepo) SetRole(_ context.Context, id string, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Role = role
	return nil
}

// stubHasher avoids bcrypt's cost in unit tests.
type stubHasher struct{}

func (stubHasher) Hash(pw string) (string, error) { return "hashed:" + pw, nil }

func (stubHasher) Compare(hash, pw string) error {
	if hash != "hashed:"+pw {
		return domain.ErrInvalidCredentials
	}
	return nil
}

func newAuthFixture(t *testing.T, seed ...*domain.User) (*AuthService, *stubUserRepo, *TokenService) {
	t.Helper()
	repo := newStubUserRepo(seed...)
	tokens, err := NewTokenService("secret", time.Hour)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	return NewAuthService(repo, stubHasher{}, tokens, zerolog.Nop()), repo, tokens
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestAuthService_Register_Success(t *testing.T) {
	svc, repo, tokens := newAuthFixture(t)

	res, err := svc.Register(context.Background(), ports.RegisterInput{
		Email:    "  Alice@Example.com ",
		Password: "pass123",
		Name:     "Alice",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if res.User.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", res.User.Email)
	}
	if res.User.Role != domain.RoleCustomer {
		t.Fatalf("expected customer role, got %s", res.User.Role)
	}
	if res.User.PasswordHash == "pass123" {
		t.Fatalf("expected password to be hashed")
	}
	if res.User.ID == "" {
		t.Fatalf("expected generated id")
	}
	if _, err := repo.FindByID(context.Background(), res.User.ID); err != nil {
		t.Fatalf("user not persisted: %v", err)
	}

	claims, err := tokens.Verify(res.Token.Raw)
	if err != nil {
		t.Fatalf("issued token invalid: %v", err)
	}
	if claims.SubjectUserID != res.User.ID || claims.Email != "alice@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	cases := []ports.RegisterInput{
		{Email: "", Password: "pass123", Name: "A"},
		{Email: "a@example.com", Password: "", Name: "A"},
		{Email: "a@example.com", Password: "pass123", Name: "  "},
	}
	for _, in := range cases {
		if _, err := svc.Register(context.Background(), in); !errors.Is(err, domain.ErrMissingField) {
			t.Fatalf("expected ErrMissingField for %+v, got %v", in, err)
		}
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	if _, err := svc.Register(context.Background(), ports.RegisterInput{Email: "bob@example.com", Password: "pass12", Name: "Bob"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(context.Background(), ports.RegisterInput{Email: "BOB@example.com", Password: "pass34", Name: "Bob"})
	if !errors.Is(err, domain.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestAuthService_Register_RaceCaughtByStore(t *testing.T) {
	svc, repo, _ := newAuthFixture(t)
	repo.createErr = domain.ErrEmailExists

	_, err := svc.Register(context.Background(), ports.RegisterInput{Email: "eve@example.com", Password: "pass12", Name: "Eve"})
	if !errors.Is(err, domain.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists from store, got %v", err)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	svc, _, tokens := newAuthFixture(t, &domain.User{
		ID: "u-carol", Email: "carol@example.com", PasswordHash: "hashed:s3cret", Role: domain.RoleAdmin,
	})

	res, err := svc.Login(context.Background(), "Carol@example.com", "s3cret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.User.ID != "u-carol" {
		t.Fatalf("unexpected user: %+v", res.User)
	}

	claims, err := tokens.Verify(res.Token.Raw)
	if err != nil {
		t.Fatalf("token invalid: %v", err)
	}
	if claims.SubjectUserID != "u-carol" {
		t.Fatalf("expected subject u-carol, got %s", claims.SubjectUserID)
	}
}

func TestAuthService_Login_InvalidPassword(t *testing.T) {
	svc, _, _ := newAuthFixture(t, &domain.User{ID: "u-dave", Email: "dave@example.com", PasswordHash: "hashed:goodpass"})

	if _, err := svc.Login(context.Background(), "dave@example.com", "badpass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_UnknownEmailLooksLikeBadPassword(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	if _, err := svc.Login(context.Background(), "ghost@example.com", "pass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Refresh(t *testing.T) {
	svc, repo, tokens := newAuthFixture(t, &domain.User{ID: "u-1", Email: "ann@example.com"})

	tok, err := tokens.Issue("u-1", "ann@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	fresh, err := svc.Refresh(context.Background(), tok.Raw)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if fresh.SubjectUserID != "u-1" {
		t.Fatalf("unexpected subject %s", fresh.SubjectUserID)
	}

	_ = repo.Delete(context.Background(), "u-1")
	if _, err := svc.Refresh(context.Background(), tok.Raw); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for deleted subject, got %v", err)
	}
}

func TestAuthService_Me(t *testing.T) {
	svc, _, _ := newAuthFixture(t, &domain.User{ID: "u-1", Email: "ann@example.com", Name: "Ann"})

	u, err := svc.Me(context.Background(), domain.Principal{UserID: "u-1"})
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if u.Name != "Ann" {
		t.Fatalf("unexpected user %+v", u)
	}
}
