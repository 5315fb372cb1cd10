package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vitaltrack/health-tracker/internal/core/access"
	"github.com/vitaltrack/health-tracker/internal/core/domain"
)

func newUserFixture() (*UserService, *stubUserRepo, *recordingSink) {
	users := newStubUserRepo(
		&domain.User{ID: pAdmin.UserID, Email: pAdmin.Email, Role: domain.RoleAdmin},
		&domain.User{ID: pAnn.UserID, Email: pAnn.Email, Name: "Ann", Role: domain.RoleCustomer},
		&domain.User{ID: pBen.UserID, Email: pBen.Email, Name: "Ben", Role: domain.RoleCustomer},
	)
	sink := &recordingSink{}
	return NewUserService(users, access.NewEngine(users), sink, zerolog.Nop()), users, sink
}

func TestUserService_ProfileFollowsEffectiveTarget(t *testing.T) {
	svc, _, _ := newUserFixture()
	ctx := context.Background()

	u, err := svc.Profile(ctx, pAnn, pBen.UserID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if u.ID != pAnn.UserID {
		t.Fatalf("customer must read own profile, got %s", u.ID)
	}

	u, err = svc.Profile(ctx, pAdmin, pBen.UserID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if u.ID != pBen.UserID {
		t.Fatalf("admin impersonating ben should read ben, got %s", u.ID)
	}
}

func TestUserService_UpdateProfile(t *testing.T) {
	svc, users, sink := newUserFixture()
	ctx := context.Background()

	name := "Ann Smith"
	height := 168.0
	u, err := svc.UpdateProfile(ctx, pAnn, "", domain.ProfileUpdate{Name: &name, HeightCm: &height})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if u.Name != "Ann Smith" || u.HeightCm == nil || *u.HeightCm != 168 {
		t.Fatalf("unexpected profile: %+v", u)
	}
	if users.users[pAnn.UserID].Role != domain.RoleCustomer {
		t.Fatalf("role must be untouched")
	}
	if len(sink.all()) != 0 {
		t.Fatalf("self edits must not be audited")
	}
}

func TestUserService_UpdateProfile_Email(t *testing.T) {
	svc, _, _ := newUserFixture()
	ctx := context.Background()

	taken := "BEN@example.com"
	if _, err := svc.UpdateProfile(ctx, pAnn, "", domain.ProfileUpdate{Email: &taken}); !errors.Is(err, domain.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}

	blank := "   "
	if _, err := svc.UpdateProfile(ctx, pAnn, "", domain.ProfileUpdate{Email: &blank}); !errors.Is(err, domain.ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}

	same := "Ann@Example.com"
	if _, err := svc.UpdateProfile(ctx, pAnn, "", domain.ProfileUpdate{Email: &same}); err != nil {
		t.Fatalf("re-saving own email: %v", err)
	}
}

func TestUserService_UpdateProfile_Impersonated(t *testing.T) {
	svc, users, sink := newUserFixture()

	phone := "+1 555 0100"
	if _, err := svc.UpdateProfile(context.Background(), pAdmin, pBen.UserID, domain.ProfileUpdate{Phone: &phone}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if users.users[pBen.UserID].Phone != phone {
		t.Fatalf("expected ben's phone to change")
	}

	events := sink.all()
	if len(events) != 1 || events[0].Action != domain.ActionProfileUpdate || !events[0].Impersonated {
		t.Fatalf("expected impersonated profile event, got %+v", events)
	}
}
