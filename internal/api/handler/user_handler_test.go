package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
)

type stubUserService struct {
	declared string
	update   domain.ProfileUpdate
	err      error
}

func (s *stubUserService) Profile(_ context.Context, p domain.Principal, declared string) (*domain.User, error) {
	s.declared = declared
	if s.err != nil {
		return nil, s.err
	}
	return &domain.User{ID: p.UserID, Email: p.Email}, nil
}

func (s *stubUserService) UpdateProfile(_ context.Context, p domain.Principal, declared string, u domain.ProfileUpdate) (*domain.User, error) {
	s.declared, s.update = declared, u
	if s.err != nil {
		return nil, s.err
	}
	user := &domain.User{ID: p.UserID, Email: p.Email}
	u.Apply(user)
	return user, nil
}

func TestUserHandler_Profile_PassesDeclaredTarget(t *testing.T) {
	svc := &stubUserService{}
	h := NewUserHandler(svc)
	e := newTestEcho()

	c, rec := authedContext(e, jsonRequest(http.MethodGet, "/v1/profile", ""), testAdmin, "u-1")
	if err := h.Profile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.declared != "u-1" || rec.Code != http.StatusOK {
		t.Fatalf("expected declared target u-1, got %q (%d)", svc.declared, rec.Code)
	}
}

func TestUserHandler_UpdateProfile_PartialFields(t *testing.T) {
	svc := &stubUserService{}
	h := NewUserHandler(svc)
	e := newTestEcho()

	body := `{"name":"Ann Lee","height_cm":168.5,"birthday":"1990-05-01"}`
	c, rec := authedContext(e, jsonRequest(http.MethodPut, "/v1/profile", body), testCustomer, "")
	if err := h.UpdateProfile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	u := svc.update
	if u.Name == nil || *u.Name != "Ann Lee" || u.HeightCm == nil || *u.HeightCm != 168.5 {
		t.Fatalf("unexpected update %+v", u)
	}
	if u.Birthday == nil || u.Birthday.String() != "1990-05-01" {
		t.Fatalf("birthday not parsed: %v", u.Birthday)
	}
	if u.Email != nil || u.Phone != nil {
		t.Fatal("absent fields must stay nil")
	}
}

func TestUserHandler_UpdateProfile_Validation(t *testing.T) {
	cases := map[string]string{
		"bad email":   `{"email":"not-an-email"}`,
		"short name":  `{"name":"A"}`,
		"tall height": `{"height_cm":400}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubUserService{}
			h := NewUserHandler(svc)
			e := newTestEcho()

			c, _ := authedContext(e, jsonRequest(http.MethodPut, "/v1/profile", body), testCustomer, "")
			err := h.UpdateProfile(c)
			if !errors.Is(err, domain.ErrInvalidValue) {
				t.Fatalf("expected invalid value, got %v", err)
			}
		})
	}
}
