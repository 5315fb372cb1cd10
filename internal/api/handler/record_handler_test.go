package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/vitaltrack/health-tracker/internal/api/middleware"
	"github.com/vitaltrack/health-tracker/internal/core/domain"
	"github.com/vitaltrack/health-tracker/internal/core/ports"
)

// stubRecordService records the arguments of the last call.
type stubRecordService struct {
	principal domain.Principal
	declared  string
	recordID  string
	input     domain.RecordInput
	filter    ports.ListRecordsFilter
	err       error
}

func (s *stubRecordService) Create(_ context.Context, p domain.Principal, declared string, in domain.RecordInput) (*domain.HealthRecord, error) {
	s.principal, s.declared, s.input = p, declared, in
	if s.err != nil {
		return nil, s.err
	}
	rec := &domain.HealthRecord{ID: "r-1", OwnerUserID: p.UserID}
	in.ApplyTo(rec)
	return rec, nil
}

func (s *stubRecordService) Update(_ context.Context, p domain.Principal, declared, id string, in domain.RecordInput) (*domain.HealthRecord, error) {
	s.principal, s.declared, s.recordID, s.input = p, declared, id, in
	if s.err != nil {
		return nil, s.err
	}
	rec := &domain.HealthRecord{ID: id, OwnerUserID: p.UserID}
	in.ApplyTo(rec)
	return rec, nil
}

func (s *stubRecordService) Delete(_ context.Context, p domain.Principal, declared, id string) error {
	s.principal, s.declared, s.recordID = p, declared, id
	return s.err
}

func (s *stubRecordService) Get(_ context.Context, p domain.Principal, declared, id string) (*domain.HealthRecord, error) {
	s.principal, s.declared, s.recordID = p, declared, id
	if s.err != nil {
		return nil, s.err
	}
	return &domain.HealthRecord{ID: id, OwnerUserID: p.UserID}, nil
}

func (s *stubRecordService) List(_ context.Context, p domain.Principal, declared string, f ports.ListRecordsFilter) ([]*domain.HealthRecord, error) {
	s.principal, s.declared, s.filter = p, declared, f
	return nil, s.err
}

func (s *stubRecordService) Stats(_ context.Context, p domain.Principal, declared string) (*domain.RecordStats, error) {
	s.principal, s.declared = p, declared
	return &domain.RecordStats{}, s.err
}

var testCustomer = domain.Principal{UserID: "u-1", Email: "ann@example.com", Role: domain.RoleCustomer}

func authedContext(e *echo.Echo, req *http.Request, p domain.Principal, declared string) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.PrincipalKey, p)
	if declared != "" {
		c.Set(middleware.DeclaredTargetKey, declared)
	}
	return c, rec
}

func TestRecordHandler_Create_AcceptsCamelCase(t *testing.T) {
	e := newTestEcho()
	svc := &stubRecordService{}
	h := NewRecordHandler(svc)

	body := `{"date":"2024-01-15","weight":80,"height":180,"age":34,"bodyFatPercentage":20,"muscleMass":"55.5"}`
	c, rec := authedContext(e, jsonRequest(http.MethodPost, "/v1/records", body), testCustomer, "u-2")

	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if svc.declared != "u-2" {
		t.Fatalf("expected declared target to reach the service, got %q", svc.declared)
	}
	if svc.input.BodyFatPercent == nil || *svc.input.BodyFatPercent != 20 {
		t.Fatalf("camelCase body fat not normalized: %+v", svc.input)
	}
	if svc.input.MuscleMassKg == nil || *svc.input.MuscleMassKg != 55.5 {
		t.Fatalf("numeric string not normalized: %+v", svc.input)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["body_fat_percentage"] != float64(20) || resp["date"] != "2024-01-15" {
		t.Fatalf("response should use snake_case keys: %+v", resp)
	}
}

func TestRecordHandler_Create_InvalidJSON(t *testing.T) {
	e := newTestEcho()
	h := NewRecordHandler(&stubRecordService{})

	c, _ := authedContext(e, jsonRequest(http.MethodPost, "/v1/records", `{"weight":`), testCustomer, "")

	var he *echo.HTTPError
	if err := h.Create(c); !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestRecordHandler_Create_PassesServiceErrors(t *testing.T) {
	e := newTestEcho()
	svc := &stubRecordService{err: domain.DuplicateDateForUser(domain.MustParseDate("2024-01-15"))}
	h := NewRecordHandler(svc)

	c, _ := authedContext(e, jsonRequest(http.MethodPost, "/v1/records", `{"date":"2024-01-15","weight":80,"height":180,"age":34}`), testCustomer, "")

	if err := h.Create(c); !errors.Is(err, domain.ErrDuplicateDateForUser) {
		t.Fatalf("expected ErrDuplicateDateForUser, got %v", err)
	}
}

func TestRecordHandler_Update_UsesPathID(t *testing.T) {
	e := newTestEcho()
	svc := &stubRecordService{}
	h := NewRecordHandler(svc)

	c, rec := authedContext(e, jsonRequest(http.MethodPut, "/v1/records/r-9", `{"notes":"after holidays"}`), testCustomer, "")
	c.SetParamNames("id")
	c.SetParamValues("r-9")

	if err := h.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || svc.recordID != "r-9" {
		t.Fatalf("unexpected update: code=%d id=%q", rec.Code, svc.recordID)
	}
	if svc.input.Notes == nil || *svc.input.Notes != "after holidays" || svc.input.WeightKg != nil {
		t.Fatalf("only notes should be set: %+v", svc.input)
	}
}

func TestRecordHandler_Delete(t *testing.T) {
	e := newTestEcho()
	svc := &stubRecordService{}
	h := NewRecordHandler(svc)

	c, rec := authedContext(e, httptest.NewRequest(http.MethodDelete, "/v1/records/r-1", nil), testCustomer, "")
	c.SetParamNames("id")
	c.SetParamValues("r-1")

	if err := h.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	svc.err = domain.ErrAccessDenied
	c, _ = authedContext(e, httptest.NewRequest(http.MethodDelete, "/v1/records/r-1", nil), testCustomer, "")
	c.SetParamNames("id")
	c.SetParamValues("r-1")
	if err := h.Delete(c); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestRecordHandler_List_DateRange(t *testing.T) {
	e := newTestEcho()
	svc := &stubRecordService{}
	h := NewRecordHandler(svc)

	c, rec := authedContext(e, httptest.NewRequest(http.MethodGet, "/v1/records?from=2024-01-01&to=2024-01-31", nil), testCustomer, "")
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if svc.filter.From.String() != "2024-01-01" || svc.filter.To.String() != "2024-01-31" {
		t.Fatalf("unexpected filter: %+v", svc.filter)
	}
	if rec.Body.String() != "{\"records\":[],\"count\":0}\n" {
		t.Fatalf("expected empty list, got %s", rec.Body.String())
	}

	c, _ = authedContext(e, httptest.NewRequest(http.MethodGet, "/v1/records?from=yesterday", nil), testCustomer, "")
	if err := h.List(c); !errors.Is(err, domain.ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}

	c, _ = authedContext(e, httptest.NewRequest(http.MethodGet, "/v1/records?from=2024-02-01&to=2024-01-01", nil), testCustomer, "")
	if err := h.List(c); !errors.Is(err, domain.ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue for inverted range, got %v", err)
	}
}

func TestWriteScope(t *testing.T) {
	admin := domain.Principal{UserID: "a-1", Role: domain.RoleAdmin}

	cases := []struct {
		p        domain.Principal
		declared string
		owner    string
		want     string
	}{
		{testCustomer, "", "u-1", "self"},
		{testCustomer, "u-2", "u-1", "self"},
		{admin, "u-2", "u-2", "impersonated"},
		{admin, "", "u-2", "admin"},
	}
	for _, tc := range cases {
		if got := writeScope(tc.p, tc.declared, tc.owner); got != tc.want {
			t.Fatalf("writeScope(%s, %q, %s) = %s, want %s", tc.p.UserID, tc.declared, tc.owner, got, tc.want)
		}
	}
}
