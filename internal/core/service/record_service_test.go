package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vitaltrack/health-tracker/internal/core/access"
	"github.com/vitaltrack/health-tracker/internal/core/domain"
	"github.com/vitaltrack/health-tracker/internal/core/ports"
	"github.com/vitaltrack/health-tracker/internal/core/validation"
)

// ---------------------------------------------------------------------------
// In-memory stub record repository
// ---------------------------------------------------------------------------

// stubRecordRepo enforces the unique (owner, date) constraint the real stores
// carry, under a mutex.
type stubRecordRepo struct {
	mu        sync.Mutex
	byID      map[string]*domain.HealthRecord
	creates   int
	updates   int
	createErr error
	allFilter ports.ListAllRecordsFilter

	// findBarrier, when set, makes FindByOwnerAndDate wait for every caller
	// to arrive before returning. It forces concurrent creates past the
	// advisory pre-check together.
	findBarrier *sync.WaitGroup
}

func newStubRecordRepo() *stubRecordRepo {
	return &stubRecordRepo{byID: make(map[string]*domain.HealthRecord)}
}

func cloneRecord(r *domain.HealthRecord) *domain.HealthRecord {
	clone := *r
	return &clone
}

func (r *stubRecordRepo) conflict(owner string, date domain.Date, exceptID string) bool {
	for id, rec := range r.byID {
		if id != exceptID && rec.OwnerUserID == owner && rec.Date.Equal(date) {
			return true
		}
	}
	return false
}

func (r *stubRecordRepo) Create(_ context.Context, owner string, rec *domain.HealthRecord) (*domain.HealthRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	if r.conflict(owner, rec.Date, "") {
		return nil, domain.DuplicateDateForUser(rec.Date)
	}
	r.creates++
	stored := cloneRecord(rec)
	stored.OwnerUserID = owner
	r.byID[stored.ID] = stored
	return cloneRecord(stored), nil
}

func (r *stubRecordRepo) Update(_ context.Context, id, owner string, rec *domain.HealthRecord) (*domain.HealthRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[id]
	if !ok || existing.OwnerUserID != owner {
		return nil, domain.ErrRecordNotFound
	}
	if r.conflict(owner, rec.Date, id) {
		return nil, domain.DuplicateDateForUser(rec.Date)
	}
	r.updates++
	stored := cloneRecord(rec)
	stored.ID = id
	stored.OwnerUserID = owner
	r.byID[id] = stored
	return cloneRecord(stored), nil
}

func (r *stubRecordRepo) Delete(_ context.Context, id, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[id]
	if !ok || existing.OwnerUserID != owner {
		return domain.ErrRecordNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *stubRecordRepo) FindByID(_ context.Context, id string) (*domain.HealthRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return cloneRecord(rec), nil
}

func (r *stubRecordRepo) FindByOwnerAndDate(_ context.Context, owner string, date domain.Date) (*domain.HealthRecord, error) {
	r.mu.Lock()
	var found *domain.HealthRecord
	for _, rec := range r.byID {
		if rec.OwnerUserID == owner && rec.Date.Equal(date) {
			found = cloneRecord(rec)
			break
		}
	}
	r.mu.Unlock()

	if r.findBarrier != nil {
		r.findBarrier.Done()
		r.findBarrier.Wait()
	}
	return found, nil
}

func (r *stubRecordRepo) ListByOwner(_ context.Context, owner string, f ports.ListRecordsFilter) ([]*domain.HealthRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.HealthRecord
	for _, rec := range r.byID {
		if rec.OwnerUserID != owner {
			continue
		}
		if !f.From.IsZero() && rec.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && f.To.Before(rec.Date) {
			continue
		}
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[j].Date.Before(out[i].Date) })
	return out, nil
}

func (r *stubRecordRepo) Stats(_ context.Context, owner string) (*domain.RecordStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &domain.RecordStats{}
	for _, rec := range r.byID {
		if rec.OwnerUserID == owner {
			stats.TotalRecords++
		}
	}
	return stats, nil
}

func (r *stubRecordRepo) ListAll(_ context.Context, f ports.ListAllRecordsFilter) ([]*domain.OwnedRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.allFilter = f
	out := make([]*domain.OwnedRecord, 0, len(r.byID))
	for _, rec := range r.byID {
		out = append(out, &domain.OwnedRecord{HealthRecord: *cloneRecord(rec)})
	}
	sort.Slice(out, func(i, j int) bool { return out[j].CreatedAt.Before(out[i].CreatedAt) })
	total := int64(len(out))
	start := (f.Page - 1) * f.Limit
	if start > len(out) {
		start = len(out)
	}
	end := start + f.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.ActivityEvent
}

func (s *recordingSink) Enqueue(e domain.ActivityEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) all() []domain.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ActivityEvent(nil), s.events...)
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

var (
	pAdmin = domain.Principal{UserID: "admin-1", Email: "root@example.com", Role: domain.RoleAdmin}
	pAnn   = domain.Principal{UserID: "user-1", Email: "ann@example.com", Role: domain.RoleCustomer}
	pBen   = domain.Principal{UserID: "user-2", Email: "ben@example.com", Role: domain.RoleCustomer}
)

func newRecordFixture() (*RecordService, *stubRecordRepo, *recordingSink) {
	users := newStubUserRepo(
		&domain.User{ID: pAdmin.UserID, Email: pAdmin.Email, Role: domain.RoleAdmin},
		&domain.User{ID: pAnn.UserID, Email: pAnn.Email, Role: domain.RoleCustomer},
		&domain.User{ID: pBen.UserID, Email: pBen.Email, Role: domain.RoleCustomer},
	)
	repo := newStubRecordRepo()
	sink := &recordingSink{}
	svc := NewRecordService(repo, access.NewEngine(users), validation.NewEngine(validation.DefaultRules()), sink, zerolog.Nop())
	return svc, repo, sink
}

func recordInput(date string) domain.RecordInput {
	d := domain.MustParseDate(date)
	return domain.RecordInput{
		Date:     &d,
		WeightKg: domain.Float(80),
		HeightCm: domain.Float(180),
		AgeYears: domain.Int(34),
	}
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestRecordService_Create_Self(t *testing.T) {
	svc, repo, sink := newRecordFixture()

	rec, err := svc.Create(context.Background(), pAnn, "", recordInput("2024-01-15"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.OwnerUserID != pAnn.UserID {
		t.Fatalf("expected owner %s, got %s", pAnn.UserID, rec.OwnerUserID)
	}
	if rec.ID == "" || rec.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamps to be set: %+v", rec)
	}
	if repo.creates != 1 {
		t.Fatalf("expected 1 insert, got %d", repo.creates)
	}
	if len(sink.all()) != 0 {
		t.Fatalf("self writes must not be audited")
	}
}

func TestRecordService_Create_CustomerCannotTargetOthers(t *testing.T) {
	svc, _, _ := newRecordFixture()

	rec, err := svc.Create(context.Background(), pAnn, pBen.UserID, recordInput("2024-01-15"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.OwnerUserID != pAnn.UserID {
		t.Fatalf("declared target must be ignored for customers, record went to %s", rec.OwnerUserID)
	}
}

func TestRecordService_Create_AdminImpersonating(t *testing.T) {
	svc, _, sink := newRecordFixture()

	rec, err := svc.Create(context.Background(), pAdmin, pBen.UserID, recordInput("2024-01-15"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.OwnerUserID != pBen.UserID {
		t.Fatalf("expected record for impersonated user, got %s", rec.OwnerUserID)
	}

	events := sink.all()
	if len(events) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(events))
	}
	e := events[0]
	if e.Action != domain.ActionRecordCreate || e.ActorUserID != pAdmin.UserID || e.SubjectUserID != pBen.UserID || !e.Impersonated {
		t.Fatalf("unexpected audit event: %+v", e)
	}
}

func TestRecordService_Create_ImpersonatedUserMustExist(t *testing.T) {
	svc, repo, sink := newRecordFixture()

	rec, err := svc.Create(context.Background(), pAdmin, "no-such-user", recordInput("2024-01-15"))
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got rec=%v err=%v", rec, err)
	}
	if repo.creates != 0 || len(sink.all()) != 0 {
		t.Fatalf("nothing should be written or audited")
	}

	if _, err := svc.List(context.Background(), pAdmin, "no-such-user", ports.ListRecordsFilter{}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound from List, got %v", err)
	}
}

func TestRecordService_Create_ValidationFailureWritesNothing(t *testing.T) {
	svc, repo, _ := newRecordFixture()

	in := recordInput("2024-01-15")
	in.BMI = domain.Float(30)

	_, err := svc.Create(context.Background(), pAnn, "", in)
	if !errors.Is(err, domain.ErrInconsistentBMI) {
		t.Fatalf("expected ErrInconsistentBMI, got %v", err)
	}
	if repo.creates != 0 {
		t.Fatalf("expected no insert after validation failure")
	}
}

func TestRecordService_Create_MissingFields(t *testing.T) {
	svc, _, _ := newRecordFixture()

	_, err := svc.Create(context.Background(), pAnn, "", domain.RecordInput{WeightKg: domain.Float(80)})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Code != domain.CodeMissingField || ve.Field != domain.FieldDate {
		t.Fatalf("expected MISSING_FIELD(date), got %v", err)
	}
}

func TestRecordService_Create_DuplicateDate(t *testing.T) {
	svc, _, _ := newRecordFixture()
	ctx := context.Background()

	if _, err := svc.Create(ctx, pAnn, "", recordInput("2024-01-15")); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(ctx, pAnn, "", recordInput("2024-01-15")); !errors.Is(err, domain.ErrDuplicateDateForUser) {
		t.Fatalf("expected ErrDuplicateDateForUser, got %v", err)
	}
	// Another user may use the same date.
	if _, err := svc.Create(ctx, pBen, "", recordInput("2024-01-15")); err != nil {
		t.Fatalf("other user same date: %v", err)
	}
}

func TestRecordService_Create_ConcurrentSameDate(t *testing.T) {
	for i := 0; i < 20; i++ {
		svc, repo, _ := newRecordFixture()
		barrier := &sync.WaitGroup{}
		barrier.Add(2)
		repo.findBarrier = barrier

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for g := 0; g < 2; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				_, errs[g] = svc.Create(context.Background(), pAnn, "", recordInput("2024-01-15"))
			}(g)
		}
		wg.Wait()

		succeeded, duplicates := 0, 0
		for _, err := range errs {
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrDuplicateDateForUser):
				duplicates++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if succeeded != 1 || duplicates != 1 {
			t.Fatalf("expected exactly one success and one duplicate, got %d/%d", succeeded, duplicates)
		}
	}
}

func TestRecordService_Create_StorageErrorPropagates(t *testing.T) {
	svc, repo, _ := newRecordFixture()
	repo.createErr = domain.NewStorageError("insert health record", errors.New("connection reset"))

	_, err := svc.Create(context.Background(), pAnn, "", recordInput("2024-01-15"))
	var se *domain.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestRecordService_Update_OwnDateToItself(t *testing.T) {
	svc, repo, _ := newRecordFixture()
	ctx := context.Background()

	rec, err := svc.Create(ctx, pAnn, "", recordInput("2024-01-15"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	in := recordInput("2024-01-15")
	in.WeightKg = domain.Float(79)
	updated, err := svc.Update(ctx, pAnn, "", rec.ID, in)
	if err != nil {
		t.Fatalf("update with own date: %v", err)
	}
	if *updated.WeightKg != 79 {
		t.Fatalf("expected weight 79, got %v", *updated.WeightKg)
	}
	if repo.updates != 1 {
		t.Fatalf("expected 1 update, got %d", repo.updates)
	}
}

func TestRecordService_Update_ToTakenDate(t *testing.T) {
	svc, _, _ := newRecordFixture()
	ctx := context.Background()

	if _, err := svc.Create(ctx, pAnn, "", recordInput("2024-01-15")); err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := svc.Create(ctx, pAnn, "", recordInput("2024-01-16"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	d := domain.MustParseDate("2024-01-15")
	if _, err := svc.Update(ctx, pAnn, "", second.ID, domain.RecordInput{Date: &d}); !errors.Is(err, domain.ErrDuplicateDateForUser) {
		t.Fatalf("expected ErrDuplicateDateForUser, got %v", err)
	}
}

func TestRecordService_Update_MergesBeforeValidating(t *testing.T) {
	svc, repo, _ := newRecordFixture()
	ctx := context.Background()

	rec, err := svc.Create(ctx, pAnn, "", recordInput("2024-01-15"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Stored weight 80 / height 180 make BMI 30 inconsistent.
	if _, err := svc.Update(ctx, pAnn, "", rec.ID, domain.RecordInput{BMI: domain.Float(30)}); !errors.Is(err, domain.ErrInconsistentBMI) {
		t.Fatalf("expected ErrInconsistentBMI, got %v", err)
	}
	if repo.updates != 0 {
		t.Fatalf("rejected update must not reach the store")
	}

	updated, err := svc.Update(ctx, pAnn, "", rec.ID, domain.RecordInput{BMI: domain.Float(24.7)})
	if err != nil {
		t.Fatalf("consistent update: %v", err)
	}
	if *updated.WeightKg != 80 || *updated.BMI != 24.7 {
		t.Fatalf("expected merged record, got %+v", updated)
	}
}

func TestRecordService_Update_CustomerOnOthersRecord(t *testing.T) {
	svc, repo, _ := newRecordFixture()
	ctx := context.Background()

	rec, err := svc.Create(ctx, pBen, "", recordInput("2024-01-15"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, declared := range []string{"", pBen.UserID} {
		_, err := svc.Update(ctx, pAnn, declared, rec.ID, domain.RecordInput{Notes: strPtr("mine now")})
		if !errors.Is(err, domain.ErrAccessDenied) {
			t.Fatalf("declared=%q: expected ErrAccessDenied, got %v", declared, err)
		}
	}
	if repo.updates != 0 {
		t.Fatalf("denied update must not reach the store")
	}
}

func TestRecordService_Update_AdminFromConsole(t *testing.T) {
	svc, _, sink := newRecordFixture()
	ctx := context.Background()

	rec, err := svc.Create(ctx, pBen, "", recordInput("2024-01-15"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Update(ctx, pAdmin, "", rec.ID, domain.RecordInput{Notes: strPtr("checked")}); err != nil {
		t.Fatalf("admin update: %v", err)
	}

	events := sink.all()
	if len(events) != 1 || events[0].Impersonated || events[0].SubjectUserID != pBen.UserID {
		t.Fatalf("expected non-impersonated audit event for ben, got %+v", events)
	}
}

func TestRecordService_Update_NotFound(t *testing.T) {
	svc, _, _ := newRecordFixture()
	if _, err := svc.Update(context.Background(), pAnn, "", "missing", domain.RecordInput{}); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Delete / read
// ---------------------------------------------------------------------------

func TestRecordService_Delete(t *testing.T) {
	svc, _, _ := newRecordFixture()
	ctx := context.Background()

	rec, err := svc.Create(ctx, pAnn, "", recordInput("2024-01-15"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, pBen, "", rec.ID); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if err := svc.Delete(ctx, pAnn, "", rec.ID); err != nil {
		t.Fatalf("delete own: %v", err)
	}
	if err := svc.Delete(ctx, pAnn, "", rec.ID); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound after delete, got %v", err)
	}
}

func TestRecordService_ListFollowsEffectiveTarget(t *testing.T) {
	svc, _, _ := newRecordFixture()
	ctx := context.Background()

	for _, date := range []string{"2024-01-14", "2024-01-15"} {
		if _, err := svc.Create(ctx, pBen, "", recordInput(date)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	own, err := svc.List(ctx, pAnn, pBen.UserID, ports.ListRecordsFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(own) != 0 {
		t.Fatalf("customer must only see own records, got %d", len(own))
	}

	impersonated, err := svc.List(ctx, pAdmin, pBen.UserID, ports.ListRecordsFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(impersonated) != 2 || impersonated[0].Date.String() != "2024-01-15" {
		t.Fatalf("expected ben's records newest first, got %+v", impersonated)
	}

	stats, err := svc.Stats(ctx, pAdmin, pBen.UserID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalRecords != 2 {
		t.Fatalf("expected 2 records in stats, got %d", stats.TotalRecords)
	}
}

func TestRecordService_GetOthersRecordDenied(t *testing.T) {
	svc, _, _ := newRecordFixture()
	ctx := context.Background()

	rec, err := svc.Create(ctx, pBen, "", recordInput("2024-01-15"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Get(ctx, pAnn, "", rec.ID); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if _, err := svc.Get(ctx, pAdmin, pBen.UserID, rec.ID); err != nil {
		t.Fatalf("admin get: %v", err)
	}
}

func strPtr(s string) *string { return &s }
