package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitaltrack/health-tracker/internal/core/access"
	"github.com/vitaltrack/health-tracker/internal/core/domain"
	"github.com/vitaltrack/health-tracker/internal/core/ports"
	"github.com/vitaltrack/health-tracker/internal/core/validation"
)

// RecordService authorizes, validates and persists health records. Every
// write is validated in full before the repository is touched.
type RecordService struct {
	records   ports.RecordRepository
	access    *access.Engine
	validator *validation.Engine
	activity  ports.ActivitySink
	log       zerolog.Logger
	now       func() time.Time
}

func NewRecordService(
	records ports.RecordRepository,
	accessEngine *access.Engine,
	validator *validation.Engine,
	activity ports.ActivitySink,
	log zerolog.Logger,
) *RecordService {
	if activity == nil {
		activity = ports.NopActivitySink{}
	}
	return &RecordService{
		records:   records,
		access:    accessEngine,
		validator: validator,
		activity:  activity,
		log:       log,
		now:       time.Now,
	}
}

// Create stores a new record for the effective target.
func (s *RecordService) Create(ctx context.Context, p domain.Principal, declaredTarget string, in domain.RecordInput) (*domain.HealthRecord, error) {
	target, err := s.target(ctx, p, declaredTarget)
	if err != nil {
		return nil, err
	}

	rec := &domain.HealthRecord{OwnerUserID: target}
	in.ApplyTo(rec)

	existing, err := s.sameDate(ctx, target, rec.Date)
	if err != nil {
		return nil, err
	}
	// Advisory: the store's unique (owner, date) constraint is what actually
	// serializes concurrent creates.
	if err := s.validator.Validate(rec, validation.ModeCreate, existing); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rec.ID = uuid.NewString()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	created, err := s.records.Create(ctx, target, rec)
	if err != nil {
		return nil, err
	}

	s.audit(p, declaredTarget, target, domain.ActionRecordCreate, created.ID)
	s.log.Info().
		Str("record_id", created.ID).
		Str("owner_user_id", target).
		Str("actor_user_id", p.UserID).
		Str("date", created.Date.String()).
		Msg("health record created")
	return created, nil
}

// Update merges in onto the stored record, validates the result and
// persists it.
func (s *RecordService) Update(ctx context.Context, p domain.Principal, declaredTarget, recordID string, in domain.RecordInput) (*domain.HealthRecord, error) {
	stored, err := s.authorizedRecord(ctx, p, declaredTarget, recordID)
	if err != nil {
		return nil, err
	}

	merged := *stored
	in.ApplyTo(&merged)
	merged.ID = stored.ID
	merged.OwnerUserID = stored.OwnerUserID

	existing, err := s.sameDate(ctx, stored.OwnerUserID, merged.Date)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(&merged, validation.ModeUpdate, existing); err != nil {
		return nil, err
	}

	merged.UpdatedAt = s.now().UTC()
	updated, err := s.records.Update(ctx, stored.ID, stored.OwnerUserID, &merged)
	if err != nil {
		return nil, err
	}

	s.audit(p, declaredTarget, stored.OwnerUserID, domain.ActionRecordUpdate, stored.ID)
	s.log.Info().
		Str("record_id", stored.ID).
		Str("owner_user_id", stored.OwnerUserID).
		Str("actor_user_id", p.UserID).
		Msg("health record updated")
	return updated, nil
}

// Delete removes a record permanently.
func (s *RecordService) Delete(ctx context.Context, p domain.Principal, declaredTarget, recordID string) error {
	stored, err := s.authorizedRecord(ctx, p, declaredTarget, recordID)
	if err != nil {
		return err
	}
	if err := s.records.Delete(ctx, stored.ID, stored.OwnerUserID); err != nil {
		return err
	}

	s.audit(p, declaredTarget, stored.OwnerUserID, domain.ActionRecordDelete, stored.ID)
	s.log.Info().
		Str("record_id", stored.ID).
		Str("owner_user_id", stored.OwnerUserID).
		Str("actor_user_id", p.UserID).
		Msg("health record deleted")
	return nil
}

func (s *RecordService) Get(ctx context.Context, p domain.Principal, declaredTarget, recordID string) (*domain.HealthRecord, error) {
	return s.authorizedRecord(ctx, p, declaredTarget, recordID)
}

// List returns the effective target's records, newest first.
func (s *RecordService) List(ctx context.Context, p domain.Principal, declaredTarget string, filter ports.ListRecordsFilter) ([]*domain.HealthRecord, error) {
	target, err := s.target(ctx, p, declaredTarget)
	if err != nil {
		return nil, err
	}
	return s.records.ListByOwner(ctx, target, filter)
}

func (s *RecordService) Stats(ctx context.Context, p domain.Principal, declaredTarget string) (*domain.RecordStats, error) {
	target, err := s.target(ctx, p, declaredTarget)
	if err != nil {
		return nil, err
	}
	return s.records.Stats(ctx, target)
}

// target resolves the effective target of a create or listing and checks the
// principal may act on it.
func (s *RecordService) target(ctx context.Context, p domain.Principal, declaredTarget string) (string, error) {
	target, err := s.access.ResolveExistingTarget(ctx, p, declaredTarget)
	if err != nil {
		return "", err
	}
	if err := s.access.AuthorizeOwnerOperation(p, target, declaredTarget); err != nil {
		return "", err
	}
	return target, nil
}

// authorizedRecord loads a record and checks the principal may act on its
// owner's data.
func (s *RecordService) authorizedRecord(ctx context.Context, p domain.Principal, declaredTarget, recordID string) (*domain.HealthRecord, error) {
	stored, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if err := s.access.AuthorizeOwnerOperation(p, stored.OwnerUserID, declaredTarget); err != nil {
		s.log.Warn().
			Str("record_id", recordID).
			Str("actor_user_id", p.UserID).
			Msg("record access denied")
		return nil, err
	}
	return stored, nil
}

func (s *RecordService) sameDate(ctx context.Context, owner string, date domain.Date) ([]*domain.HealthRecord, error) {
	if date.IsZero() {
		return nil, nil
	}
	rec, err := s.records.FindByOwnerAndDate(ctx, owner, date)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return []*domain.HealthRecord{rec}, nil
}

// audit records writes made on someone else's data.
func (s *RecordService) audit(p domain.Principal, declaredTarget, owner, action, resourceID string) {
	if owner == p.UserID {
		return
	}
	s.activity.Enqueue(domain.ActivityEvent{
		ActorUserID:   p.UserID,
		SubjectUserID: owner,
		Action:        action,
		ResourceID:    resourceID,
		Impersonated:  access.IsImpersonating(p, declaredTarget),
		OccurredAt:    s.now().UTC(),
	})
}
