package ports

import (
	"context"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
)

// ListRecordsFilter narrows a user's record listing to a date window.
type ListRecordsFilter struct {
	From domain.Date // optional: date >= From
	To   domain.Date // optional: date <= To
}

// ListAllRecordsFilter pages the admin console's listing across all users.
type ListAllRecordsFilter struct {
	From  domain.Date // optional: date >= From
	To    domain.Date // optional: date <= To
	Page  int         // 1-based
	Limit int         // capped at 100 by the service
}

// RecordRepository persists health records. Every method except FindByID is
// scoped by the owner id the caller passes in; the repository performs no
// authorization of its own.
//
// A unique (owner, date) constraint is enforced by the store itself, and a
// violation surfaces as domain.ErrDuplicateDateForUser from Create and Update.
type RecordRepository interface {
	Create(ctx context.Context, ownerUserID string, rec *domain.HealthRecord) (*domain.HealthRecord, error)
	Update(ctx context.Context, recordID, ownerUserID string, rec *domain.HealthRecord) (*domain.HealthRecord, error)
	Delete(ctx context.Context, recordID, ownerUserID string) error
	// FindByID is unscoped. It exists so the service can learn a record's
	// owner and authorize against it.
	FindByID(ctx context.Context, recordID string) (*domain.HealthRecord, error)
	// FindByOwnerAndDate returns (nil, nil) when no record exists.
	FindByOwnerAndDate(ctx context.Context, ownerUserID string, date domain.Date) (*domain.HealthRecord, error)
	// ListByOwner returns records newest first.
	ListByOwner(ctx context.Context, ownerUserID string, filter ListRecordsFilter) ([]*domain.HealthRecord, error)
	Stats(ctx context.Context, ownerUserID string) (*domain.RecordStats, error)
	// ListAll spans every owner, most recently created first, and returns the
	// total number of matches.
	ListAll(ctx context.Context, filter ListAllRecordsFilter) ([]*domain.OwnedRecord, int64, error)
}
