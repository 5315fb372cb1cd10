package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
)

type ActivityRepository struct {
	pool *pgxpool.Pool
}

func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

// InsertActivity appends one entry to activity_log.
func (r *ActivityRepository) InsertActivity(ctx context.Context, e domain.ActivityEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO activity_log (actor_user_id, subject_user_id, action, resource_id, impersonated, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ActorUserID, e.SubjectUserID, e.Action, e.ResourceID, e.Impersonated, e.OccurredAt.UTC())
	if err != nil {
		return domain.NewStorageError("insert activity", err)
	}
	return nil
}
