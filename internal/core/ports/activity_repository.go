package ports

import (
	"context"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
)

// ActivityRepository appends audit entries to the activity log.
type ActivityRepository interface {
	InsertActivity(ctx context.Context, event domain.ActivityEvent) error
}
