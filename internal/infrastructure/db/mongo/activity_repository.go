package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
)

// ActivityRepository appends audit entries to the activity_log collection.
type ActivityRepository struct {
	col *mongo.Collection
}

func NewActivityRepository(db *mongo.Database) *ActivityRepository {
	return &ActivityRepository{col: db.Collection(collectionActivity)}
}

func (r *ActivityRepository) InsertActivity(ctx context.Context, e domain.ActivityEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := bson.M{
		"actor_user_id":   e.ActorUserID,
		"subject_user_id": e.SubjectUserID,
		"action":          e.Action,
		"impersonated":    e.Impersonated,
		"occurred_at":     e.OccurredAt.UTC(),
	}
	if e.ResourceID != "" {
		doc["resource_id"] = e.ResourceID
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return domain.NewStorageError("insert activity", err)
	}
	return nil
}
