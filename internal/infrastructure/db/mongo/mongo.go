// Package mongo implements the repositories on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultTimeout = 10 * time.Second
	indexTimeout   = 30 * time.Second

	collectionUsers    = "users"
	collectionRecords  = "health_records"
	collectionActivity = "activity_log"
)

// Config captures the minimal settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns both the client and the selected database. A default timeout is
// applied when none is provided.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(cfg.Database)
	return client, db, nil
}

// EnsureIndexes creates the unique indexes the repositories rely on: one
// account per email and one record per (owner, date).
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	if _, err := db.Collection(collectionUsers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bsonKeys("email"),
		Options: options.Index().SetUnique(true).SetName("users_email_unique"),
	}); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	_, err := db.Collection(collectionRecords).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bsonKeys("user_id", "date"),
			Options: options.Index().SetUnique(true).SetName("health_records_user_date_unique"),
		},
	})
	if err != nil {
		return fmt.Errorf("health_records indexes: %w", err)
	}

	_, err = db.Collection(collectionActivity).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bsonKeys("subject_user_id", "occurred_at"),
	})
	if err != nil {
		return fmt.Errorf("activity_log indexes: %w", err)
	}
	return nil
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// bsonKeys builds an ascending compound index key in field order.
func bsonKeys(fields ...string) bson.D {
	keys := make(bson.D, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, bson.E{Key: f, Value: 1})
	}
	return keys
}
