package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
	"github.com/vitaltrack/health-tracker/internal/core/ports"
	"github.com/vitaltrack/health-tracker/internal/infrastructure/db/mongo"
	"github.com/vitaltrack/health-tracker/internal/infrastructure/db/postgres"
	redisdb "github.com/vitaltrack/health-tracker/internal/infrastructure/db/redis"
	"github.com/vitaltrack/health-tracker/internal/infrastructure/http/handlers"
	"github.com/vitaltrack/health-tracker/internal/pkg/config"
)

const minAdminPasswordLength = 6

// store bundles the repositories of the configured storage driver.
type store struct {
	users    ports.UserRepository
	records  ports.RecordRepository
	activity ports.ActivityRepository
	probes   map[string]handlers.Pinger
	close    func()
}

// openStore connects the configured driver and brings its schema up to date.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	switch cfg.StorageDriver {
	case config.DriverMongo:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		if err := mongo.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")
		return &store{
			users:    mongo.NewUserRepository(db),
			records:  mongo.NewRecordRepository(db),
			activity: mongo.NewActivityRepository(db),
			probes:   map[string]handlers.Pinger{"mongodb": handlers.MongoPinger(db)},
			close: func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = client.Disconnect(ctx)
			},
		}, nil

	default:
		pool, err := postgres.NewPool(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool, "up"); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info().Msg("connected to postgres")
		return &store{
			users:    postgres.NewUserRepository(pool),
			records:  postgres.NewRecordRepository(pool),
			activity: postgres.NewActivityRepository(pool),
			probes: map[string]handlers.Pinger{
				"postgres": handlers.PingFunc(pool.Ping),
			},
			close: pool.Close,
		}, nil
	}
}

// openRoleCache connects redis when configured. A nil cache means roles are
// always read from the store.
func openRoleCache(ctx context.Context, cfg *config.Config, st *store, log zerolog.Logger) (ports.RoleCache, func(), error) {
	if cfg.Redis.Addr == "" {
		return nil, func() {}, nil
	}
	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, nil, err
	}
	st.probes["redis"] = handlers.RedisPinger(rdb)
	log.Info().Str("addr", cfg.Redis.Addr).Msg("role cache enabled")
	return redisdb.NewRoleCache(rdb, cfg.Redis.RoleTTL), func() { _ = rdb.Close() }, nil
}

// migrate runs a schema command against the configured driver. MongoDB has
// no versioned schema; "up" ensures its indexes.
func migrate(ctx context.Context, cfg *config.Config, command string) error {
	if cfg.StorageDriver == config.DriverMongo {
		if command != "up" {
			return fmt.Errorf("%q is not supported for mongodb", command)
		}
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		return mongo.EnsureIndexes(ctx, db)
	}

	pool, err := postgres.NewPool(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	return postgres.Migrate(ctx, pool, command)
}

// ensureAdmin promotes the account registered under email through roles, or
// creates it as an admin when none exists. It reports whether an account was
// created.
func ensureAdmin(ctx context.Context, users ports.UserRepository, roles ports.RoleStore, hasher ports.PasswordHasher, email, password, name string) (*domain.User, bool, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, false, domain.MissingField("email")
	}

	existing, err := users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if err := roles.SetRole(ctx, existing.ID, domain.RoleAdmin); err != nil {
			return nil, false, err
		}
		existing.Role = domain.RoleAdmin
		return existing, false, nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, false, err
	}

	if len(password) < minAdminPasswordLength {
		return nil, false, domain.InvalidValue("password", fmt.Sprintf("must be at least %d characters", minAdminPasswordLength))
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	created, err := users.Create(ctx, &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}
