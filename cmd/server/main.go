package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	_ "github.com/vitaltrack/health-tracker/docs"
	"github.com/vitaltrack/health-tracker/internal/api"
	"github.com/vitaltrack/health-tracker/internal/core/access"
	"github.com/vitaltrack/health-tracker/internal/core/service"
	"github.com/vitaltrack/health-tracker/internal/core/validation"
	"github.com/vitaltrack/health-tracker/internal/infrastructure/crypto"
	"github.com/vitaltrack/health-tracker/internal/infrastructure/queue"
	"github.com/vitaltrack/health-tracker/internal/pkg/config"
	"github.com/vitaltrack/health-tracker/pkg/logger"
)

// @title                       Health Tracker API
// @version                     1.0
// @description                 Personal health-metrics tracker with admin impersonation.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:          "health-tracker",
		Short:        "Personal health-metrics tracker API",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// bootstrap loads configuration and initialises the logger.
func bootstrap(ctx context.Context) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "health-tracker",
	})
	return cfg, log, nil
}

func runServer(ctx context.Context) error {
	cfg, log, err := bootstrap(ctx)
	if err != nil {
		return err
	}

	// Storage
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	// Role cache
	cache, closeCache, err := openRoleCache(ctx, cfg, st, log)
	if err != nil {
		return err
	}
	defer closeCache()

	// Core
	tokens, err := service.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, service.WithIssuer(cfg.Auth.Issuer))
	if err != nil {
		return err
	}
	hasher := crypto.NewBcryptHasher(cfg.Auth.BcryptCost)
	roles := service.NewCachedRoleLookup(st.users, cache, log)
	accessEngine := access.NewEngine(roles)
	validator := validation.NewEngine(validation.Rules{
		BMITolerance:         cfg.Validation.BMITolerance,
		BodyFatToleranceKg:   cfg.Validation.BodyFatToleranceKg,
		ComponentMassSlackKg: cfg.Validation.ComponentMassSlackKg,
	})

	// Audit dispatcher
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	dispatcher := queue.NewDispatcher(cfg.Activity.Workers, st.activity, log)
	dispatcher.Start(workerCtx)

	e := api.NewRouter(api.Deps{
		Log:     log,
		Tokens:  tokens,
		Access:  accessEngine,
		Auth:    service.NewAuthService(st.users, hasher, tokens, log),
		Records: service.NewRecordService(st.records, accessEngine, validator, dispatcher, log),
		Users:   service.NewUserService(st.users, accessEngine, dispatcher, log),
		Admin:   service.NewAdminService(st.users, st.records, roles, accessEngine, hasher, dispatcher, log),
		Probes:  st.probes,
	})

	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("storage", cfg.StorageDriver).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	dispatcher.Stop()
	log.Info().Msg("server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply, roll back or inspect schema migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			if err := migrate(ctx, cfg, args[0]); err != nil {
				return fmt.Errorf("migrate %s: %w", args[0], err)
			}
			log.Info().Str("command", args[0]).Str("storage", cfg.StorageDriver).Msg("migration finished")
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account, or promote an existing one",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			st, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer st.close()

			// Role writes go through the cache so a running server sees the
			// promotion on its next lookup.
			cache, closeCache, err := openRoleCache(ctx, cfg, st, log)
			if err != nil {
				return err
			}
			defer closeCache()
			roles := service.NewCachedRoleLookup(st.users, cache, log)

			user, created, err := ensureAdmin(ctx, st.users, roles, crypto.NewBcryptHasher(cfg.Auth.BcryptCost), email, password, name)
			if err != nil {
				return err
			}
			log.Info().Str("user_id", user.ID).Str("email", user.Email).Bool("created", created).Msg("admin ready")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Admin email address")
	cmd.Flags().StringVar(&password, "password", "", "Password for a new account (min 6 characters)")
	cmd.Flags().StringVar(&name, "name", "Administrator", "Display name for a new account")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
