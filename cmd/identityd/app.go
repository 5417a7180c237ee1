// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/identityd/internal/clock"
	"github.com/holomush/identityd/internal/config"
	"github.com/holomush/identityd/internal/identity"
	"github.com/holomush/identityd/internal/identity/memory"
	"github.com/holomush/identityd/internal/identity/postgres"
	identityredis "github.com/holomush/identityd/internal/identity/redis"
	"github.com/holomush/identityd/internal/idgen"
	"github.com/holomush/identityd/internal/observability"
	"github.com/holomush/identityd/internal/password"
	"github.com/holomush/identityd/internal/store"
)

// app is the wired identity core plus the resources it owns.
type app struct {
	service *identity.Service
	clock   identity.Clock
	// sweeper is nil when sweeping is disabled or the store expires natively.
	sweeper *identity.Sweeper
	checks  map[string]observability.ReadinessChecker
	closers []func()
}

// Close releases connections in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// newApp builds the identity service from cfg. A nil registry disables metrics.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, registry prometheus.Registerer) (_ *app, err error) {
	a := &app{
		clock:  clock.System{},
		checks: make(map[string]observability.ReadinessChecker),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	var pool postgres.Pool
	if cfg.UsesPostgres() {
		if cfg.Database.AutoMigrate {
			if err := migrateUp(cfg.Database.URL, logger); err != nil {
				return nil, err
			}
		}
		pgPool, err := store.Connect(ctx, cfg.Database.URL, cfg.Database.ConnectAttempts, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pgPool.Close)
		a.checks["postgres"] = pgPool.Ping
		pool = pgPool
	}

	var users identity.UserRepository
	switch cfg.Storage.Users {
	case config.BackendPostgres:
		users = postgres.NewUserRepository(pool)
	default:
		users = memory.NewUserRepository()
	}

	var sessions identity.SessionStore
	switch cfg.Storage.Sessions {
	case config.BackendPostgres:
		sessions = postgres.NewSessionStore(pool)
	case config.BackendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, func() {
			if closeErr := client.Close(); closeErr != nil {
				logger.Warn("failed to close redis client", "error", closeErr)
			}
		})
		a.checks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
		sessions = identityredis.NewSessionStore(client, cfg.Redis.Prefix)
	default:
		sessions = memory.NewSessionStore()
	}

	hasher, err := password.New(cfg.Identity.Hasher)
	if err != nil {
		return nil, err
	}
	ids, err := idgen.New(cfg.Identity.IDFormat, a.clock)
	if err != nil {
		return nil, err
	}

	opts := []identity.Option{identity.WithLogger(logger)}
	if registry != nil {
		opts = append(opts, identity.WithMetrics(identity.NewMetrics(registry)))
	}

	a.service, err = identity.NewService(
		identity.Config{SessionTTL: cfg.Identity.SessionTTL},
		identity.Deps{
			Users:    users,
			Sessions: sessions,
			Hasher:   hasher,
			IDs:      ids,
			Clock:    a.clock,
		},
		opts...,
	)
	if err != nil {
		return nil, err
	}

	if cfg.Identity.SweepInterval > 0 {
		purger, ok := sessions.(identity.ExpiredSessionPurger)
		if !ok {
			logger.Info("session store expires entries itself, sweeper disabled",
				"storage", cfg.Storage.Sessions)
		} else {
			a.sweeper, err = identity.NewSweeper(purger, a.clock, cfg.Identity.SweepInterval, logger)
			if err != nil {
				return nil, err
			}
		}
	}

	logger.Info("identity service configured",
		"users", cfg.Storage.Users,
		"sessions", cfg.Storage.Sessions,
		"hasher", cfg.Identity.Hasher,
		"id_format", cfg.Identity.IDFormat,
		"session_ttl", cfg.Identity.SessionTTL.String(),
	)
	return a, nil
}

// migrateUp applies all pending migrations.
func migrateUp(databaseURL string, logger *slog.Logger) error {
	migrator, err := newMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.With("operation", "auto-migrate").Wrap(err)
	}
	version, _, err := migrator.Version()
	if err != nil {
		return err
	}
	logger.Info("database schema up to date", "version", version)
	return nil
}
