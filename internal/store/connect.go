// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store manages the PostgreSQL connection and schema for identityd.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// connectBackoffBase is the first retry delay; it doubles per attempt.
const connectBackoffBase = 500 * time.Millisecond

// pinger is the part of *pgxpool.Pool Connect waits on.
type pinger interface {
	Ping(ctx context.Context) error
	Close()
}

// poolFactory opens a pool. Replaced in tests.
var poolFactory = func(ctx context.Context, databaseURL string) (pinger, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// Connect opens a pgx pool and waits for the database to answer a ping,
// retrying with exponential backoff up to attempts times.
func Connect(ctx context.Context, databaseURL string, attempts uint64, logger *slog.Logger) (*pgxpool.Pool, error) {
	p, err := connectWith(ctx, databaseURL, attempts, connectBackoffBase, logger)
	if err != nil {
		return nil, err
	}
	pool, ok := p.(*pgxpool.Pool)
	if !ok {
		p.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").Errorf("unexpected pool type %T", p)
	}
	return pool, nil
}

func connectWith(ctx context.Context, databaseURL string, attempts uint64, base time.Duration, logger *slog.Logger) (pinger, error) {
	if databaseURL == "" {
		return nil, oops.Code("DB_URL_REQUIRED").Errorf("database url is required")
	}
	if attempts == 0 {
		attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := poolFactory(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	var attempt uint64
	backoff := retry.WithMaxRetries(attempts-1, retry.NewExponential(base))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if pingErr := pool.Ping(ctx); pingErr != nil {
			logger.WarnContext(ctx, "database not ready",
				"attempt", attempt,
				"max_attempts", attempts,
				"error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", attempt).
			Wrap(err)
	}

	logger.InfoContext(ctx, "database connected", "attempts", attempt)
	return pool, nil
}
