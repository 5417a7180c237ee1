// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package identity

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/identityd/pkg/errutil"
)

// Sweeper periodically removes expired sessions from stores that support it.
// Lazy eviction in AuthenticateSession stays authoritative; the sweep only
// keeps abandoned sessions from accumulating.
type Sweeper struct {
	store    ExpiredSessionPurger
	clock    Clock
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper running every interval.
func NewSweeper(store ExpiredSessionPurger, clock Clock, interval time.Duration, logger *slog.Logger) (*Sweeper, error) {
	if store == nil {
		return nil, oops.Code("SWEEPER_INVALID").Errorf("store is required")
	}
	if clock == nil {
		return nil, oops.Code("SWEEPER_INVALID").Errorf("clock is required")
	}
	if interval <= 0 {
		return nil, oops.Code("SWEEPER_INVALID").
			With("interval", interval.String()).
			Errorf("interval must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: store, clock: clock, interval: interval, logger: logger}, nil
}

// SweepOnce deletes every session expired at the current instant.
func (w *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	start := time.Now()
	deleted, err := w.store.DeleteExpired(ctx, w.clock.Now())
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").Wrap(err)
	}
	w.logger.DebugContext(ctx, "expired sessions swept",
		"deleted", deleted,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return deleted, nil
}

// Run sweeps until ctx is cancelled. Sweep failures are logged and retried
// on the next tick.
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				errutil.LogError(ctx, w.logger, "session sweep failed", err)
			}
		}
	}
}
