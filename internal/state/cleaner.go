package state

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Cleaner ends onboarding dialogs abandoned for longer than the ttl.
// Redis TTLs already expire single keys; the cleaner additionally logs
// which users were dropped so stuck dialogs are visible.
type Cleaner struct {
	storage  Storage
	log      *slog.Logger
	ttl      time.Duration
	interval time.Duration
}

// NewCleaner builds a Cleaner over the dialog storage.
func NewCleaner(storage Storage, log *slog.Logger, ttl, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		storage:  storage,
		log:      log,
		ttl:      ttl,
		interval: interval,
	}
}

// Run sweeps abandoned dialogs until ctx is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.storage == nil || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("state cleaner stopped", slog.String("reason", ctx.Err().Error()))
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *Cleaner) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	states, err := c.storage.GetAllStates(ctx)
	if err != nil {
		c.log.Error("state cleaner failed to list dialogs", slog.Any("error", err))
		return
	}

	cutoff := time.Now().Add(-c.ttl)
	cleared := 0

	for _, state := range states {
		if ctx.Err() != nil {
			return
		}
		if state == nil || !state.UpdatedAt.Before(cutoff) {
			continue
		}

		if err := c.storage.ClearState(ctx, state.UserID); err != nil {
			if !errors.Is(err, ErrStateNotFound) {
				c.log.Error("state cleaner failed to clear dialog",
					slog.Int64("user_id", state.UserID),
					slog.Any("error", err),
				)
			}
			continue
		}

		cleared++
		c.log.Info("abandoned dialog cleared", slog.Int64("user_id", state.UserID))
	}

	if cleared > 0 {
		c.log.Info("state cleaner finished", slog.Int("dialogs_cleared", cleared))
	}
}
