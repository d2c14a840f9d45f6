// Package scheduler owns the reminder lifecycle: re-arming after every
// intake or settings change, and dispatching due reminders to Telegram.
package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/glotok-bot/glotok/internal/clock"
	"github.com/glotok-bot/glotok/internal/domain"
	apperrors "github.com/glotok-bot/glotok/internal/errors"
	"github.com/glotok-bot/glotok/internal/policy"
	"github.com/glotok-bot/glotok/internal/schedule"
)

const (
	lockKeyPattern   = "nudge:lock:%d"
	lockRetryBackoff = 100 * time.Millisecond
	lockMaxAttempts  = 10
)

// ErrRearmLocked is returned when another re-arm for the same user holds
// the lock for all lockMaxAttempts tries.
var ErrRearmLocked = errors.New("rearm already in progress")

// ProfileSource loads profiles for evaluation.
type ProfileSource interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (*domain.Profile, error)
}

// Evaluator decides the next reminder for a profile.
type Evaluator interface {
	Evaluate(ctx context.Context, p *domain.Profile) (*policy.Decision, error)
}

// Rearmer recomputes a user's pending reminder. Every trigger funnels
// through Rearm: logged intakes, settings changes, mute toggles and fired
// reminders. A per-user Redis lock serialises concurrent triggers so the
// one-job-per-user invariant holds.
type Rearmer struct {
	profiles ProfileSource
	engine   Evaluator
	store    schedule.Store
	locks    *redis.Client
	clocks   *clock.Adapter
	log      *slog.Logger
	lockTTL  time.Duration
}

// NewRearmer constructs a Rearmer.
func NewRearmer(
	profiles ProfileSource,
	engine Evaluator,
	store schedule.Store,
	locks *redis.Client,
	clocks *clock.Adapter,
	lockTTL time.Duration,
	log *slog.Logger,
) *Rearmer {
	if log == nil {
		log = slog.Default()
	}
	if lockTTL <= 0 {
		lockTTL = 5 * time.Second
	}

	return &Rearmer{
		profiles: profiles,
		engine:   engine,
		store:    store,
		locks:    locks,
		clocks:   clocks,
		log:      log,
		lockTTL:  lockTTL,
	}
}

// Rearm re-evaluates the user's schedule and replaces or cancels their
// pending reminder accordingly.
func (r *Rearmer) Rearm(ctx context.Context, telegramID int64) error {
	release, err := r.acquireLock(ctx, telegramID)
	if err != nil {
		return err
	}
	defer release()

	profile, err := r.profiles.FindByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.cancel(ctx, telegramID)
		}
		return apperrors.NewPersistenceError(err)
	}

	if !profile.SmartRemindersEnabled || profile.MutedAt(r.clocks.Now()) {
		return r.cancel(ctx, telegramID)
	}

	decision, err := r.engine.Evaluate(ctx, profile)
	if err != nil {
		return fmt.Errorf("evaluate schedule for user %d: %w", telegramID, err)
	}
	if decision == nil {
		return r.cancel(ctx, telegramID)
	}

	entry := &schedule.Entry{
		UserID: telegramID,
		FireAt: decision.FireAt.UTC(),
		DoseML: decision.DoseML,
	}

	if err := apperrors.WithRetry(ctx, func() error {
		if err := r.store.Schedule(ctx, entry); err != nil {
			return apperrors.NewPersistenceError(err)
		}
		return nil
	}); err != nil {
		return err
	}

	r.log.Debug("reminder rearmed",
		slog.Int64("user_id", telegramID),
		slog.Time("fire_at", entry.FireAt),
		slog.Int("dose_ml", entry.DoseML),
	)

	return nil
}

// OnIntakeLogged re-arms after an intake event.
func (r *Rearmer) OnIntakeLogged(ctx context.Context, telegramID int64) error {
	return r.Rearm(ctx, telegramID)
}

// OnConfigChanged re-arms after a settings change.
func (r *Rearmer) OnConfigChanged(ctx context.Context, telegramID int64) error {
	return r.Rearm(ctx, telegramID)
}

// OnMuteChanged re-arms after a mute or unmute.
func (r *Rearmer) OnMuteChanged(ctx context.Context, telegramID int64) error {
	return r.Rearm(ctx, telegramID)
}

func (r *Rearmer) cancel(ctx context.Context, telegramID int64) error {
	if err := r.store.Cancel(ctx, telegramID); err != nil {
		return apperrors.NewPersistenceError(err)
	}
	return nil
}

func (r *Rearmer) acquireLock(ctx context.Context, telegramID int64) (func(), error) {
	key := fmt.Sprintf(lockKeyPattern, telegramID)

	for attempt := 0; attempt < lockMaxAttempts; attempt++ {
		ok, err := r.locks.SetNX(ctx, key, 1, r.lockTTL).Result()
		if err != nil {
			return nil, apperrors.NewPersistenceError(err)
		}
		if ok {
			return func() {
				if err := r.locks.Del(context.WithoutCancel(ctx), key).Err(); err != nil {
					r.log.Warn("failed to release rearm lock", slog.Int64("user_id", telegramID), slog.Any("error", err))
				}
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryBackoff):
		}
	}

	return nil, ErrRearmLocked
}
