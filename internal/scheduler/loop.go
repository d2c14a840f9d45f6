package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/glotok-bot/glotok/internal/domain"
	apperrors "github.com/glotok-bot/glotok/internal/errors"
	"github.com/glotok-bot/glotok/internal/schedule"
	"github.com/glotok-bot/glotok/pkg/metrics"
)

// Reminder outcomes reported to metrics.
const (
	OutcomeDelivered      = "delivered"
	OutcomeFailed         = "failed"
	OutcomeSkippedDisable = "skipped_disabled"
	OutcomeSkippedMuted   = "skipped_muted"
	OutcomeSkippedQuiet   = "skipped_quiet"
	OutcomeSkippedCapped  = "skipped_capped"
)

// Sender delivers a reminder message to the user.
type Sender interface {
	SendReminder(ctx context.Context, profile *domain.Profile, doseML int) error
}

// LoopConfig tunes the dispatch loop.
type LoopConfig struct {
	PollInterval    time.Duration
	DeliveryTimeout time.Duration
	Concurrency     int
	BatchSize       int
	DailyCap        int
}

func (c LoopConfig) withDefaults() LoopConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = 10 * time.Second
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.DailyCap <= 0 {
		c.DailyCap = 4
	}
	return c
}

// Loop polls the reminder queue and hands due entries to a worker pool.
// Conditions are re-checked at fire time: a reminder queued hours ago may
// have been overtaken by a mute, a settings change or the daily cap.
type Loop struct {
	store    schedule.Store
	profiles ProfileSource
	rearmer  *Rearmer
	sender   Sender
	counter  *schedule.DeliveryCounter
	clocks   clockSource
	breaker  *apperrors.CircuitBreaker
	log      *slog.Logger
	cfg      LoopConfig
}

type clockSource interface {
	Now() time.Time
	UserNow(p *domain.Profile) time.Time
}

// NewLoop constructs a dispatch Loop.
func NewLoop(
	store schedule.Store,
	profiles ProfileSource,
	rearmer *Rearmer,
	sender Sender,
	counter *schedule.DeliveryCounter,
	clocks clockSource,
	cfg LoopConfig,
	log *slog.Logger,
) *Loop {
	if log == nil {
		log = slog.Default()
	}

	return &Loop{
		store:    store,
		profiles: profiles,
		rearmer:  rearmer,
		sender:   sender,
		counter:  counter,
		clocks:   clocks,
		breaker:  apperrors.NewCircuitBreaker(),
		log:      log,
		cfg:      cfg.withDefaults(),
	}
}

// Run polls for due reminders until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	l.log.Info("dispatch loop started",
		slog.Duration("poll_interval", l.cfg.PollInterval),
		slog.Int("concurrency", l.cfg.Concurrency),
	)

	for {
		select {
		case <-ctx.Done():
			l.log.Info("dispatch loop stopped")
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *Loop) tick(ctx context.Context) {
	due, err := l.store.PopDue(ctx, l.clocks.Now(), l.cfg.BatchSize)
	if err != nil {
		l.log.Error("failed to pop due reminders", slog.Any("error", err))
		return
	}
	if len(due) == 0 {
		return
	}

	jobs := make(chan *schedule.Entry)
	var wg sync.WaitGroup

	for i := 0; i < l.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				l.process(ctx, entry)
			}
		}()
	}

	for _, entry := range due {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		case jobs <- entry:
		}
	}
	close(jobs)
	wg.Wait()
}

// process delivers one claimed entry and always re-arms afterward. The
// claim already removed the entry from the queue, so a failed delivery is
// dropped rather than retried: the next reminder from the re-arm covers it.
func (l *Loop) process(ctx context.Context, entry *schedule.Entry) {
	outcome := l.deliver(ctx, entry)
	metrics.RecordReminder(outcome)

	if err := l.rearmer.Rearm(ctx, entry.UserID); err != nil && !errors.Is(err, ErrRearmLocked) {
		l.log.Error("failed to rearm after dispatch",
			slog.Int64("user_id", entry.UserID),
			slog.Any("error", err),
		)
	}
}

func (l *Loop) deliver(ctx context.Context, entry *schedule.Entry) string {
	profile, err := l.profiles.FindByTelegramID(ctx, entry.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return OutcomeSkippedDisable
		}
		l.log.Error("failed to load profile for delivery",
			slog.Int64("user_id", entry.UserID),
			slog.Any("error", err),
		)
		return OutcomeFailed
	}

	if !profile.SmartRemindersEnabled {
		return OutcomeSkippedDisable
	}
	if profile.MutedAt(l.clocks.Now()) {
		return OutcomeSkippedMuted
	}

	// Wake boundary entries carry no dose: the re-arm that follows
	// computes the first real reminder of the day.
	if entry.DoseML <= 0 {
		return OutcomeSkippedQuiet
	}

	nowLocal := l.clocks.UserNow(profile)
	if nowLocal.Before(profile.WakeAt.On(nowLocal)) || nowLocal.After(profile.SleepAt.On(nowLocal)) {
		return OutcomeSkippedQuiet
	}

	delivered, err := l.counter.Delivered(ctx, entry.UserID, nowLocal)
	if err != nil {
		l.log.Error("failed to read delivery counter",
			slog.Int64("user_id", entry.UserID),
			slog.Any("error", err),
		)
		return OutcomeFailed
	}
	if delivered >= l.cfg.DailyCap {
		return OutcomeSkippedCapped
	}

	sendCtx, cancel := context.WithTimeout(ctx, l.cfg.DeliveryTimeout)
	defer cancel()

	if err := l.breaker.Call(func() error {
		return l.sender.SendReminder(sendCtx, profile, entry.DoseML)
	}); err != nil {
		l.log.Error("failed to deliver reminder",
			slog.Int64("user_id", entry.UserID),
			slog.Any("error", apperrors.NewDeliveryError(err)),
		)
		return OutcomeFailed
	}

	if _, err := l.counter.Record(ctx, entry.UserID, nowLocal); err != nil {
		l.log.Warn("failed to record delivery",
			slog.Int64("user_id", entry.UserID),
			slog.Any("error", err),
		)
	}

	l.log.Info("reminder delivered",
		slog.Int64("user_id", entry.UserID),
		slog.Int("dose_ml", entry.DoseML),
	)

	return OutcomeDelivered
}
