// Package policy computes when a user should next be nudged to drink and
// how much to suggest. Evaluations are side-effect free: the engine reads
// ledger aggregates, takes a single "now" snapshot, and returns a decision.
package policy

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/glotok-bot/glotok/internal/clock"
	"github.com/glotok-bot/glotok/internal/domain"
	"github.com/glotok-bot/glotok/pkg/metrics"
)

const (
	baseInterval    = 90 * time.Minute
	catchUpInterval = 45 * time.Minute
	// minIntakeGap is the minimum spacing enforced after any logged intake.
	minIntakeGap = 40 * time.Minute

	doseFraction = 0.12
	doseMinML    = 150
	doseMaxML    = 350

	// catchUpFactor is the margin by which the required rate must exceed
	// the ideal rate before the interval is shortened.
	catchUpFactor = 1.25
)

// Decision is the outcome of one evaluation. A nil Decision means no job
// should be scheduled. DoseML is zero for a wake-up boundary: the fire time
// points at today's wake time and the dose is decided on the next
// evaluation after waking.
type Decision struct {
	FireAt time.Time
	DoseML int
}

// HasDose reports whether the decision carries a drink suggestion.
func (d *Decision) HasDose() bool {
	return d != nil && d.DoseML > 0
}

// LedgerReader is the read-only view of the intake ledger the engine needs.
type LedgerReader interface {
	SumInRange(ctx context.Context, userID int64, start, end time.Time) (int, error)
	LastTimestamp(ctx context.Context, userID int64) (*time.Time, error)
}

// Engine evaluates reminder schedules for individual profiles.
type Engine struct {
	ledger LedgerReader
	clocks *clock.Adapter
	log    *slog.Logger
}

// NewEngine constructs an Engine.
func NewEngine(ledger LedgerReader, clocks *clock.Adapter, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		ledger: ledger,
		clocks: clocks,
		log:    log,
	}
}

// SuggestedDose returns the reminder dose for a daily goal: 12% of the
// goal, clamped to [150, 350] mL. Exported for handlers that render the
// quick-add keyboard outside an evaluation.
func SuggestedDose(goalML int) int {
	return clampDose(int(math.Round(doseFraction * float64(goalML))))
}

// Evaluate computes the next reminder for the profile. All comparisons use
// one local "now" snapshot so repeated zone lookups cannot drift within a
// single evaluation.
func (e *Engine) Evaluate(ctx context.Context, p *domain.Profile) (*Decision, error) {
	defer func(start time.Time) {
		metrics.ObserveEvaluation(time.Since(start))
	}(time.Now())

	nowLocal := e.clocks.UserNow(p)

	wakeAt := p.WakeAt.On(nowLocal)
	sleepAt := p.SleepAt.On(nowLocal)

	// Quiet hours. Before today's wake time the chain parks on the wake
	// boundary; after sleep there is nothing to schedule until an external
	// re-arm (daily rollover) restarts the chain.
	if nowLocal.Before(wakeAt) {
		return &Decision{FireAt: wakeAt}, nil
	}
	if nowLocal.After(sleepAt) {
		return nil, nil
	}

	dayStart, dayEnd := clock.DayBounds(nowLocal)
	consumed, err := e.ledger.SumInRange(ctx, p.TelegramID, dayStart.UTC(), dayEnd.UTC())
	if err != nil {
		return nil, fmt.Errorf("sum intake for user %d: %w", p.TelegramID, err)
	}

	remaining := p.DailyGoalML - consumed
	if remaining <= 0 {
		return nil, nil
	}

	last, err := e.ledger.LastTimestamp(ctx, p.TelegramID)
	if err != nil {
		return nil, fmt.Errorf("last intake for user %d: %w", p.TelegramID, err)
	}

	var lastLocal *time.Time
	if last != nil {
		converted := last.In(nowLocal.Location())
		lastLocal = &converted
	}

	decision := computeNext(evalInput{
		nowLocal:   nowLocal,
		wakeAt:     wakeAt,
		sleepAt:    sleepAt,
		goalML:     p.DailyGoalML,
		consumedML: consumed,
		lastIntake: lastLocal,
	})

	return decision, nil
}

type evalInput struct {
	nowLocal   time.Time
	wakeAt     time.Time
	sleepAt    time.Time
	goalML     int
	consumedML int
	lastIntake *time.Time
}

// computeNext holds the pure scheduling arithmetic. Inputs are already in
// the user's local zone and inside the waking window.
func computeNext(in evalInput) *Decision {
	remaining := in.goalML - in.consumedML
	if remaining <= 0 {
		return nil
	}

	dose := SuggestedDose(in.goalML)
	fireAt := in.nowLocal.Add(baseInterval)

	timeLeft := in.sleepAt.Sub(in.nowLocal).Minutes()
	if timeLeft < 1 {
		timeLeft = 1
	}
	awake := in.sleepAt.Sub(in.wakeAt).Minutes()
	if awake < 1 {
		awake = 1
	}

	idealRate := float64(in.goalML) / awake
	currentRate := float64(remaining) / timeLeft
	if currentRate > catchUpFactor*idealRate {
		fireAt = in.nowLocal.Add(catchUpInterval)
	}

	if in.lastIntake != nil && in.nowLocal.Sub(*in.lastIntake) < minIntakeGap {
		if throttled := in.lastIntake.Add(minIntakeGap); throttled.After(fireAt) {
			fireAt = throttled
		}
	}

	return &Decision{FireAt: fireAt, DoseML: dose}
}

func clampDose(dose int) int {
	if dose < doseMinML {
		return doseMinML
	}
	if dose > doseMaxML {
		return doseMaxML
	}
	return dose
}
