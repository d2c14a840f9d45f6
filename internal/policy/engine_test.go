package policy

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/glotok-bot/glotok/internal/clock"
	"github.com/glotok-bot/glotok/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type stubLedger struct {
	consumed int
	last     *time.Time
	sumErr   error
}

func (s *stubLedger) SumInRange(_ context.Context, _ int64, _, _ time.Time) (int, error) {
	return s.consumed, s.sumErr
}

func (s *stubLedger) LastTimestamp(_ context.Context, _ int64) (*time.Time, error) {
	return s.last, nil
}

func testProfile() *domain.Profile {
	return &domain.Profile{
		TelegramID:            100500,
		Timezone:              "Europe/Moscow",
		DailyGoalML:           2000,
		WakeAt:                domain.TimeOfDay{Hour: 8},
		SleepAt:               domain.TimeOfDay{Hour: 23},
		GlassML:               250,
		SmartRemindersEnabled: true,
	}
}

func localTime(t *testing.T, hour, minute int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	assert.NoError(t, err)
	return time.Date(2024, 5, 20, hour, minute, 0, 0, loc)
}

func newTestEngine(t *testing.T, now time.Time, ledger LedgerReader) *Engine {
	t.Helper()
	clocks, err := clock.NewAdapter(fixedClock{now: now}, "UTC", testLogger())
	assert.NoError(t, err)
	return NewEngine(ledger, clocks, testLogger())
}

func TestSuggestedDose(t *testing.T) {
	testCases := []struct {
		name     string
		goalML   int
		expected int
	}{
		{name: "clamped to minimum", goalML: 800, expected: 150},
		{name: "proportional", goalML: 2000, expected: 240},
		{name: "rounded", goalML: 2100, expected: 252},
		{name: "clamped to maximum", goalML: 5000, expected: 350},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SuggestedDose(tc.goalML))
		})
	}
}

func TestComputeNext(t *testing.T) {
	wake := localTime(t, 8, 0)
	sleep := localTime(t, 23, 0)

	testCases := []struct {
		name       string
		nowLocal   time.Time
		consumedML int
		lastIntake *time.Time
		expectNil  bool
		expectFire time.Time
		expectDose int
	}{
		{
			name:       "morning on track uses base interval",
			nowLocal:   localTime(t, 9, 0),
			consumedML: 0,
			expectFire: localTime(t, 10, 30),
			expectDose: 240,
		},
		{
			name:       "falling behind shortens interval",
			nowLocal:   localTime(t, 20, 0),
			consumedML: 500,
			expectFire: localTime(t, 20, 45),
			expectDose: 240,
		},
		{
			name:       "goal met schedules nothing",
			nowLocal:   localTime(t, 15, 0),
			consumedML: 2000,
			expectNil:  true,
		},
		{
			name:       "goal exceeded schedules nothing",
			nowLocal:   localTime(t, 15, 0),
			consumedML: 2300,
			expectNil:  true,
		},
		{
			name:       "small remainder near sleep stays on base interval",
			nowLocal:   localTime(t, 22, 0),
			consumedML: 1900,
			expectFire: localTime(t, 23, 30),
			expectDose: 240,
		},
		{
			name:       "recent intake does not shorten the base interval",
			nowLocal:   localTime(t, 12, 0),
			consumedML: 300,
			lastIntake: timePtr(localTime(t, 11, 50)),
			expectFire: localTime(t, 13, 30),
			expectDose: 240,
		},
		{
			name:       "future-stamped intake pushes the reminder out",
			nowLocal:   localTime(t, 20, 0),
			consumedML: 500,
			lastIntake: timePtr(localTime(t, 20, 10)),
			expectFire: localTime(t, 20, 50),
			expectDose: 240,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := computeNext(evalInput{
				nowLocal:   tc.nowLocal,
				wakeAt:     wake,
				sleepAt:    sleep,
				goalML:     2000,
				consumedML: tc.consumedML,
				lastIntake: tc.lastIntake,
			})

			if tc.expectNil {
				assert.Nil(t, got)
				return
			}

			assert.NotNil(t, got)
			assert.True(t, tc.expectFire.Equal(got.FireAt),
				"expected %s, got %s", tc.expectFire, got.FireAt)
			assert.Equal(t, tc.expectDose, got.DoseML)
		})
	}
}

func TestEvaluateQuietHours(t *testing.T) {
	t.Run("before wake parks on wake boundary", func(t *testing.T) {
		engine := newTestEngine(t, localTime(t, 6, 30), &stubLedger{})

		decision, err := engine.Evaluate(context.Background(), testProfile())

		assert.NoError(t, err)
		assert.NotNil(t, decision)
		assert.True(t, localTime(t, 8, 0).Equal(decision.FireAt))
		assert.False(t, decision.HasDose())
	})

	t.Run("after sleep schedules nothing", func(t *testing.T) {
		engine := newTestEngine(t, localTime(t, 23, 30), &stubLedger{})

		decision, err := engine.Evaluate(context.Background(), testProfile())

		assert.NoError(t, err)
		assert.Nil(t, decision)
	})
}

func TestEvaluateEndToEnd(t *testing.T) {
	engine := newTestEngine(t, localTime(t, 9, 0), &stubLedger{})

	decision, err := engine.Evaluate(context.Background(), testProfile())

	assert.NoError(t, err)
	assert.NotNil(t, decision)
	assert.Equal(t, 240, decision.DoseML)
	assert.True(t, localTime(t, 10, 30).Equal(decision.FireAt))
}

func TestEvaluateLedgerError(t *testing.T) {
	engine := newTestEngine(t, localTime(t, 9, 0), &stubLedger{sumErr: assert.AnError})

	decision, err := engine.Evaluate(context.Background(), testProfile())

	assert.Error(t, err)
	assert.Nil(t, decision)
}

func timePtr(t time.Time) *time.Time { return &t }
