package scheduler

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/glotok-bot/glotok/internal/clock"
	"github.com/glotok-bot/glotok/internal/domain"
	"github.com/glotok-bot/glotok/internal/policy"
	"github.com/glotok-bot/glotok/internal/schedule"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}

	return client, cleanup
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type stubProfiles struct {
	profile *domain.Profile
	err     error
}

func (s *stubProfiles) FindByTelegramID(_ context.Context, _ int64) (*domain.Profile, error) {
	return s.profile, s.err
}

type stubEvaluator struct {
	decision *policy.Decision
	err      error
}

func (s *stubEvaluator) Evaluate(_ context.Context, _ *domain.Profile) (*policy.Decision, error) {
	return s.decision, s.err
}

type fakeSender struct {
	calls int
	err   error
	last  int
}

func (f *fakeSender) SendReminder(_ context.Context, _ *domain.Profile, doseML int) error {
	f.calls++
	f.last = doseML
	return f.err
}

var testNow = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

func activeProfile() *domain.Profile {
	return &domain.Profile{
		TelegramID:            42,
		Timezone:              "UTC",
		DailyGoalML:           2000,
		WakeAt:                domain.TimeOfDay{Hour: 8},
		SleepAt:               domain.TimeOfDay{Hour: 23},
		GlassML:               250,
		SmartRemindersEnabled: true,
	}
}

func testAdapter(t *testing.T) *clock.Adapter {
	t.Helper()
	clocks, err := clock.NewAdapter(fixedClock{now: testNow}, "UTC", testLogger())
	assert.NoError(t, err)
	return clocks
}

func newTestRearmer(t *testing.T, client *redis.Client, profiles ProfileSource, engine Evaluator, store schedule.Store) *Rearmer {
	t.Helper()
	return NewRearmer(profiles, engine, store, client, testAdapter(t), time.Second, testLogger())
}

func TestRearmerSchedules(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	store := schedule.NewRedisStore(client, testLogger())
	decision := &policy.Decision{FireAt: testNow.Add(90 * time.Minute), DoseML: 240}
	rearmer := newTestRearmer(t, client, &stubProfiles{profile: activeProfile()}, &stubEvaluator{decision: decision}, store)

	assert.NoError(t, rearmer.Rearm(context.Background(), 42))

	pending, err := store.Pending(context.Background(), 42)
	assert.NoError(t, err)
	assert.NotNil(t, pending)
	assert.Equal(t, 240, pending.DoseML)
	assert.True(t, decision.FireAt.Equal(pending.FireAt))
}

func TestRearmerCancels(t *testing.T) {
	disabled := activeProfile()
	disabled.SmartRemindersEnabled = false

	muted := activeProfile()
	muteUntil := testNow.Add(time.Hour)
	muted.MuteUntil = &muteUntil

	testCases := []struct {
		name     string
		profiles ProfileSource
		engine   Evaluator
	}{
		{name: "reminders disabled", profiles: &stubProfiles{profile: disabled}, engine: &stubEvaluator{}},
		{name: "muted", profiles: &stubProfiles{profile: muted}, engine: &stubEvaluator{}},
		{name: "no decision", profiles: &stubProfiles{profile: activeProfile()}, engine: &stubEvaluator{decision: nil}},
		{name: "profile missing", profiles: &stubProfiles{err: sql.ErrNoRows}, engine: &stubEvaluator{}},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			client, cleanup := setupTestRedis(t)
			defer cleanup()

			store := schedule.NewRedisStore(client, testLogger())
			ctx := context.Background()

			// Seed an existing reminder so cancellation is observable.
			assert.NoError(t, store.Schedule(ctx, &schedule.Entry{UserID: 42, FireAt: testNow, DoseML: 240}))

			rearmer := newTestRearmer(t, client, tc.profiles, tc.engine, store)
			assert.NoError(t, rearmer.Rearm(ctx, 42))

			pending, err := store.Pending(ctx, 42)
			assert.NoError(t, err)
			assert.Nil(t, pending)
		})
	}
}

func TestRearmerReplacesExisting(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	store := schedule.NewRedisStore(client, testLogger())
	ctx := context.Background()

	assert.NoError(t, store.Schedule(ctx, &schedule.Entry{UserID: 42, FireAt: testNow.Add(time.Hour), DoseML: 200}))

	decision := &policy.Decision{FireAt: testNow.Add(45 * time.Minute), DoseML: 240}
	rearmer := newTestRearmer(t, client, &stubProfiles{profile: activeProfile()}, &stubEvaluator{decision: decision}, store)
	assert.NoError(t, rearmer.Rearm(ctx, 42))

	size, err := store.Len(ctx)
	assert.NoError(t, err)
	assert.EqualValues(t, 1, size)

	pending, err := store.Pending(ctx, 42)
	assert.NoError(t, err)
	assert.NotNil(t, pending)
	assert.True(t, decision.FireAt.Equal(pending.FireAt))
}

func newTestLoop(t *testing.T, client *redis.Client, profiles ProfileSource, sender Sender, cap int) (*Loop, schedule.Store) {
	t.Helper()

	store := schedule.NewRedisStore(client, testLogger())
	engine := &stubEvaluator{decision: &policy.Decision{FireAt: testNow.Add(90 * time.Minute), DoseML: 240}}
	rearmer := newTestRearmer(t, client, profiles, engine, store)
	counter := schedule.NewDeliveryCounter(client)

	loop := NewLoop(store, profiles, rearmer, sender, counter, testAdapter(t), LoopConfig{DailyCap: cap}, testLogger())
	return loop, store
}

func TestLoopDeliver(t *testing.T) {
	disabled := activeProfile()
	disabled.SmartRemindersEnabled = false

	muted := activeProfile()
	muteUntil := testNow.Add(time.Hour)
	muted.MuteUntil = &muteUntil

	asleep := activeProfile()
	asleep.SleepAt = domain.TimeOfDay{Hour: 11}

	testCases := []struct {
		name     string
		profile  *domain.Profile
		doseML   int
		sendErr  error
		expected string
		sent     int
	}{
		{name: "delivered", profile: activeProfile(), doseML: 240, expected: OutcomeDelivered, sent: 1},
		{name: "disabled at fire time", profile: disabled, doseML: 240, expected: OutcomeSkippedDisable},
		{name: "muted at fire time", profile: muted, doseML: 240, expected: OutcomeSkippedMuted},
		{name: "wake boundary entry", profile: activeProfile(), doseML: 0, expected: OutcomeSkippedQuiet},
		{name: "outside waking window", profile: asleep, doseML: 240, expected: OutcomeSkippedQuiet},
		{name: "sender failure", profile: activeProfile(), doseML: 240, sendErr: assert.AnError, expected: OutcomeFailed, sent: 1},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			client, cleanup := setupTestRedis(t)
			defer cleanup()

			sender := &fakeSender{err: tc.sendErr}
			loop, _ := newTestLoop(t, client, &stubProfiles{profile: tc.profile}, sender, 4)

			outcome := loop.deliver(context.Background(), &schedule.Entry{UserID: 42, FireAt: testNow, DoseML: tc.doseML})

			assert.Equal(t, tc.expected, outcome)
			assert.Equal(t, tc.sent, sender.calls)
		})
	}
}

func TestLoopDailyCap(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	sender := &fakeSender{}
	loop, _ := newTestLoop(t, client, &stubProfiles{profile: activeProfile()}, sender, 2)
	ctx := context.Background()
	entry := &schedule.Entry{UserID: 42, FireAt: testNow, DoseML: 240}

	assert.Equal(t, OutcomeDelivered, loop.deliver(ctx, entry))
	assert.Equal(t, OutcomeDelivered, loop.deliver(ctx, entry))
	assert.Equal(t, OutcomeSkippedCapped, loop.deliver(ctx, entry))
	assert.Equal(t, 2, sender.calls)
}

func TestLoopProcessRearmsAfterFailure(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	sender := &fakeSender{err: assert.AnError}
	loop, store := newTestLoop(t, client, &stubProfiles{profile: activeProfile()}, sender, 4)
	ctx := context.Background()

	loop.process(ctx, &schedule.Entry{UserID: 42, FireAt: testNow, DoseML: 240})

	// Delivery failed but the chain continues: a fresh reminder is queued.
	pending, err := store.Pending(ctx, 42)
	assert.NoError(t, err)
	assert.NotNil(t, pending)
	assert.Equal(t, 240, pending.DoseML)
}
