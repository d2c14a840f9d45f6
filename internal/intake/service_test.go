package intake

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/glotok-bot/glotok/internal/clock"
	"github.com/glotok-bot/glotok/internal/domain"
)

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Insert(ctx context.Context, event *domain.IntakeEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockLedger) SumInRange(ctx context.Context, userID int64, start, end time.Time) (int, error) {
	args := m.Called(ctx, userID, start, end)
	return args.Int(0), args.Error(1)
}

func (m *mockLedger) LastTimestamp(ctx context.Context, userID int64) (*time.Time, error) {
	args := m.Called(ctx, userID)
	if ts, ok := args.Get(0).(*time.Time); ok {
		return ts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLedger) DailyTotals(ctx context.Context, userID int64, start, end time.Time, tz string) ([]domain.DailyTotal, error) {
	args := m.Called(ctx, userID, start, end, tz)
	if totals, ok := args.Get(0).([]domain.DailyTotal); ok {
		return totals, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLedger) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type rearmRecorder struct {
	users []int64
}

func (r *rearmRecorder) OnIntakeLogged(_ context.Context, telegramID int64) error {
	r.users = append(r.users, telegramID)
	return nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var serviceNow = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

func serviceProfile() *domain.Profile {
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

func newTestService(t *testing.T, ledger *mockLedger, rearm Rearm) Service {
	t.Helper()
	clocks, err := clock.NewAdapter(fixedClock{now: serviceNow}, "UTC", testLogger())
	assert.NoError(t, err)
	return NewService(ledger, rearm, clocks, testLogger())
}

func TestServiceLog(t *testing.T) {
	ledger := &mockLedger{}
	ledger.On("Insert", mock.Anything, mock.MatchedBy(func(event *domain.IntakeEvent) bool {
		return event.UserID == 42 && event.AmountML == 250 && event.Source == domain.SourceQuick
	})).Return(nil)

	rearm := &rearmRecorder{}
	svc := newTestService(t, ledger, rearm)

	event, err := svc.Log(context.Background(), serviceProfile(), 250, domain.SourceQuick)

	assert.NoError(t, err)
	assert.NotNil(t, event)
	assert.True(t, serviceNow.Equal(event.Timestamp))
	assert.Equal(t, []int64{42}, rearm.users)
	ledger.AssertExpectations(t)
}

func TestServiceLogRejectsInvalidAmount(t *testing.T) {
	svc := newTestService(t, &mockLedger{}, &rearmRecorder{})

	for _, amount := range []int{0, MaxSingleAmountML + 1, -MaxSingleAmountML - 1} {
		_, err := svc.Log(context.Background(), serviceProfile(), amount, domain.SourceManual)
		assert.Error(t, err)
	}
}

func TestServiceLogInsertFailureSkipsRearm(t *testing.T) {
	ledger := &mockLedger{}
	ledger.On("Insert", mock.Anything, mock.Anything).Return(assert.AnError)

	rearm := &rearmRecorder{}
	svc := newTestService(t, ledger, rearm)

	_, err := svc.Log(context.Background(), serviceProfile(), 250, domain.SourceManual)

	assert.Error(t, err)
	assert.Empty(t, rearm.users)
}

func TestServiceTodaySummary(t *testing.T) {
	dayStart := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	ledger := &mockLedger{}
	ledger.On("SumInRange", mock.Anything, int64(42), dayStart, dayEnd).Return(750, nil)

	svc := newTestService(t, ledger, &rearmRecorder{})

	summary, err := svc.TodaySummary(context.Background(), serviceProfile())

	assert.NoError(t, err)
	assert.Equal(t, 750, summary.ConsumedML)
	assert.Equal(t, 2000, summary.GoalML)
	assert.Equal(t, 1250, summary.RemainingML)
	assert.Equal(t, 37, summary.Percent)
	ledger.AssertExpectations(t)
}

func TestServiceTodaySummaryGoalExceeded(t *testing.T) {
	ledger := &mockLedger{}
	ledger.On("SumInRange", mock.Anything, int64(42), mock.Anything, mock.Anything).Return(2400, nil)

	svc := newTestService(t, ledger, &rearmRecorder{})

	summary, err := svc.TodaySummary(context.Background(), serviceProfile())

	assert.NoError(t, err)
	assert.Equal(t, 0, summary.RemainingML)
	assert.Equal(t, 120, summary.Percent)
}

func TestServiceWeeklyTotals(t *testing.T) {
	weekStart := time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC)
	dayEnd := time.Date(2024, 5, 21, 0, 0, 0, 0, time.UTC)

	expected := []domain.DailyTotal{
		{Day: weekStart, AmountML: 1800},
		{Day: weekStart.AddDate(0, 0, 1), AmountML: 2100},
	}

	ledger := &mockLedger{}
	ledger.On("DailyTotals", mock.Anything, int64(42), weekStart, dayEnd, "UTC").Return(expected, nil)

	svc := newTestService(t, ledger, &rearmRecorder{})

	totals, err := svc.WeeklyTotals(context.Background(), serviceProfile())

	assert.NoError(t, err)
	assert.Equal(t, expected, totals)
	ledger.AssertExpectations(t)
}

func TestServiceWeeklyTotalsUsesLocalDays(t *testing.T) {
	profile := serviceProfile()
	profile.Timezone = "Europe/Moscow"

	// serviceNow 12:00 UTC is 15:00 in Moscow; the Moscow day started at
	// 21:00 UTC the previous evening.
	dayStart := time.Date(2024, 5, 19, 21, 0, 0, 0, time.UTC)
	weekStart := dayStart.AddDate(0, 0, -6)
	dayEnd := dayStart.AddDate(0, 0, 1)

	ledger := &mockLedger{}
	ledger.On("DailyTotals", mock.Anything, int64(42),
		mock.MatchedBy(func(ts time.Time) bool { return ts.Equal(weekStart) }),
		mock.MatchedBy(func(ts time.Time) bool { return ts.Equal(dayEnd) }),
		"Europe/Moscow",
	).Return([]domain.DailyTotal{}, nil)

	svc := newTestService(t, ledger, &rearmRecorder{})

	_, err := svc.WeeklyTotals(context.Background(), profile)

	assert.NoError(t, err)
	ledger.AssertExpectations(t)
}
