package intake

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/glotok-bot/glotok/internal/clock"
	"github.com/glotok-bot/glotok/internal/domain"
	apperrors "github.com/glotok-bot/glotok/internal/errors"
	"github.com/glotok-bot/glotok/internal/repository"
	"github.com/glotok-bot/glotok/pkg/metrics"
)

// Summary is the daily progress snapshot rendered by /today.
type Summary struct {
	ConsumedML  int
	GoalML      int
	RemainingML int
	Percent     int
}

// Rearm is invoked after every logged intake so the reminder chain can
// adapt immediately.
type Rearm interface {
	OnIntakeLogged(ctx context.Context, telegramID int64) error
}

// Service exposes intake ledger operations to the bot handlers.
type Service interface {
	Log(ctx context.Context, profile *domain.Profile, amountML int, source domain.IntakeSource) (*domain.IntakeEvent, error)
	TodaySummary(ctx context.Context, profile *domain.Profile) (*Summary, error)
	WeeklyTotals(ctx context.Context, profile *domain.Profile) ([]domain.DailyTotal, error)
}

type service struct {
	ledger repository.IntakeRepository
	rearm  Rearm
	clocks *clock.Adapter
	log    *slog.Logger
}

// NewService creates an intake service backed by the ledger repository.
func NewService(ledger repository.IntakeRepository, rearm Rearm, clocks *clock.Adapter, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}

	return &service{
		ledger: ledger,
		rearm:  rearm,
		clocks: clocks,
		log:    log,
	}
}

// Log appends one event to the ledger and kicks the reminder chain. A
// re-arm failure is logged but does not fail the logging itself: the
// ledger row is already durable.
func (s *service) Log(ctx context.Context, profile *domain.Profile, amountML int, source domain.IntakeSource) (*domain.IntakeEvent, error) {
	if amountML == 0 {
		return nil, apperrors.NewConfigurationError("Количество не может быть нулевым")
	}
	if amountML > MaxSingleAmountML || amountML < -MaxSingleAmountML {
		return nil, apperrors.NewConfigurationError("Слишком большое количество за один раз")
	}

	event := &domain.IntakeEvent{
		UserID:    profile.TelegramID,
		Timestamp: s.clocks.Now(),
		AmountML:  amountML,
		Source:    source,
	}

	if err := s.ledger.Insert(ctx, event); err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}

	metrics.RecordIntake(string(source), amountML)

	if s.rearm != nil {
		if err := s.rearm.OnIntakeLogged(ctx, profile.TelegramID); err != nil {
			s.log.Error("failed to rearm after intake",
				slog.Int64("user_id", profile.TelegramID),
				slog.Any("error", err),
			)
		}
	}

	return event, nil
}

// TodaySummary reports progress over the user's current local day.
func (s *service) TodaySummary(ctx context.Context, profile *domain.Profile) (*Summary, error) {
	start, end := clock.DayBounds(s.clocks.UserNow(profile))

	consumed, err := s.ledger.SumInRange(ctx, profile.TelegramID, start.UTC(), end.UTC())
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	if consumed < 0 {
		consumed = 0
	}

	summary := &Summary{
		ConsumedML: consumed,
		GoalML:     profile.DailyGoalML,
	}
	if remaining := profile.DailyGoalML - consumed; remaining > 0 {
		summary.RemainingML = remaining
	}
	if profile.DailyGoalML > 0 {
		summary.Percent = consumed * 100 / profile.DailyGoalML
	}

	return summary, nil
}

// WeeklyTotals returns per-day net consumption for the last seven local
// days, today included. The resolved zone is handed to the ledger so the
// SQL buckets match the boundaries computed here.
func (s *service) WeeklyTotals(ctx context.Context, profile *domain.Profile) ([]domain.DailyTotal, error) {
	dayStart, dayEnd := clock.DayBounds(s.clocks.UserNow(profile))
	start := dayStart.AddDate(0, 0, -6)

	totals, err := s.ledger.DailyTotals(ctx, profile.TelegramID, start.UTC(), dayEnd.UTC(), s.clocks.Location(profile).String())
	if err != nil {
		return nil, fmt.Errorf("weekly totals for user %d: %w", profile.TelegramID, err)
	}

	return totals, nil
}
