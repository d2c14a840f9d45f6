// Package user provides business operations over hydration profiles.
package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/glotok-bot/glotok/internal/clock"
	"github.com/glotok-bot/glotok/internal/domain"
	apperrors "github.com/glotok-bot/glotok/internal/errors"
	"github.com/glotok-bot/glotok/internal/repository"
	"github.com/glotok-bot/glotok/internal/usercache"
)

const cacheTTL = 5 * time.Minute

// Scheduler receives settings-change notifications so the reminder chain
// can be re-armed right away.
type Scheduler interface {
	OnConfigChanged(ctx context.Context, telegramID int64) error
	OnMuteChanged(ctx context.Context, telegramID int64) error
}

// Service provides profile lookup and settings updates.
type Service struct {
	repo      repository.ProfileRepository
	cache     *usercache.Cache
	sched     Scheduler
	clocks    *clock.Adapter
	defaultTZ string
	log       *slog.Logger
}

// NewService constructs a new Service instance.
func NewService(
	repo repository.ProfileRepository,
	cache *usercache.Cache,
	sched Scheduler,
	clocks *clock.Adapter,
	defaultTZ string,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		repo:      repo,
		cache:     cache,
		sched:     sched,
		clocks:    clocks,
		defaultTZ: defaultTZ,
		log:       log,
	}
}

// GetOrCreate fetches a profile by telegram ID or creates one with
// defaults when missing. Returns whether the profile was just created so
// the caller can start onboarding.
func (s *Service) GetOrCreate(ctx context.Context, telegramUser *telebot.User) (*domain.Profile, bool, error) {
	if telegramUser == nil {
		return nil, false, errors.New("telegram user is nil")
	}

	if cached, err := s.cache.Get(ctx, telegramUser.ID); err == nil && cached != nil {
		return cached, false, nil
	}

	profile, err := s.repo.FindByTelegramID(ctx, telegramUser.ID)
	if err == nil {
		s.cacheProfile(ctx, profile)
		return profile, false, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		s.logError("get_or_create.find", telegramUser.ID, err)
		return nil, false, apperrors.NewPersistenceError(err)
	}

	profile = domain.DefaultProfile(telegramUser.ID, s.defaultTZ, s.clocks.Now())
	if err := s.repo.Create(ctx, profile); err != nil {
		s.logError("get_or_create.create", telegramUser.ID, err)
		return nil, false, apperrors.NewPersistenceError(err)
	}

	// Defaults have smart reminders on; arm the chain right away instead
	// of waiting for the periodic rollover sweep.
	if s.sched != nil {
		if err := s.sched.OnConfigChanged(ctx, telegramUser.ID); err != nil {
			s.logError("get_or_create.rearm", telegramUser.ID, err)
		}
	}

	return profile, true, nil
}

// Get fetches an existing profile, preferring the cache.
func (s *Service) Get(ctx context.Context, telegramID int64) (*domain.Profile, error) {
	if cached, err := s.cache.Get(ctx, telegramID); err == nil && cached != nil {
		return cached, nil
	}

	profile, err := s.repo.FindByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		s.logError("get", telegramID, err)
		return nil, apperrors.NewPersistenceError(err)
	}

	s.cacheProfile(ctx, profile)
	return profile, nil
}

// SetGoal updates the daily goal.
func (s *Service) SetGoal(ctx context.Context, telegramID int64, goalML int) error {
	if goalML < domain.MinDailyGoalML || goalML > domain.MaxDailyGoalML {
		return apperrors.NewConfigurationError(fmt.Sprintf(
			"Цель должна быть от %d до %d мл", domain.MinDailyGoalML, domain.MaxDailyGoalML,
		))
	}

	return s.applyConfig(ctx, "set_goal", telegramID, func() error {
		return s.repo.UpdateGoal(ctx, telegramID, goalML)
	})
}

// SetWindow updates the waking window. Wake must precede sleep within the
// same day.
func (s *Service) SetWindow(ctx context.Context, telegramID int64, wakeAt, sleepAt domain.TimeOfDay) error {
	if !wakeAt.Before(sleepAt) {
		return apperrors.NewConfigurationError("Время подъёма должно быть раньше времени сна")
	}

	return s.applyConfig(ctx, "set_window", telegramID, func() error {
		return s.repo.UpdateWindow(ctx, telegramID, wakeAt, sleepAt)
	})
}

// SetGlass updates the default glass size.
func (s *Service) SetGlass(ctx context.Context, telegramID int64, glassML int) error {
	if glassML < domain.MinGlassML || glassML > domain.MaxGlassML {
		return apperrors.NewConfigurationError(fmt.Sprintf(
			"Объём стакана должен быть от %d до %d мл", domain.MinGlassML, domain.MaxGlassML,
		))
	}

	return s.applyConfig(ctx, "set_glass", telegramID, func() error {
		return s.repo.UpdateGlass(ctx, telegramID, glassML)
	})
}

// SetTimezone updates the IANA timezone after validating it.
func (s *Service) SetTimezone(ctx context.Context, telegramID int64, timezone string) error {
	if timezone == "" {
		return apperrors.NewConfigurationError("Неизвестный часовой пояс. Пример: Europe/Moscow")
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return apperrors.NewConfigurationError("Неизвестный часовой пояс. Пример: Europe/Moscow")
	}

	return s.applyConfig(ctx, "set_timezone", telegramID, func() error {
		return s.repo.UpdateTimezone(ctx, telegramID, timezone)
	})
}

// SetUnits updates the display units.
func (s *Service) SetUnits(ctx context.Context, telegramID int64, units string) error {
	if units != "ml" && units != "oz" {
		return apperrors.NewConfigurationError("Доступные единицы: ml, oz")
	}

	return s.applyConfig(ctx, "set_units", telegramID, func() error {
		return s.repo.UpdateUnits(ctx, telegramID, units)
	})
}

// SetSmartReminders toggles adaptive reminders.
func (s *Service) SetSmartReminders(ctx context.Context, telegramID int64, enabled bool) error {
	return s.applyConfig(ctx, "set_smart_reminders", telegramID, func() error {
		return s.repo.SetSmartReminders(ctx, telegramID, enabled)
	})
}

// Mute silences reminders for the given duration.
func (s *Service) Mute(ctx context.Context, telegramID int64, d time.Duration) error {
	if d <= 0 {
		return apperrors.NewConfigurationError("Длительность должна быть положительной")
	}

	until := s.clocks.Now().Add(d)
	if err := s.repo.SetMuteUntil(ctx, telegramID, &until); err != nil {
		s.logError("mute", telegramID, err)
		return apperrors.NewPersistenceError(err)
	}
	s.invalidate(ctx, telegramID)

	return s.notifyMute(ctx, telegramID)
}

// Unmute clears an active mute.
func (s *Service) Unmute(ctx context.Context, telegramID int64) error {
	if err := s.repo.SetMuteUntil(ctx, telegramID, nil); err != nil {
		s.logError("unmute", telegramID, err)
		return apperrors.NewPersistenceError(err)
	}
	s.invalidate(ctx, telegramID)

	return s.notifyMute(ctx, telegramID)
}

func (s *Service) applyConfig(ctx context.Context, operation string, telegramID int64, update func() error) error {
	if err := update(); err != nil {
		s.logError(operation, telegramID, err)
		return apperrors.NewPersistenceError(err)
	}
	s.invalidate(ctx, telegramID)

	if s.sched != nil {
		if err := s.sched.OnConfigChanged(ctx, telegramID); err != nil {
			s.logError(operation+".rearm", telegramID, err)
		}
	}

	return nil
}

func (s *Service) notifyMute(ctx context.Context, telegramID int64) error {
	if s.sched == nil {
		return nil
	}

	if err := s.sched.OnMuteChanged(ctx, telegramID); err != nil {
		s.logError("mute.rearm", telegramID, err)
	}

	return nil
}

func (s *Service) cacheProfile(ctx context.Context, profile *domain.Profile) {
	if err := s.cache.Set(ctx, profile.TelegramID, profile, cacheTTL); err != nil {
		s.log.Warn("failed to cache profile", slog.Int64("telegram_id", profile.TelegramID), slog.Any("error", err))
	}
}

func (s *Service) invalidate(ctx context.Context, telegramID int64) {
	if err := s.cache.Invalidate(ctx, telegramID); err != nil {
		s.log.Warn("failed to invalidate cached profile", slog.Int64("telegram_id", telegramID), slog.Any("error", err))
	}
}

func (s *Service) logError(operation string, telegramID int64, err error) {
	if s == nil || s.log == nil || err == nil {
		return
	}

	s.log.Error("profile service operation failed",
		slog.String("operation", operation),
		slog.Int64("telegram_id", telegramID),
		slog.Any("error", err),
	)
}
