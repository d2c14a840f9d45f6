package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/glotok-bot/glotok/internal/bot/keyboard"
	"github.com/glotok-bot/glotok/internal/domain"
	apperrors "github.com/glotok-bot/glotok/internal/errors"
	"github.com/glotok-bot/glotok/internal/policy"
	"github.com/glotok-bot/glotok/internal/state"
	"github.com/glotok-bot/glotok/internal/user"
)

const (
	askWindow = "Отлично! Теперь укажите окно бодрствования в формате 08:00-23:00.\n" +
		"Напоминания будут приходить только в это время."
	askGlass = "Почти готово! Какой объём у вашего стакана? Введите число в миллилитрах, например 250."
)

// NewGoalInputHandler consumes the daily goal answer during onboarding.
func NewGoalInputHandler(userService *user.Service, fsm state.StateMachine, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()
		userID := c.Sender().ID

		goalML, err := strconv.Atoi(strings.TrimSpace(c.Text()))
		if err != nil {
			return apperrors.NewConfigurationError("Введите число в миллилитрах, например 2000")
		}

		if err := userService.SetGoal(ctx, userID, goalML); err != nil {
			return err
		}

		if err := fsm.TransitionTo(ctx, userID, state.StateOnboardingWindow); err != nil {
			log.Error("failed to advance onboarding", slog.Int64("user_id", userID), slog.Any("error", err))
			return err
		}

		return c.Send(askWindow)
	}
}

// NewWindowInputHandler consumes the waking window answer during onboarding.
func NewWindowInputHandler(userService *user.Service, fsm state.StateMachine, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()
		userID := c.Sender().ID

		wakeAt, sleepAt, err := parseWindow(c.Text())
		if err != nil {
			return err
		}

		if err := userService.SetWindow(ctx, userID, wakeAt, sleepAt); err != nil {
			return err
		}

		if err := fsm.TransitionTo(ctx, userID, state.StateOnboardingGlass); err != nil {
			log.Error("failed to advance onboarding", slog.Int64("user_id", userID), slog.Any("error", err))
			return err
		}

		return c.Send(askGlass)
	}
}

// NewGlassInputHandler consumes the glass size answer and finishes onboarding.
func NewGlassInputHandler(userService *user.Service, fsm state.StateMachine, kb *keyboard.Builder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()
		userID := c.Sender().ID

		glassML, err := strconv.Atoi(strings.TrimSpace(c.Text()))
		if err != nil {
			return apperrors.NewConfigurationError("Введите число в миллилитрах, например 250")
		}

		if err := userService.SetGlass(ctx, userID, glassML); err != nil {
			return err
		}

		if err := fsm.ClearState(ctx, userID); err != nil {
			log.Error("failed to finish onboarding", slog.Int64("user_id", userID), slog.Any("error", err))
			return err
		}

		profile, err := userService.Get(ctx, userID)
		if err != nil {
			return err
		}

		done := fmt.Sprintf(
			"Готово! 🎉\n\nЦель: %d мл в день\nОкно: %s-%s\nСтакан: %d мл\n\n"+
				"Записывайте воду кнопками ниже или командой /add. Прогресс: /today.",
			profile.DailyGoalML, profile.WakeAt, profile.SleepAt, profile.GlassML,
		)

		return c.Send(done, kb.QuickAdd(policy.SuggestedDose(profile.DailyGoalML), profile.GlassML))
	}
}

// parseWindow parses "HH:MM-HH:MM".
func parseWindow(input string) (domain.TimeOfDay, domain.TimeOfDay, error) {
	parts := strings.SplitN(strings.TrimSpace(input), "-", 2)
	if len(parts) != 2 {
		return domain.TimeOfDay{}, domain.TimeOfDay{}, apperrors.NewConfigurationError(
			"Введите окно в формате 08:00-23:00")
	}

	wakeAt, err := domain.ParseTimeOfDay(parts[0])
	if err != nil {
		return domain.TimeOfDay{}, domain.TimeOfDay{}, apperrors.NewConfigurationError(
			"Введите окно в формате 08:00-23:00")
	}

	sleepAt, err := domain.ParseTimeOfDay(parts[1])
	if err != nil {
		return domain.TimeOfDay{}, domain.TimeOfDay{}, apperrors.NewConfigurationError(
			"Введите окно в формате 08:00-23:00")
	}

	return wakeAt, sleepAt, nil
}
