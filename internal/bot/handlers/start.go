package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/glotok-bot/glotok/internal/state"
	"github.com/glotok-bot/glotok/internal/user"
)

const (
	greetingNew = "Привет! Я помогу пить больше воды 💧\n\n" +
		"Для начала настроим профиль.\n" +
		"Сколько воды в день вы хотите выпивать? Введите число в миллилитрах, например 2000."
	greetingBack = "С возвращением! 💧\n\n" +
		"Команды:\n" +
		"/today — прогресс за сегодня\n" +
		"/add — записать воду\n" +
		"/stats — статистика за неделю\n" +
		"/remind — настройки напоминаний\n" +
		"/mute — отложить напоминания"
)

// NewStartHandler greets the user and starts onboarding for new profiles.
func NewStartHandler(userService *user.Service, fsm state.StateMachine, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			log.Warn("start handler invoked without sender")
			return nil
		}

		ctx := context.Background()

		_, created, err := userService.GetOrCreate(ctx, c.Sender())
		if err != nil {
			return err
		}

		if !created {
			// Returning users go straight to the command menu; any stale
			// dialog state is dropped.
			if err := fsm.ClearState(ctx, c.Sender().ID); err != nil {
				log.Warn("failed to clear state on start", slog.Int64("user_id", c.Sender().ID), slog.Any("error", err))
			}
			return c.Send(greetingBack)
		}

		if err := fsm.SetState(ctx, c.Sender().ID, state.StateOnboardingGoal, nil); err != nil {
			log.Error("failed to enter onboarding", slog.Int64("user_id", c.Sender().ID), slog.Any("error", err))
			return err
		}

		return c.Send(greetingNew)
	}
}
