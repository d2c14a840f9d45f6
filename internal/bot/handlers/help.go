package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/glotok-bot/glotok/internal/domain"
	"github.com/glotok-bot/glotok/internal/intake"
	"github.com/glotok-bot/glotok/internal/user"
)

const helpText = `Я помогаю пить достаточно воды 💧

/add 250 — записать количество (можно 0.5l, 8oz, -150 для исправления)
/today — прогресс за сегодня
/stats — статистика за неделю
/remind — настройки напоминаний
/mute — отложить напоминания
/unmute — включить напоминания
/start — настроить заново
/cancel — отменить текущее действие

Можно просто прислать число, я запишу его как выпитую воду.`

// NewHelpHandler returns the /help command handler.
func NewHelpHandler(log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil {
			return nil
		}
		return c.Send(helpText)
	}
}

// NewTextIntakeHandler treats free-form text as an intake amount. Text
// that doesn't parse gets the help hint instead of an error.
func NewTextIntakeHandler(userService *user.Service, intakeService intake.Service, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		amountML, err := intake.ParseAmount(c.Text())
		if err != nil {
			return c.Send("Не понял 🤔 Пришлите число в мл, например 250, или /help")
		}

		ctx := context.Background()

		profile, _, err := userService.GetOrCreate(ctx, c.Sender())
		if err != nil {
			return err
		}

		if _, err := intakeService.Log(ctx, profile, amountML, domain.SourceManual); err != nil {
			return err
		}

		return c.Send(confirmationText(ctx, intakeService, profile, amountML))
	}
}
