package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/glotok-bot/glotok/internal/bot/keyboard"
	"github.com/glotok-bot/glotok/internal/user"
)

const remindCallbackPrefix = "remind:"

// NewRemindHandler returns the /remind command handler showing the
// current reminder setting.
func NewRemindHandler(userService *user.Service, kb *keyboard.Builder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()

		profile, _, err := userService.GetOrCreate(ctx, c.Sender())
		if err != nil {
			return err
		}

		message := "Умные напоминания выключены 🔕"
		if profile.SmartRemindersEnabled {
			message = "Умные напоминания включены 🔔\n" +
				"Я подстраиваю время под ваш темп и не пишу ночью."
		}

		return c.Send(message, kb.RemindSettings(profile.SmartRemindersEnabled))
	}
}

// NewRemindCallbackHandler toggles reminders from the inline keyboard.
func NewRemindCallbackHandler(userService *user.Service, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()
		userID := c.Sender().ID

		switch callbackPayload(c, remindCallbackPrefix) {
		case "on":
			if err := userService.SetSmartReminders(ctx, userID, true); err != nil {
				return err
			}
			return respondCallback(c, "Напоминания включены 🔔", false)
		case "off":
			if err := userService.SetSmartReminders(ctx, userID, false); err != nil {
				return err
			}
			return respondCallback(c, "Напоминания выключены 🔕", false)
		default:
			log.Warn("unknown remind callback", slog.String("data", callbackPayload(c, "")))
			return respondCallback(c, "Неизвестная команда", true)
		}
	}
}
