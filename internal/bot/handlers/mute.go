package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/glotok-bot/glotok/internal/bot/keyboard"
	"github.com/glotok-bot/glotok/internal/user"
)

const (
	muteCallbackPrefix = "mute:"
	maxMuteMinutes     = 24 * 60
)

// NewMuteHandler returns the /mute command handler. With a payload it
// mutes for that many minutes ("/mute 90"), otherwise it offers presets.
func NewMuteHandler(userService *user.Service, kb *keyboard.Builder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		payload := ""
		if c.Message() != nil {
			payload = c.Message().Payload
		}
		if payload == "" {
			return c.Send("На сколько отложить напоминания?", kb.MuteOptions())
		}

		minutes, err := strconv.Atoi(payload)
		if err != nil || minutes <= 0 || minutes > maxMuteMinutes {
			return c.Send("Укажите длительность в минутах, например /mute 90 (не больше суток)")
		}

		ctx := context.Background()
		if err := userService.Mute(ctx, c.Sender().ID, time.Duration(minutes)*time.Minute); err != nil {
			return err
		}

		return c.Send(fmt.Sprintf("Напоминания отложены на %s 🔕", muteLabel(minutes)))
	}
}

// NewMuteCallbackHandler applies a mute preset from the inline keyboard.
func NewMuteCallbackHandler(userService *user.Service, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		minutes, err := strconv.Atoi(callbackPayload(c, muteCallbackPrefix))
		if err != nil || minutes <= 0 || minutes > maxMuteMinutes {
			log.Warn("malformed mute callback", slog.String("data", callbackPayload(c, "")))
			return respondCallback(c, "Неизвестная команда", true)
		}

		ctx := context.Background()
		if err := userService.Mute(ctx, c.Sender().ID, time.Duration(minutes)*time.Minute); err != nil {
			return err
		}

		return respondCallback(c, fmt.Sprintf("Напоминания отложены на %s 🔕", muteLabel(minutes)), false)
	}
}

// NewUnmuteHandler returns the /unmute command handler.
func NewUnmuteHandler(userService *user.Service, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()
		if err := userService.Unmute(ctx, c.Sender().ID); err != nil {
			return err
		}

		return c.Send("Напоминания снова активны 🔔")
	}
}

func muteLabel(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d мин", minutes)
	}
	if minutes%60 == 0 {
		return fmt.Sprintf("%d ч", minutes/60)
	}
	return fmt.Sprintf("%d ч %d мин", minutes/60, minutes%60)
}
