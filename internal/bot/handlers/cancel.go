package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/glotok-bot/glotok/internal/state"
)

// NewCancelHandler builds the /cancel command. It drops any in-progress
// dialog so the next message is routed as a fresh command.
func NewCancelHandler(fsm state.StateMachine, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil || fsm == nil {
			return nil
		}

		userID := c.Sender().ID
		if err := fsm.ClearState(context.Background(), userID); err != nil {
			log.Error("cancel: clear state failed",
				slog.Int64("user_id", userID), slog.Any("error", err))
			return err
		}

		return c.Send("Отменено. Настройки не изменились.")
	}
}
