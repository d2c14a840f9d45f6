package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/glotok-bot/glotok/internal/bot/handlers"
	"github.com/glotok-bot/glotok/internal/idempotency"
)

// Results stay replayable for a day, matching how long Telegram keeps
// retrying undelivered updates.
const idempotencyTTL = 24 * time.Hour

// Idempotency runs the wrapped handler at most once per update key.
// Duplicate deliveries of the same message or callback are swallowed.
func Idempotency(manager idempotency.Manager, log *slog.Logger) handlers.Middleware {
	if manager == nil {
		return func(next handlers.Handler) handlers.Handler {
			return next
		}
	}
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			key := updateKey(c)
			if key == "" {
				return next(c)
			}

			_, err := manager.Execute(context.Background(), key, idempotencyTTL,
				func(context.Context) (interface{}, error) {
					return nil, next(c)
				})

			switch {
			case err == nil:
				return nil
			case errors.Is(err, idempotency.ErrRequestInProgress):
				return nil
			default:
				log.Error("idempotent handler failed",
					slog.String("key", key), slog.Any("error", err))
				return err
			}
		}
	}
}

// updateKey derives a stable key for the update. Callback queries carry
// their own id; plain messages fall back to chat id plus message id.
func updateKey(c telebot.Context) string {
	if c == nil {
		return ""
	}

	if cb := c.Callback(); cb != nil {
		if cb.ID != "" {
			return "cb:" + cb.ID
		}
		if cb.Message != nil {
			return fmt.Sprintf("cb-msg:%d:%d", chatID(cb.Message), cb.Message.ID)
		}
	}

	if msg := c.Message(); msg != nil && msg.ID != 0 {
		return fmt.Sprintf("msg:%d:%d", chatID(msg), msg.ID)
	}

	return ""
}

func chatID(msg *telebot.Message) int64 {
	if msg.Chat == nil {
		return 0
	}
	return msg.Chat.ID
}
