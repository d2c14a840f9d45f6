package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/glotok-bot/glotok/internal/bot/handlers"
	errors "github.com/glotok-bot/glotok/internal/errors"
	"github.com/glotok-bot/glotok/internal/user"
)

const panicReply = "⚠️ Что-то пошло не так. Попробуйте позже."

// RecoveryMiddleware converts handler panics into a logged error and an
// apology message. The panic never propagates to the telebot poller.
func RecoveryMiddleware(log *slog.Logger, errHandler *errors.Handler) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}

				log.Error("panic recovered in handler",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())))

				reply := panicReply
				if errHandler != nil {
					appErr := errors.NewPersistenceError(fmt.Errorf("panic recovered: %v", r))
					if msg, _ := errHandler.Handle(context.Background(), appErr); msg != "" {
						reply = msg
					}
				}

				if c != nil {
					if sendErr := c.Send(reply); sendErr != nil {
						log.Error("panic reply failed", slog.Any("error", sendErr))
					}
				}

				err = nil
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware reports handler errors through the central
// error handler and replies with its user-facing message. The error is
// swallowed so telebot does not retry the update.
func ErrorHandlingMiddleware(errHandler *errors.Handler) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			reply := "Произошла ошибка. Попробуйте позже"
			if errHandler != nil {
				if msg, _ := errHandler.Handle(context.Background(), err); msg != "" {
					reply = msg
				}
			}

			if c != nil {
				_ = c.Send(reply)
			}

			return nil
		}
	}
}

// LoggingMiddleware writes one line before and one after each handled
// update, with the sender and the triggering text or callback payload.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			start := time.Now()
			userID, action := updateInfo(c)

			log.Info("handling update",
				slog.Int64("user_id", userID), slog.String("action", action))

			err := next(c)

			log.Info("handled update",
				slog.Int64("user_id", userID),
				slog.String("action", action),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)

			return err
		}
	}
}

func updateInfo(c telebot.Context) (userID int64, action string) {
	if c == nil {
		return 0, ""
	}
	if sender := c.Sender(); sender != nil {
		userID = sender.ID
	}
	if cb := c.Callback(); cb != nil {
		return userID, cb.Data
	}
	return userID, c.Text()
}

// EnsureProfileMiddleware guarantees a profile row exists for the sender
// before any handler runs.
func EnsureProfileMiddleware(userService *user.Service, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			if userService == nil || c == nil || c.Sender() == nil {
				return next(c)
			}

			_, created, err := userService.GetOrCreate(context.Background(), c.Sender())
			if err != nil {
				log.Error("failed to ensure profile",
					slog.Int64("user_id", c.Sender().ID), slog.Any("error", err))
				return err
			}
			if created {
				log.Info("created new profile", slog.Int64("user_id", c.Sender().ID))
			}

			return next(c)
		}
	}
}
