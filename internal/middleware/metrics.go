package middleware

import (
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/glotok-bot/glotok/internal/bot/handlers"
	"github.com/glotok-bot/glotok/pkg/metrics"
)

// Metrics records handler duration and outcome to Prometheus, labelled
// by the command or callback that triggered the handler.
func Metrics(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.RecordCommand(commandLabel(c), status, time.Since(start))

		return err
	}
}

func commandLabel(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}
	if cb := c.Callback(); cb != nil && cb.Data != "" {
		return cb.Data
	}
	if text := c.Text(); text != "" {
		return text
	}
	return "unknown"
}
