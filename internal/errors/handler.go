package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/glotok-bot/glotok/pkg/logger"
)

const fallbackUserMessage = "Произошла ошибка. Попробуйте позже"

// Handler turns errors into user-facing replies: it logs the technical
// details, reports high-severity errors to Sentry, and returns the text
// safe to show in chat.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

// NewHandler builds a Handler. Sentry capture is skipped entirely when
// disabled in config.
func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	if log == nil {
		log = slog.Default()
	}

	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// Handle logs and reports err, returning the user message and whether
// the user may simply retry the action.
func (h *Handler) Handle(ctx context.Context, err error) (string, bool) {
	if err == nil {
		return "", false
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var appErr *AppError
	if !errors.As(err, &appErr) || appErr == nil {
		h.logError(ctx, "unknown error",
			slog.String("message", err.Error()),
			slog.String("severity", string(SeverityHigh)),
		)

		if h.sentryEnabled {
			h.capture(err)
		}

		return fallbackUserMessage, false
	}

	h.logError(ctx, "application error",
		slog.String("code", appErr.Code),
		slog.String("message", appErr.Message),
		slog.String("severity", string(appErr.Severity)),
		slog.Bool("retryable", appErr.Retryable),
	)

	if h.sentryEnabled && (appErr.Severity == SeverityCritical || appErr.Severity == SeverityHigh) {
		h.capture(err)
	}

	if appErr.UserMessage == "" {
		return fallbackUserMessage, appErr.Retryable
	}

	return appErr.UserMessage, appErr.Retryable
}

func (h *Handler) logError(ctx context.Context, msg string, attrs ...slog.Attr) {
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String("correlation_id", id))
	}

	h.log.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func (h *Handler) capture(err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		var appErr *AppError
		if errors.As(err, &appErr) && appErr != nil {
			if appErr.Code != "" {
				scope.SetTag("code", appErr.Code)
			}
			if appErr.Severity != "" {
				scope.SetTag("severity", string(appErr.Severity))
			}
		}

		sentry.CaptureException(err)
	})
}
