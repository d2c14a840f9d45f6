package middleware

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/telebot.v3"

	"github.com/glotok-bot/glotok/internal/ratelimit"
)

const floodReply = "Слишком много запросов. Попробуйте позже."

// RateLimitMiddleware throttles incoming updates per user. Limiter
// failures never block the update, they only lose the throttle.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	log     *slog.Logger
}

// NewRateLimitMiddleware constructs a rate-limit middleware component.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter: limiter,
		rules:   rules,
		log:     log,
	}
}

// Handle returns a telebot middleware enforcing the per-user limit.
func (m *RateLimitMiddleware) Handle(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if m.limiter == nil || m.rules == nil {
			return next(c)
		}

		sender := c.Sender()
		if sender == nil {
			return next(c)
		}

		allowed := m.allow(sender.ID)
		if !allowed {
			return c.Send(floodReply)
		}

		return next(c)
	}
}

func (m *RateLimitMiddleware) allow(userID int64) bool {
	if m.rules.IsWhitelisted(userID) {
		return true
	}

	limit, window, err := m.rules.GetPerUserLimit()
	if err != nil {
		m.log.Error("per-user rate limit unavailable",
			slog.Int64("user_id", userID), slog.Any("error", err))
		return true
	}

	result, err := m.limiter.Check(context.Background(), fmt.Sprintf("user:%d", userID), limit, window)
	if err != nil {
		m.log.Warn("rate limiter check failed",
			slog.Int64("user_id", userID), slog.Any("error", err))
		return true
	}

	if !result.Allowed {
		m.log.Warn("rate limit exceeded", slog.Int64("user_id", userID))
		return false
	}

	return true
}
