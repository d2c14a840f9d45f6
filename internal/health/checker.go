// Package health aggregates readiness checks for the bot's external
// dependencies: Postgres, Redis, and the Telegram API.
package health

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gopkg.in/telebot.v3"
)

// Checkable reports the health of one component.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// Checker runs all registered checks and collects their statuses.
type Checker struct {
	log    *slog.Logger
	checks map[string]Checkable
}

// NewChecker builds an empty Checker.
func NewChecker(log *slog.Logger) *Checker {
	return &Checker{
		log:    log,
		checks: make(map[string]Checkable),
	}
}

// AddCheck registers a component under a name. Registration happens at
// startup only; Check may then be called concurrently.
func (c *Checker) AddCheck(name string, check Checkable) {
	if name == "" || check == nil {
		return
	}
	c.checks[name] = check
}

// Check runs every registered check. A healthy component maps to "OK",
// a failing one to its error text.
func (c *Checker) Check(ctx context.Context) map[string]string {
	results := make(map[string]string, len(c.checks))

	for name, check := range c.checks {
		err := check.HealthCheck(ctx)
		if err == nil {
			results[name] = "OK"
			continue
		}

		results[name] = err.Error()
		if c.log != nil {
			c.log.Error("health check failed", slog.String("component", name), slog.Any("error", err))
		}
	}

	return results
}

// DBChecker pings the Postgres connection pool.
type DBChecker struct {
	db *sql.DB
}

func NewDBChecker(db *sql.DB) *DBChecker {
	return &DBChecker{db: db}
}

func (c *DBChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.db == nil {
		return sql.ErrConnDone
	}
	return c.db.PingContext(ctx)
}

// Pinger is the slice of redis.Client needed for a health check.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisChecker pings the Redis connection.
type RedisChecker struct {
	pinger Pinger
}

func NewRedisChecker(pinger Pinger) *RedisChecker {
	return &RedisChecker{pinger: pinger}
}

func (c *RedisChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.pinger == nil {
		return redis.ErrClosed
	}
	return c.pinger.Ping(ctx).Err()
}

// TelegramChecker reports whether the bot session was established.
type TelegramChecker struct {
	bot *telebot.Bot
}

func NewTelegramChecker(bot *telebot.Bot) *TelegramChecker {
	return &TelegramChecker{bot: bot}
}

func (c *TelegramChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.bot == nil || c.bot.Me == nil {
		return errors.New("telegram bot is not initialized or disconnected")
	}
	return nil
}
