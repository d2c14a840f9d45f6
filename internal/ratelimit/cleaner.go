package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	scanPattern = keyPrefix + "*"
	scanBatch   = 100

	// staleAfter must exceed the largest configured window, otherwise
	// live entries would be trimmed.
	staleAfter = 5 * time.Minute
)

// Cleaner removes rate-limit sorted sets that emptied out after their
// window passed. The Expire set on each key covers the common case; the
// sweep handles keys that keep being touched but hold only stale members.
type Cleaner struct {
	client   *redis.Client
	log      *slog.Logger
	interval time.Duration
}

// NewCleaner builds the periodic sweep.
func NewCleaner(client *redis.Client, log *slog.Logger, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		client:   client,
		log:      log,
		interval: interval,
	}
}

// Run sweeps on each tick until ctx is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c.client == nil || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("rate limit cleaner stopped", slog.String("reason", ctx.Err().Error()))
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *Cleaner) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	cutoff := time.Now().Add(-staleAfter).Unix()
	var cursor uint64
	removed := 0

	for {
		keys, next, err := c.client.Scan(ctx, cursor, scanPattern, scanBatch).Result()
		if err != nil {
			c.log.Error("rate limit scan failed", slog.Any("error", err))
			return
		}

		for _, key := range keys {
			if c.trimKey(ctx, key, cutoff) {
				removed++
			}
		}

		if next == 0 {
			break
		}
		cursor = next
	}

	if removed > 0 {
		c.log.Info("rate limit keys cleaned", slog.Int("keys_removed", removed))
	}
}

// trimKey drops stale members and deletes the key when nothing remains.
// Reports whether the key was deleted.
func (c *Cleaner) trimKey(ctx context.Context, key string, cutoff int64) bool {
	pipe := c.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("(%d", cutoff))
	cardCmd := pipe.ZCard(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("cleanup pipeline failed", slog.String("key", key), slog.Any("error", err))
		return false
	}

	count, err := cardCmd.Result()
	if err != nil || count > 0 {
		return false
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Warn("failed to delete empty rate limit key", slog.String("key", key), slog.Any("error", err))
		return false
	}

	return true
}
