// Package usercache caches profiles in Redis so hot paths skip Postgres.
package usercache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/glotok-bot/glotok/internal/domain"
)

// KV is the key-value surface the cache needs. Both the plain Redis
// client wrapper and its metrics-instrumented variant satisfy it.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Cache provides Redis-backed caching for user profiles.
type Cache struct {
	kv KV
}

// NewCache constructs a profile cache backed by the provided key-value store.
func NewCache(kv KV) *Cache {
	return &Cache{kv: kv}
}

// Get fetches a cached profile if it exists.
func (c *Cache) Get(ctx context.Context, telegramID int64) (*domain.Profile, error) {
	if c == nil || c.kv == nil {
		return nil, nil
	}

	data, err := c.kv.Get(ctx, cacheKey(telegramID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached profile: %w", err)
	}

	var profile domain.Profile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, fmt.Errorf("decode cached profile: %w", err)
	}

	return &profile, nil
}

// Set stores the profile in cache for the provided TTL.
func (c *Cache) Set(ctx context.Context, telegramID int64, profile *domain.Profile, ttl time.Duration) error {
	if c == nil || c.kv == nil || profile == nil {
		return nil
	}

	payload, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile for cache: %w", err)
	}

	if err := c.kv.Set(ctx, cacheKey(telegramID), payload, ttl); err != nil {
		return fmt.Errorf("set cached profile: %w", err)
	}

	return nil
}

// Invalidate removes the cached profile entry if it exists.
func (c *Cache) Invalidate(ctx context.Context, telegramID int64) error {
	if c == nil || c.kv == nil {
		return nil
	}

	if err := c.kv.Delete(ctx, cacheKey(telegramID)); err != nil {
		return fmt.Errorf("delete cached profile: %w", err)
	}

	return nil
}

func cacheKey(telegramID int64) string {
	return fmt.Sprintf("profile:%d", telegramID)
}
