// Package ratelimit guards the bot against command floods. Checks run per
// user and per command with a sliding window, backed by Redis with an
// in-memory fallback.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Result reports one limit evaluation: whether the request may proceed,
// how many requests remain in the window, and when the window resets.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter evaluates a sliding-window limit for a key.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// ErrLimitExceeded is returned alongside the Result when the key is over
// its limit.
var ErrLimitExceeded = errors.New("rate limit exceeded")
