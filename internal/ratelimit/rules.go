package ratelimit

import (
	"errors"
	"fmt"
	"time"

	"github.com/glotok-bot/glotok/pkg/config"
)

// Rules resolves configured rate limit buckets. Windows are parsed
// lazily so a bad duration string surfaces as an error at check time
// rather than a silent zero.
type Rules struct {
	config config.RateLimitConfig
}

// NewRules wraps the rate limit section of the configuration.
func NewRules(cfg config.RateLimitConfig) *Rules {
	return &Rules{config: cfg}
}

// IsWhitelisted reports whether userID bypasses rate limits entirely.
func (r *Rules) IsWhitelisted(userID int64) bool {
	for _, id := range r.config.Whitelist {
		if id == userID {
			return true
		}
	}
	return false
}

// GetCommandLimit returns the bucket for one of the throttled commands.
func (r *Rules) GetCommandLimit(command string) (int, time.Duration, error) {
	var rule config.RateLimitRule

	switch command {
	case "add":
		rule = r.config.Commands.Add
	case "today":
		rule = r.config.Commands.Today
	case "stats":
		rule = r.config.Commands.Stats
	default:
		return 0, 0, fmt.Errorf("no rate limit rule for command %q", command)
	}

	return parseRule(rule)
}

// GetGlobalLimit returns the bucket shared by all users.
func (r *Rules) GetGlobalLimit() (int, time.Duration, error) {
	return parseRule(r.config.Global)
}

// GetPerUserLimit returns the bucket applied to each user separately.
func (r *Rules) GetPerUserLimit() (int, time.Duration, error) {
	return parseRule(r.config.PerUser)
}

func parseRule(rule config.RateLimitRule) (int, time.Duration, error) {
	if rule.Window == "" {
		return 0, 0, errors.New("rate limit window is not set")
	}

	window, err := time.ParseDuration(rule.Window)
	if err != nil {
		return 0, 0, fmt.Errorf("parse rate limit window: %w", err)
	}

	return rule.Limit, window, nil
}
