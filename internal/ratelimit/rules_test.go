package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glotok-bot/glotok/pkg/config"
)

func testRules() *Rules {
	return NewRules(config.RateLimitConfig{
		PerUser: config.RateLimitRule{Limit: 20, Window: "1m"},
		Global:  config.RateLimitRule{Limit: 1000, Window: "1m"},
		Commands: config.CommandLimits{
			Add:   config.RateLimitRule{Limit: 10, Window: "1m"},
			Today: config.RateLimitRule{Limit: 6, Window: "30s"},
			Stats: config.RateLimitRule{Limit: 3, Window: "1m"},
		},
		Whitelist: []int64{1001},
	})
}

func TestRulesWhitelist(t *testing.T) {
	rules := testRules()

	assert.True(t, rules.IsWhitelisted(1001))
	assert.False(t, rules.IsWhitelisted(42))
}

func TestRulesCommandLimits(t *testing.T) {
	rules := testRules()

	limit, window, err := rules.GetCommandLimit("add")
	require.NoError(t, err)
	assert.Equal(t, 10, limit)
	assert.Equal(t, time.Minute, window)

	limit, window, err = rules.GetCommandLimit("today")
	require.NoError(t, err)
	assert.Equal(t, 6, limit)
	assert.Equal(t, 30*time.Second, window)

	_, _, err = rules.GetCommandLimit("unknown")
	require.Error(t, err)
}

func TestRulesGlobalAndPerUser(t *testing.T) {
	rules := testRules()

	limit, window, err := rules.GetGlobalLimit()
	require.NoError(t, err)
	assert.Equal(t, 1000, limit)
	assert.Equal(t, time.Minute, window)

	limit, window, err = rules.GetPerUserLimit()
	require.NoError(t, err)
	assert.Equal(t, 20, limit)
	assert.Equal(t, time.Minute, window)
}

func TestRulesRejectsBadWindow(t *testing.T) {
	rules := NewRules(config.RateLimitConfig{
		PerUser: config.RateLimitRule{Limit: 5},
	})

	_, _, err := rules.GetPerUserLimit()
	require.Error(t, err)
}
