package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransitionAllowed(t *testing.T) {
	testCases := []struct {
		name     string
		from     State
		to       State
		expected bool
	}{
		{name: "idle starts onboarding", from: StateIdle, to: StateOnboardingGoal, expected: true},
		{name: "goal forward to window", from: StateOnboardingGoal, to: StateOnboardingWindow, expected: true},
		{name: "goal aborts to idle", from: StateOnboardingGoal, to: StateIdle, expected: true},
		{name: "window forward to glass", from: StateOnboardingWindow, to: StateOnboardingGlass, expected: true},
		{name: "window back to goal", from: StateOnboardingWindow, to: StateOnboardingGoal, expected: true},
		{name: "glass finishes to idle", from: StateOnboardingGlass, to: StateIdle, expected: true},
		{name: "cannot skip to glass", from: StateIdle, to: StateOnboardingGlass, expected: false},
		{name: "cannot rewind from glass", from: StateOnboardingGlass, to: StateOnboardingWindow, expected: false},
		{name: "unknown state cannot start onboarding", from: State("unknown"), to: StateOnboardingGoal, expected: false},
		{name: "idle reachable from anywhere", from: State("whatever"), to: StateIdle, expected: true},
		{name: "error reachable from anywhere", from: StateOnboardingGlass, to: StateError, expected: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsTransitionAllowed(tc.from, tc.to))
		})
	}
}
