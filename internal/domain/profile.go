// Package domain holds the core hydration-tracking entities.
package domain

import "time"

// Limits enforced at the configuration boundary. The policy engine assumes
// every profile it receives already satisfies them.
const (
	MinDailyGoalML = 800
	MaxDailyGoalML = 5000
	MinGlassML     = 50
	MaxGlassML     = 1000
)

// Profile represents a tracked user and their reminder configuration.
type Profile struct {
	ID                    int64
	TelegramID            int64
	Timezone              string
	Units                 string // ml|oz
	DailyGoalML           int
	WakeAt                TimeOfDay
	SleepAt               TimeOfDay
	GlassML               int
	SmartRemindersEnabled bool
	MuteUntil             *time.Time
	CreatedAt             time.Time
}

// MutedAt reports whether reminders are muted at the given instant.
func (p *Profile) MutedAt(now time.Time) bool {
	if p == nil || p.MuteUntil == nil {
		return false
	}
	return p.MuteUntil.After(now)
}

// DefaultProfile returns a new profile with the onboarding defaults applied.
func DefaultProfile(telegramID int64, timezone string, now time.Time) *Profile {
	return &Profile{
		TelegramID:            telegramID,
		Timezone:              timezone,
		Units:                 "ml",
		DailyGoalML:           2000,
		WakeAt:                TimeOfDay{Hour: 8},
		SleepAt:               TimeOfDay{Hour: 23},
		GlassML:               250,
		SmartRemindersEnabled: true,
		CreatedAt:             now,
	}
}
