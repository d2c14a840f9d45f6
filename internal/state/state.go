package state

import "time"

// State names one step of the onboarding dialog.
type State string

const (
	// StateIdle means no dialog is in progress.
	StateIdle State = "idle"
	// StateOnboardingGoal waits for the daily goal in millilitres.
	StateOnboardingGoal State = "onboarding_goal"
	// StateOnboardingWindow waits for the waking window, e.g. "08:00-23:00".
	StateOnboardingWindow State = "onboarding_window"
	// StateOnboardingGlass waits for the preferred glass size.
	StateOnboardingGlass State = "onboarding_glass"
	// StateError marks a dialog that needs recovery via /cancel.
	StateError State = "error"
)

// UserState is the stored dialog position of one Telegram user, with
// the answers collected so far in Context.
type UserState struct {
	UserID       int64                  `json:"user_id"`
	CurrentState State                  `json:"current_state"`
	Context      map[string]interface{} `json:"context"`
	UpdatedAt    time.Time              `json:"updated_at"`
}
