package state

// Onboarding runs goal, then window, then glass. Each step may also go
// one step back so the user can correct an answer.
var validTransitions = map[State]map[State]bool{
	StateIdle: {
		StateOnboardingGoal: true,
	},
	StateOnboardingGoal: {
		StateOnboardingWindow: true,
		StateIdle:             true,
	},
	StateOnboardingWindow: {
		StateOnboardingGlass: true,
		StateOnboardingGoal:  true,
	},
	StateOnboardingGlass: {
		StateIdle: true,
	},
}

// IsTransitionAllowed reports whether the dialog may move from one
// state to another. Idle and error are reachable from anywhere, so
// /cancel and failure recovery always work.
func IsTransitionAllowed(from, to State) bool {
	if to == StateError || to == StateIdle {
		return true
	}

	return validTransitions[from][to]
}
