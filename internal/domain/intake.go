package domain

import "time"

// IntakeSource tags how an intake event was recorded.
type IntakeSource string

const (
	// SourceManual marks amounts typed by the user.
	SourceManual IntakeSource = "manual"
	// SourceQuick marks amounts logged through inline quick-add buttons.
	SourceQuick IntakeSource = "quick"
	// SourceNudge marks amounts logged by accepting a reminder suggestion.
	SourceNudge IntakeSource = "nudge"
)

// IntakeEvent is a single immutable ledger row. Amounts may be negative
// to correct earlier entries; zero amounts are rejected at the boundary.
type IntakeEvent struct {
	ID        int64
	UserID    int64
	Timestamp time.Time // UTC, assigned at insert time
	AmountML  int
	Source    IntakeSource
}

// DailyTotal aggregates consumption for one local day.
type DailyTotal struct {
	Day      time.Time
	AmountML int
}
