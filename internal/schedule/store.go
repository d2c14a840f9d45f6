// Package schedule persists the one-job-per-user reminder queue. Jobs
// survive restarts: the dispatch loop polls the store instead of holding
// timers in memory.
package schedule

import (
	"context"
	"time"
)

// Entry is one pending reminder. Each user has at most one entry; writing
// a new one replaces whatever was queued before.
type Entry struct {
	UserID   int64     `json:"user_id"`
	FireAt   time.Time `json:"fire_at"`
	DoseML   int       `json:"dose_ml"`
	Attempts int       `json:"attempts"`
}

// Store defines the persistence contract for the reminder queue.
type Store interface {
	// Schedule inserts or replaces the user's pending reminder.
	Schedule(ctx context.Context, entry *Entry) error
	// Cancel removes the user's pending reminder, if any.
	Cancel(ctx context.Context, userID int64) error
	// Pending returns the user's queued entry or nil when none exists.
	Pending(ctx context.Context, userID int64) (*Entry, error)
	// PopDue atomically claims up to limit entries due at or before now.
	// Each claimed entry is removed from the queue; concurrent callers
	// never receive the same entry.
	PopDue(ctx context.Context, now time.Time, limit int) ([]*Entry, error)
	// Len reports how many reminders are queued in total.
	Len(ctx context.Context) (int64, error)
}
