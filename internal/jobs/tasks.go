package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeRollover      = "nudge:rollover"
	TaskTypeLedgerCleanup = "ledger:cleanup"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// LedgerCleanupPayload tells the cleanup handler how much history to keep.
type LedgerCleanupPayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewRolloverTask builds the periodic sweep that re-arms reminder
// entries lost to crashes or delivery failures.
func NewRolloverTask() *asynq.Task {
	return asynq.NewTask(TaskTypeRollover, nil, asynq.Queue(QueueDefault))
}

// NewLedgerCleanupTask builds the daily intake history cleanup task.
func NewLedgerCleanupTask(retentionDays int) (*asynq.Task, error) {
	payload, err := json.Marshal(LedgerCleanupPayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeLedgerCleanup, payload, asynq.Queue(QueueLow)), nil
}
