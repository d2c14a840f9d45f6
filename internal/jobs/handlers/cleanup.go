package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/glotok-bot/glotok/internal/jobs"
	"github.com/glotok-bot/glotok/internal/repository"
)

const defaultRetentionDays = 365

// LedgerCleanupHandler trims old intake rows so the ledger doesn't grow
// without bound. Stats only look back a week; a year of history is plenty.
type LedgerCleanupHandler struct {
	intakes repository.IntakeRepository
	log     *slog.Logger
}

func NewLedgerCleanupHandler(intakes repository.IntakeRepository, log *slog.Logger) *LedgerCleanupHandler {
	if log == nil {
		log = slog.Default()
	}

	return &LedgerCleanupHandler{intakes: intakes, log: log}
}

func (h *LedgerCleanupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.LedgerCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.log.ErrorContext(ctx, "cleanup: failed to decode payload",
			slog.String("task_type", t.Type()), slog.Any("error", err))
		return err
	}

	retention := payload.RetentionDays
	if retention <= 0 {
		retention = defaultRetentionDays
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retention)
	removed, err := h.intakes.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		h.log.ErrorContext(ctx, "cleanup: failed to delete old intake rows", slog.Any("error", err))
		return err
	}

	h.log.InfoContext(ctx, "cleanup: removed old intake rows",
		slog.Int64("rows_removed", removed), slog.Time("cutoff", cutoff))

	return nil
}
