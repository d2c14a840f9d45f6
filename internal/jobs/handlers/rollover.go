package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/glotok-bot/glotok/internal/repository"
	"github.com/glotok-bot/glotok/internal/schedule"
	"github.com/glotok-bot/glotok/internal/scheduler"
)

// RolloverHandler re-arms reminder entries for users who should have
// one queued but don't. Entries go missing when a delivery crashed after
// the claim or when Redis lost the queue.
type RolloverHandler struct {
	profiles repository.ProfileRepository
	store    schedule.Store
	rearmer  *scheduler.Rearmer
	log      *slog.Logger
}

func NewRolloverHandler(
	profiles repository.ProfileRepository,
	store schedule.Store,
	rearmer *scheduler.Rearmer,
	log *slog.Logger,
) *RolloverHandler {
	if log == nil {
		log = slog.Default()
	}

	return &RolloverHandler{
		profiles: profiles,
		store:    store,
		rearmer:  rearmer,
		log:      log,
	}
}

func (h *RolloverHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	enabled, err := h.profiles.ListSmartEnabled(ctx)
	if err != nil {
		h.log.ErrorContext(ctx, "rollover: failed to list profiles", slog.Any("error", err))
		return err
	}

	rearmed := 0
	for _, profile := range enabled {
		entry, err := h.store.Pending(ctx, profile.TelegramID)
		if err != nil {
			h.log.WarnContext(ctx, "rollover: failed to read pending entry",
				slog.Int64("user_id", profile.TelegramID), slog.Any("error", err))
			continue
		}
		if entry != nil {
			continue
		}

		if err := h.rearmer.Rearm(ctx, profile.TelegramID); err != nil {
			if errors.Is(err, scheduler.ErrRearmLocked) {
				continue
			}
			h.log.WarnContext(ctx, "rollover: re-arm failed",
				slog.Int64("user_id", profile.TelegramID), slog.Any("error", err))
			continue
		}
		rearmed++
	}

	h.log.InfoContext(ctx, "rollover: completed",
		slog.Int("profiles_checked", len(enabled)), slog.Int("rearmed", rearmed))

	return nil
}
