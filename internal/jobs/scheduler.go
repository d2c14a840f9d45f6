package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

type Scheduler interface {
	RegisterTasks() error
	Run()
	Shutdown()
}

type scheduler struct {
	asynqScheduler *asynq.Scheduler
	retentionDays  int
	log            *slog.Logger
}

// NewScheduler builds the cron-style registrar for recurring tasks.
func NewScheduler(redisOpt asynq.RedisConnOpt, retentionDays int, log *slog.Logger) Scheduler {
	return &scheduler{
		asynqScheduler: asynq.NewScheduler(redisOpt, nil),
		retentionDays:  retentionDays,
		log:            log,
	}
}

func (s *scheduler) RegisterTasks() error {
	if _, err := s.asynqScheduler.Register("*/30 * * * *", NewRolloverTask()); err != nil {
		return err
	}

	cleanupTask, err := NewLedgerCleanupTask(s.retentionDays)
	if err != nil {
		return err
	}

	if _, err := s.asynqScheduler.Register("0 4 * * *", cleanupTask); err != nil {
		return err
	}

	if s.log != nil {
		s.log.InfoContext(context.Background(), "scheduler: registered recurring tasks")
	}

	return nil
}

func (s *scheduler) Run() {
	if s.log != nil {
		s.log.InfoContext(context.Background(), "scheduler: starting")
	}

	go func() {
		if err := s.asynqScheduler.Run(); err != nil && s.log != nil {
			s.log.ErrorContext(context.Background(), "scheduler: run failed", "error", err)
		}
	}()
}

func (s *scheduler) Shutdown() {
	if s.log != nil {
		s.log.InfoContext(context.Background(), "scheduler: shutting down")
	}

	s.asynqScheduler.Shutdown()
}
