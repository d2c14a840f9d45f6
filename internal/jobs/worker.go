package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Worker consumes background tasks: the periodic reminder rollover and
// the intake ledger cleanup.
type Worker interface {
	RegisterHandler(taskType string, handler asynq.Handler)
	Run() error
	Shutdown()
}

type worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *slog.Logger
}

var _ Worker = (*worker)(nil)

// workerConcurrency caps concurrent task handlers. Rollover fans out over
// profiles internally, so a small pool is enough.
const workerConcurrency = 10

// NewWorker builds a Worker backed by an asynq server with the given
// queue priorities.
func NewWorker(redisOpt asynq.RedisConnOpt, queues map[string]int, log *slog.Logger) Worker {
	return &worker{
		server: asynq.NewServer(redisOpt, asynq.Config{
			Queues:         queues,
			Concurrency:    workerConcurrency,
			RetryDelayFunc: asynq.DefaultRetryDelayFunc,
		}),
		mux: asynq.NewServeMux(),
		log: log,
	}
}

// RegisterHandler binds a task type to its handler.
func (w *worker) RegisterHandler(taskType string, handler asynq.Handler) {
	w.mux.Handle(taskType, handler)
}

// Run blocks processing tasks until Shutdown is called.
func (w *worker) Run() error {
	if w.log != nil {
		w.log.InfoContext(context.Background(), "jobs worker: starting processing loop")
	}

	return w.server.Run(w.mux)
}

// Shutdown drains in-flight tasks and stops the server.
func (w *worker) Shutdown() {
	if w.log != nil {
		w.log.InfoContext(context.Background(), "jobs worker: shutting down")
	}

	w.server.Shutdown()
}
