// Package worker runs the asynq consumer that drains durability tasks
// enqueued by the broker and the REST layer.
package worker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
)

type Server struct {
	server   *asynq.Server
	handlers *Handlers
}

func NewServer(redisOpt asynq.RedisClientOpt, handlers *Handlers) *Server {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"default": 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retry, _ := asynq.GetRetryCount(ctx)
			slog.Error("background task failed",
				"task_type", task.Type(),
				"retry", retry,
				"err", err,
			)
		}),
	})
	return &Server{server: srv, handlers: handlers}
}

// Run blocks until Shutdown is called. Meant for its own goroutine.
func (s *Server) Run() error {
	mux := asynq.NewServeMux()
	s.handlers.Register(mux)

	slog.Info("worker server starting")
	if err := s.server.Run(mux); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown() {
	slog.Info("worker server shutting down")
	s.server.Shutdown()
}
