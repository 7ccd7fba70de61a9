// Package tasks runs work registered during a request after the response
// has already been handed back. The process stays alive on shutdown until
// every registered task settles (or the drain budget expires), which is what
// lets the proxy return a miss response before the cache store completes.
package tasks

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Scheduler owns the background task group. A task failure is logged and
// swallowed: by the time it settles the caller already has its response, so
// nothing may re-surface as a request error.
type Scheduler struct {
	logger  *logrus.Logger
	timeout time.Duration
	group   errgroup.Group
}

// NewScheduler builds a scheduler. timeout bounds each task's execution
// (0 = unbounded); tasks run under a context detached from any request.
func NewScheduler(logger *logrus.Logger, timeout time.Duration) *Scheduler {
	return &Scheduler{
		logger:  logger,
		timeout: timeout,
	}
}

// Register starts fn immediately on its own goroutine and returns without
// waiting. Registering never blocks or delays the response being produced
// on the calling path.
func (s *Scheduler) Register(name string, fn func(ctx context.Context) error) {
	s.group.Go(func() error {
		ctx := context.Background()
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}

		started := time.Now()
		err := fn(ctx)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"action":     "background_task",
				"task":       name,
				"elapsed_ms": time.Since(started).Milliseconds(),
			}).WithError(err).Warn("task_failed")
			return nil
		}

		s.logger.WithFields(logrus.Fields{
			"action":     "background_task",
			"task":       name,
			"elapsed_ms": time.Since(started).Milliseconds(),
		}).Debug("task_settled")
		return nil
	})
}

// Drain blocks until every registered task settles or ctx expires. A drain
// cut short is acceptable: interrupted cache stores self-heal on the next
// miss.
func (s *Scheduler) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		_ = s.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
