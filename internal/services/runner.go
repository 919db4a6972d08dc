package services

import (
	"context"
	"fmt"
	"sync"

	"climate-odds/pkg/logging"
	"climate-odds/pkg/metrics"
)

// TaskRunner schedules a detached unit of work. Submit returns as soon as
// the task is scheduled; nothing awaits the task afterwards.
type TaskRunner interface {
	Submit(name string, task func(ctx context.Context))
}

// GoroutineRunner runs each task on its own goroutine with a recover
// boundary. There is no bound on concurrently in-flight tasks and no
// cancellation once scheduled: a task runs to completion or failure. Both
// are explicit scale limitations, not backpressure.
type GoroutineRunner struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	wg      sync.WaitGroup
}

// NewGoroutineRunner creates a goroutine-per-task runner.
func NewGoroutineRunner(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *GoroutineRunner {
	return &GoroutineRunner{
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Submit schedules the task and returns immediately. The task receives a
// fresh background context: its lifetime is independent of the request that
// scheduled it.
func (r *GoroutineRunner) Submit(name string, task func(ctx context.Context)) {
	r.wg.Add(1)
	r.metrics.JobsInFlight.Inc()

	go func() {
		defer r.wg.Done()
		defer r.metrics.JobsInFlight.Dec()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error(context.Background(), "[RUNNER_PANIC] Detached task panicked", logging.Fields{
					"task": name,
				}, fmt.Errorf("panic: %v", rec))
			}
		}()

		task(context.Background())
	}()
}

// Wait blocks until every submitted task has finished. Used by the CLI and
// by tests; the server does not wait on in-flight jobs at shutdown, which is
// the accepted process-termination gap.
func (r *GoroutineRunner) Wait() {
	r.wg.Wait()
}
