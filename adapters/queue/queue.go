// Package queue is an in-process stand-in for the external job queue: a
// buffered channel of run ids drained by a bounded worker pool. Each
// worker invocation owns exactly one run; parallelism exists only across
// runs.
package queue

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"aigovern/app"
	"aigovern/domain/core"
	"aigovern/internal"
	"aigovern/ports"
)

// Queue dispatches enqueued runs to dispatcher workers
type Queue struct {
	dispatcher *app.Dispatcher
	logger     *internal.Logger
	jobs       chan core.RunID
	workers    int
}

var _ ports.JobQueue = (*Queue)(nil)

// New creates a queue with the given buffer size and worker count
func New(dispatcher *app.Dispatcher, workers, buffer int, logger *internal.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	if buffer < 1 {
		buffer = 64
	}
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &Queue{
		dispatcher: dispatcher,
		logger:     logger,
		jobs:       make(chan core.RunID, buffer),
		workers:    workers,
	}
}

// Enqueue submits a run id for asynchronous execution. The run identifier
// is the only payload; workers load all other state from storage.
func (q *Queue) Enqueue(ctx context.Context, runID core.RunID) error {
	select {
	case q.jobs <- runID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("job queue full, cannot enqueue run %s", runID)
	}
}

// Run drains the queue with a bounded worker pool until the context is
// cancelled. Dispatch errors are logged, not propagated: a failed run is
// already recorded as failed by the dispatcher's retry policy.
func (q *Queue) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < q.workers; w++ {
		worker := w
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case runID := <-q.jobs:
					q.logger.Debug("worker %d picked up run %s", worker, runID)
					if _, err := q.dispatcher.ExecuteTestRun(ctx, runID); err != nil {
						q.logger.Error("worker %d: run %s: %v", worker, runID, err)
					}
				}
			}
		})
	}
	return g.Wait()
}
