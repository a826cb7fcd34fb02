package ports

import (
	"context"

	"aigovern/domain/core"
)

// JobQueue is the boundary to the asynchronous task-dispatch mechanism.
// The only required input is the run identifier; all other state is loaded
// from storage by the worker.
type JobQueue interface {
	Enqueue(ctx context.Context, runID core.RunID) error
}
