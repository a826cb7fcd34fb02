package ports

import (
	"context"

	"aigovern/domain/govtest"
	"aigovern/domain/run"
)

// CompletionNotifier delivers the completion notification for a finished
// run to an external channel (email, webhook). Delivery failures are
// logged, never allowed to fail the run.
type CompletionNotifier interface {
	NotifyCompletion(ctx context.Context, r *run.TestRun, summary govtest.Summary) error
}
