package ports

import (
	"context"

	"aigovern/domain/dataset"
	"aigovern/domain/govtest"
)

// TestAdapter is the contract every test family implements: a pure
// function of (model, dataset, config) producing a TestResult. Adapters
// must not mutate the model or dataset, and an adapter that cannot
// complete returns an error rather than a silent pass.
type TestAdapter interface {
	Name() govtest.TestName
	Description() string
	ExecuteTest(ctx context.Context, model Model, ds *dataset.Table, config govtest.TestConfig) (govtest.TestResult, error)
}
