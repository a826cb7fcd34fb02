package ports

import (
	"aigovern/domain/asset"
	"aigovern/domain/dataset"
)

// DatasetResolver loads the tabular contents of a dataset asset
type DatasetResolver interface {
	Resolve(ds asset.DatasetAsset) (*dataset.Table, error)
}
