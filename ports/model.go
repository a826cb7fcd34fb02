package ports

import (
	"context"

	"aigovern/domain/asset"
	"aigovern/domain/core"
)

// Model is the prediction interface a registered model must expose to the
// test engine. Implementations must be safe for concurrent read-only use;
// adapters never mutate the model.
type Model interface {
	// Type reports the model's input modality
	Type() asset.ModelType
	// Predict returns one prediction per feature row
	Predict(features [][]float64) ([]float64, error)
}

// ConfidenceScorer is implemented by models that expose per-sample
// confidence scores; the privacy adapter prefers it when available.
type ConfidenceScorer interface {
	PredictConfidence(features [][]float64) ([]float64, error)
}

// ModelResolver turns a model asset record into a callable model. The
// actual model serving layer is external; this port is its boundary.
type ModelResolver interface {
	Resolve(model asset.ModelAsset) (Model, error)
}

// AssetRepository reads model and dataset asset records owned by the
// external asset registry.
type AssetRepository interface {
	GetModelAsset(ctx context.Context, id core.AssetID) (*asset.ModelAsset, error)
	GetDatasetAsset(ctx context.Context, id core.AssetID) (*asset.DatasetAsset, error)
}
