// Package model turns model asset records into callable scorers. The real
// serving layer is external; this adapter covers models registered with
// scoring metadata so the battery can call them in-process.
package model

import (
	"fmt"
	"math"

	"aigovern/domain/asset"
	"aigovern/ports"
)

// MetadataResolver builds a scorer from the asset's registered metadata.
// Supported metadata shape:
//
//	{"scorer": "linear", "weights": [...], "bias": 0.0}
//
// Weights align positionally with the feature columns the plan configures.
type MetadataResolver struct{}

// NewMetadataResolver creates a metadata-driven model resolver
func NewMetadataResolver() *MetadataResolver {
	return &MetadataResolver{}
}

var _ ports.ModelResolver = (*MetadataResolver)(nil)

// Resolve builds a callable model from the asset record
func (r *MetadataResolver) Resolve(a asset.ModelAsset) (ports.Model, error) {
	scorer, _ := a.Metadata["scorer"].(string)
	switch scorer {
	case "", "linear":
		weights, err := floats(a.Metadata["weights"])
		if err != nil {
			return nil, fmt.Errorf("model %s: invalid weights metadata: %w", a.ID, err)
		}
		if len(weights) == 0 {
			return nil, fmt.Errorf("model %s has no scoring metadata", a.ID)
		}
		bias, _ := a.Metadata["bias"].(float64)
		return &LinearModel{modelType: a.ModelType, weights: weights, bias: bias}, nil
	default:
		return nil, fmt.Errorf("model %s: unsupported scorer %q", a.ID, scorer)
	}
}

// LinearModel scores rows as sigmoid(w.x + b). It satisfies both the
// prediction and confidence interfaces.
type LinearModel struct {
	modelType asset.ModelType
	weights   []float64
	bias      float64
}

var (
	_ ports.Model            = (*LinearModel)(nil)
	_ ports.ConfidenceScorer = (*LinearModel)(nil)
)

// Type reports the model's input modality
func (m *LinearModel) Type() asset.ModelType { return m.modelType }

// Predict returns one probability per feature row
func (m *LinearModel) Predict(features [][]float64) ([]float64, error) {
	out := make([]float64, len(features))
	for i, row := range features {
		if len(row) != len(m.weights) {
			return nil, fmt.Errorf("row %d has %d features, model expects %d",
				i, len(row), len(m.weights))
		}
		z := m.bias
		for j, v := range row {
			z += m.weights[j] * v
		}
		out[i] = 1.0 / (1.0 + math.Exp(-z))
	}
	return out, nil
}

// PredictConfidence reports distance from the decision boundary scaled to [0,1]
func (m *LinearModel) PredictConfidence(features [][]float64) ([]float64, error) {
	preds, err := m.Predict(features)
	if err != nil {
		return nil, err
	}
	conf := make([]float64, len(preds))
	for i, p := range preds {
		conf[i] = math.Abs(p-0.5) * 2
	}
	return conf, nil
}

// floats coerces JSONB-decoded metadata into a []float64
func floats(raw any) ([]float64, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []float64:
		return v, nil
	case []any:
		out := make([]float64, len(v))
		for i, e := range v {
			f, ok := e.(float64)
			if !ok {
				return nil, fmt.Errorf("element %d is not numeric", i)
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected type %T", raw)
	}
}
