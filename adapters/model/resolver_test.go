package model

import (
	"math"
	"testing"

	"aigovern/domain/asset"
	"aigovern/domain/core"
)

func TestResolve_LinearModel(t *testing.T) {
	a := asset.ModelAsset{
		ID:        core.AssetID(core.NewID()),
		ModelType: asset.ModelTabular,
		Metadata: map[string]any{
			"scorer":  "linear",
			"weights": []any{2.0, -1.0},
			"bias":    0.5,
		},
	}

	m, err := NewMetadataResolver().Resolve(a)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if m.Type() != asset.ModelTabular {
		t.Errorf("Type = %s", m.Type())
	}

	preds, err := m.Predict([][]float64{{1, 1}, {-2, 0}})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	// sigmoid(2*1 - 1*1 + 0.5) = sigmoid(1.5)
	want := 1.0 / (1.0 + math.Exp(-1.5))
	if math.Abs(preds[0]-want) > 1e-9 {
		t.Errorf("preds[0] = %v, want %v", preds[0], want)
	}
	if preds[1] >= 0.5 {
		t.Errorf("preds[1] = %v, want below 0.5", preds[1])
	}
}

func TestResolve_ConfidenceScores(t *testing.T) {
	a := asset.ModelAsset{
		ID:       core.AssetID(core.NewID()),
		Metadata: map[string]any{"weights": []any{10.0}},
	}
	m, err := NewMetadataResolver().Resolve(a)
	if err != nil {
		t.Fatal(err)
	}
	scorer, ok := m.(interface {
		PredictConfidence(features [][]float64) ([]float64, error)
	})
	if !ok {
		t.Fatal("linear model should expose confidence scores")
	}
	conf, err := scorer.PredictConfidence([][]float64{{5}, {0}})
	if err != nil {
		t.Fatal(err)
	}
	if conf[0] < 0.99 {
		t.Errorf("far from boundary: conf = %v", conf[0])
	}
	if conf[1] > 0.01 {
		t.Errorf("on the boundary: conf = %v", conf[1])
	}
}

func TestResolve_RejectsBadMetadata(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]any
	}{
		{"no metadata", nil},
		{"empty weights", map[string]any{"weights": []any{}}},
		{"non-numeric weights", map[string]any{"weights": []any{"a"}}},
		{"unsupported scorer", map[string]any{"scorer": "gbdt", "weights": []any{1.0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := asset.ModelAsset{ID: core.AssetID(core.NewID()), Metadata: tt.metadata}
			if _, err := NewMetadataResolver().Resolve(a); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestPredict_DimensionMismatch(t *testing.T) {
	m := &LinearModel{modelType: asset.ModelTabular, weights: []float64{1, 2}}
	if _, err := m.Predict([][]float64{{1}}); err == nil {
		t.Error("row narrower than the weight vector should error")
	}
}
