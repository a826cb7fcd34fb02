// Package battery implements the pluggable governance test adapters:
// fairness, explainability, robustness, privacy, and baseline accuracy.
// Every adapter is a pure function of (model, dataset, config); nothing
// here mutates its inputs or touches storage.
package battery

import (
	"fmt"
	"math"

	"aigovern/domain/core"
	"aigovern/domain/dataset"
	"aigovern/ports"
)

const (
	defaultTargetColumn = "target"

	paramTargetColumn   = "target_column"
	paramFeatureColumns = "feature_columns"
	paramSeed           = "seed"
)

// resolveColumns determines the feature columns for a test: the explicit
// feature_columns parameter when present, otherwise every numeric column
// except the target and any excluded columns.
func resolveColumns(ds *dataset.Table, explicit []string, exclude ...string) ([]string, error) {
	if len(explicit) > 0 {
		for _, name := range explicit {
			if !ds.HasColumn(name) {
				return nil, core.NewMissingColumnError(name)
			}
		}
		return explicit, nil
	}
	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[name] = true
	}
	var cols []string
	for _, name := range ds.NumericColumns() {
		if !skip[name] {
			cols = append(cols, name)
		}
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: no numeric feature columns", core.ErrInsufficientData)
	}
	return cols, nil
}

// stringsParam extracts a []string parameter from a generic config map
func stringsParam(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// classify thresholds a prediction score into a 0/1 label
func classify(score float64) float64 {
	if score >= 0.5 {
		return 1
	}
	return 0
}

// accuracy computes the fraction of predictions matching binary targets
func accuracy(preds, targets []float64) (float64, error) {
	if len(preds) != len(targets) || len(preds) == 0 {
		return 0, fmt.Errorf("%w: %d predictions vs %d targets",
			core.ErrInsufficientData, len(preds), len(targets))
	}
	correct := 0
	for i := range preds {
		if classify(preds[i]) == classify(targets[i]) {
			correct++
		}
	}
	return float64(correct) / float64(len(preds)), nil
}

// positiveRate is the fraction of predictions classified positive
func positiveRate(preds []float64) float64 {
	if len(preds) == 0 {
		return 0
	}
	pos := 0
	for _, p := range preds {
		if classify(p) == 1 {
			pos++
		}
	}
	return float64(pos) / float64(len(preds))
}

// confidences derives per-sample confidence scores. Models exposing a
// confidence interface are preferred; otherwise distance from the 0.5
// decision boundary is used.
func confidences(model ports.Model, features [][]float64) ([]float64, error) {
	if scorer, ok := model.(ports.ConfidenceScorer); ok {
		return scorer.PredictConfidence(features)
	}
	preds, err := model.Predict(features)
	if err != nil {
		return nil, err
	}
	conf := make([]float64, len(preds))
	for i, p := range preds {
		conf[i] = math.Min(1, math.Abs(p-0.5)*2)
	}
	return conf, nil
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
