package battery

import (
	"context"
	"fmt"

	"aigovern/domain/dataset"
	"aigovern/domain/govtest"
	"aigovern/ports"
)

// PerformanceAdapter measures baseline predictive accuracy against the
// labelled target column. Score = accuracy.
type PerformanceAdapter struct{}

// NewPerformanceAdapter creates the baseline accuracy test adapter
func NewPerformanceAdapter() *PerformanceAdapter {
	return &PerformanceAdapter{}
}

// Name returns the registered test name
func (a *PerformanceAdapter) Name() govtest.TestName {
	return govtest.TestAccuracy
}

// Description returns a human-readable description
func (a *PerformanceAdapter) Description() string {
	return "Measures baseline accuracy, precision and recall on the labelled dataset"
}

// ExecuteTest computes accuracy, precision and recall
func (a *PerformanceAdapter) ExecuteTest(ctx context.Context, model ports.Model, ds *dataset.Table, cfg govtest.TestConfig) (govtest.TestResult, error) {
	targetColumn := cfg.Param(paramTargetColumn, defaultTargetColumn)

	targets, err := ds.Numeric(targetColumn)
	if err != nil {
		return govtest.TestResult{}, err
	}
	cols, err := resolveColumns(ds, stringsParam(cfg.Parameters[paramFeatureColumns]), targetColumn)
	if err != nil {
		return govtest.TestResult{}, err
	}
	features, err := ds.Features(cols)
	if err != nil {
		return govtest.TestResult{}, err
	}
	preds, err := model.Predict(features)
	if err != nil {
		return govtest.TestResult{}, fmt.Errorf("prediction failed: %w", err)
	}

	acc, err := accuracy(preds, targets)
	if err != nil {
		return govtest.TestResult{}, err
	}
	precision, recall := precisionRecall(preds, targets)

	minAccuracy := 0.8
	if v, ok := cfg.Threshold("accuracy"); ok {
		minAccuracy = v
	}

	result := govtest.NewResult(a.Name())
	result.AddMetric(govtest.NewMetric("accuracy", acc, minAccuracy, govtest.AtLeast))
	if minPrecision, ok := cfg.Threshold("precision"); ok {
		result.AddMetric(govtest.NewMetric("precision", precision, minPrecision, govtest.AtLeast))
	} else {
		result.AddMetric(govtest.NewMetric("precision", precision, 0, govtest.AtLeast))
	}
	if minRecall, ok := cfg.Threshold("recall"); ok {
		result.AddMetric(govtest.NewMetric("recall", recall, minRecall, govtest.AtLeast))
	} else {
		result.AddMetric(govtest.NewMetric("recall", recall, 0, govtest.AtLeast))
	}

	passed := acc >= minAccuracy
	for _, m := range result.Metrics {
		if !m.Passed {
			passed = false
		}
	}
	result.Passed = passed
	result.SetScore(clamp01(acc))
	result.Summary["accuracy"] = acc
	result.Summary["precision"] = precision
	result.Summary["recall"] = recall
	result.Summary["sample_size"] = len(targets)
	return result, nil
}

// precisionRecall computes binary precision and recall with labels
// thresholded at 0.5. Degenerate denominators yield zero.
func precisionRecall(preds, targets []float64) (float64, float64) {
	var tp, fp, fn float64
	for i := range preds {
		p, t := classify(preds[i]), classify(targets[i])
		switch {
		case p == 1 && t == 1:
			tp++
		case p == 1 && t == 0:
			fp++
		case p == 0 && t == 1:
			fn++
		}
	}
	precision, recall := 0.0, 0.0
	if tp+fp > 0 {
		precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		recall = tp / (tp + fn)
	}
	return precision, recall
}
