package battery

import (
	"context"
	"testing"

	"aigovern/domain/dataset"
	"aigovern/domain/govtest"
	"aigovern/internal/testkit"
)

func TestRobustnessAdapter_StableModelPasses(t *testing.T) {
	// Samples sit far from the decision boundary relative to their spread,
	// so bounded noise cannot flip labels.
	x := []float64{10, -10, 10, -10, 10, -10, 10, -10}
	targets := []float64{1, 0, 1, 0, 1, 0, 1, 0}
	ds := fixedTable(t, x, targets)
	model := &testkit.FuncModel{Fn: func(features [][]float64) ([]float64, error) {
		out := make([]float64, len(features))
		for i, row := range features {
			if row[0] > 0 {
				out[i] = 1
			}
		}
		return out, nil
	}}

	result, err := NewRobustnessAdapter().ExecuteTest(context.Background(), model, ds,
		govtest.TestConfig{TestName: govtest.TestRobustness})
	if err != nil {
		t.Fatalf("ExecuteTest: %v", err)
	}

	if !result.Passed {
		t.Errorf("stable model should pass, worst accuracy = %v", result.Summary["worst_case_accuracy"])
	}
	// 2 metrics per noise level (3 defaults) plus the worst-case aggregate
	if len(result.Metrics) != 7 {
		t.Errorf("metric count = %d, want 7", len(result.Metrics))
	}
	var worstSeen bool
	for _, m := range result.Metrics {
		if m.Name == "worst_case_accuracy" {
			worstSeen = true
			if m.Value < 0.9 {
				t.Errorf("worst_case_accuracy = %v", m.Value)
			}
		}
		if m.Name == "accuracy_under_noise" && m.SliceKey != "noise_level" {
			t.Errorf("per-level metric missing noise_level slice: %+v", m)
		}
	}
	if !worstSeen {
		t.Error("worst_case_accuracy metric missing")
	}
}

func TestRobustnessAdapter_FragileModelFails(t *testing.T) {
	// The model memorizes the exact training rows; any perturbation breaks it.
	x := []float64{1, 2, 3, 4, 5, 6}
	targets := []float64{1, 0, 1, 0, 1, 0}
	ds := fixedTable(t, x, targets)

	known := make(map[float64]float64, len(x))
	for i, v := range x {
		known[v] = targets[i]
	}
	model := &testkit.FuncModel{Fn: func(features [][]float64) ([]float64, error) {
		out := make([]float64, len(features))
		for i, row := range features {
			if label, ok := known[row[0]]; ok {
				out[i] = label
			} else {
				out[i] = 1 - known[x[i%len(x)]] // wrong answer off the memorized points
			}
		}
		return out, nil
	}}

	result, err := NewRobustnessAdapter().ExecuteTest(context.Background(), model, ds,
		govtest.TestConfig{TestName: govtest.TestRobustness})
	if err != nil {
		t.Fatalf("ExecuteTest: %v", err)
	}

	if result.Passed {
		t.Errorf("fragile model should fail, worst accuracy = %v", result.Summary["worst_case_accuracy"])
	}
	if result.Score == nil || *result.Score > 0.2 {
		t.Errorf("score = %v, want near zero", result.Score)
	}
	if result.Summary["baseline_accuracy"] != 1.0 {
		t.Errorf("baseline accuracy = %v, want 1.0", result.Summary["baseline_accuracy"])
	}
}

func TestRobustnessAdapter_ConfiguredNoiseLevels(t *testing.T) {
	ds := testkit.SyntheticCreditTable(100, 11, 0)
	model := &testkit.ThresholdModel{Threshold: 0.5}
	cfg := govtest.TestConfig{
		TestName:   govtest.TestRobustness,
		Parameters: map[string]any{"noise_levels": []any{0.02}},
		Thresholds: map[string]float64{"min_robustness": 0.5},
	}

	result, err := NewRobustnessAdapter().ExecuteTest(context.Background(), model, ds, cfg)
	if err != nil {
		t.Fatalf("ExecuteTest: %v", err)
	}
	if len(result.Metrics) != 3 {
		t.Errorf("metric count = %d, want 3 for a single noise level", len(result.Metrics))
	}
}

func TestRobustnessAdapter_EmptyDataset(t *testing.T) {
	empty := dataset.NewTable("empty")
	_, err := NewRobustnessAdapter().ExecuteTest(context.Background(),
		&testkit.ThresholdModel{Threshold: 0.5}, empty, govtest.TestConfig{TestName: govtest.TestRobustness})
	if err == nil {
		t.Fatal("empty dataset should error")
	}
}
