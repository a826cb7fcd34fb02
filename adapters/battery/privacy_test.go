package battery

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"aigovern/domain/core"
	"aigovern/domain/dataset"
	"aigovern/domain/govtest"
	"aigovern/internal/testkit"
)

func TestPrivacyAdapter_NonMemorizingModelPasses(t *testing.T) {
	ds := testkit.SyntheticCreditTable(100, 5, 0)

	// Constant output: zero confidence gap, no input/output correlation
	constant := &testkit.FuncModel{Fn: func(features [][]float64) ([]float64, error) {
		out := make([]float64, len(features))
		for i := range out {
			out[i] = 0.5
		}
		return out, nil
	}}

	result, err := NewPrivacyAdapter().ExecuteTest(context.Background(), constant, ds,
		govtest.TestConfig{TestName: govtest.TestPrivacy})
	if err != nil {
		t.Fatalf("ExecuteTest: %v", err)
	}

	if !result.Passed {
		t.Errorf("constant model should pass, risk = %v", result.Summary["leakage_risk"])
	}
	if result.Score == nil || *result.Score < 0.99 {
		t.Errorf("score = %v, want ~1", result.Score)
	}
}

func TestPrivacyAdapter_MemorizingModelFails(t *testing.T) {
	n := 50
	x := make([]float64, n)
	y := make([]float64, n)
	targets := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i)
		y[i] = float64(i) * 2
		targets[i] = float64(i % 2)
	}
	tbl := dataset.NewTable("memorized")
	if err := tbl.AddNumeric("x", x); err != nil {
		t.Fatal(err)
	}
	if err := tbl.AddNumeric("y", y); err != nil {
		t.Fatal(err)
	}
	if err := tbl.AddNumeric("target", targets); err != nil {
		t.Fatal(err)
	}

	// The model recognizes exact training pairs; independently shuffled
	// columns break the pairing, so held-out-like rows look unfamiliar.
	seen := make(map[[2]float64]bool, n)
	for i := 0; i < n; i++ {
		seen[[2]float64{x[i], y[i]}] = true
	}
	memorizer := &testkit.FuncModel{Fn: func(features [][]float64) ([]float64, error) {
		out := make([]float64, len(features))
		for i, row := range features {
			if seen[[2]float64{row[0], row[1]}] {
				out[i] = 0.99
			} else {
				out[i] = 0.5
			}
		}
		return out, nil
	}}

	result, err := NewPrivacyAdapter().ExecuteTest(context.Background(), memorizer, tbl,
		govtest.TestConfig{TestName: govtest.TestPrivacy})
	if err != nil {
		t.Fatalf("ExecuteTest: %v", err)
	}

	if result.Passed {
		t.Errorf("memorizing model should fail, risk = %v", result.Summary["leakage_risk"])
	}
	var gapMetric bool
	for _, m := range result.Metrics {
		if m.Name == "membership_inference_gap" {
			gapMetric = true
			if m.Passed {
				t.Errorf("inference gap metric should fail: %+v", m)
			}
		}
	}
	if !gapMetric {
		t.Error("membership_inference_gap metric missing")
	}
}

func TestPrivacyAdapter_RequiresMinimumRows(t *testing.T) {
	small := testkit.SyntheticCreditTable(5, 5, 0)
	_, err := NewPrivacyAdapter().ExecuteTest(context.Background(),
		&testkit.ThresholdModel{Threshold: 0.5}, small, govtest.TestConfig{TestName: govtest.TestPrivacy})
	if !errors.Is(err, core.ErrInsufficientData) {
		t.Fatalf("small dataset: err = %v", err)
	}
}

func TestPrivacyAdapter_ModelErrorPropagates(t *testing.T) {
	ds := testkit.SyntheticCreditTable(50, 5, 0)
	broken := &testkit.FuncModel{Fn: func(features [][]float64) ([]float64, error) {
		return nil, fmt.Errorf("model endpoint unavailable")
	}}
	_, err := NewPrivacyAdapter().ExecuteTest(context.Background(), broken, ds,
		govtest.TestConfig{TestName: govtest.TestPrivacy})
	if err == nil {
		t.Fatal("model error should propagate to the executor")
	}
}
