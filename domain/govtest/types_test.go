package govtest

import (
	"errors"
	"testing"

	"aigovern/domain/asset"
)

func TestDirection_Satisfies(t *testing.T) {
	tests := []struct {
		name      string
		dir       Direction
		value     float64
		threshold float64
		want      bool
	}{
		{"at most under", AtMost, 0.05, 0.1, true},
		{"at most equal", AtMost, 0.1, 0.1, true},
		{"at most over", AtMost, 0.15, 0.1, false},
		{"at least over", AtLeast, 0.9, 0.8, true},
		{"at least equal", AtLeast, 0.8, 0.8, true},
		{"at least under", AtLeast, 0.75, 0.8, false},
		{"unknown direction", Direction("=="), 1, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dir.Satisfies(tt.value, tt.threshold); got != tt.want {
				t.Errorf("Satisfies(%v, %v) = %t, want %t", tt.value, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestNewMetric_DerivesPassed(t *testing.T) {
	m := NewMetric("demographic_parity_gap", 0.04, 0.1, AtMost)
	if !m.Passed {
		t.Error("gap 0.04 against threshold 0.1 should pass")
	}
	if m.ID.String() == "" {
		t.Error("metric should get an id")
	}

	m2 := NewMetric("accuracy", 0.75, 0.8, AtLeast)
	if m2.Passed {
		t.Error("accuracy 0.75 against threshold 0.8 should fail")
	}
}

func TestMetric_WithSlice(t *testing.T) {
	m := NewMetric("selection_rate_gap", 0.02, 0.1, AtMost).WithSlice("gender", "female")
	if m.SliceKey != "gender" || m.SliceValue != "female" {
		t.Errorf("slice = %s/%s", m.SliceKey, m.SliceValue)
	}
}

func TestNewErrorResult(t *testing.T) {
	r := NewErrorResult(TestRobustness, errors.New("column missing"))
	if r.Status != ResultError {
		t.Errorf("status = %s, want error", r.Status)
	}
	if r.Passed {
		t.Error("error result must not report passed")
	}
	if r.Score != nil {
		t.Error("error result must not carry a score")
	}
	if r.Summary["error"] != "column missing" {
		t.Errorf("summary error = %v", r.Summary["error"])
	}
}

func TestResult_SetScore(t *testing.T) {
	r := NewResult(TestFairness)
	r.SetScore(0.96)
	if r.Score == nil || *r.Score != 0.96 {
		t.Fatalf("score = %v", r.Score)
	}
	if r.Summary["score"] != 0.96 {
		t.Errorf("summary score = %v", r.Summary["score"])
	}
}

func TestResult_Inherit(t *testing.T) {
	r := NewResult(TestPrivacy)
	r.DataClassification = asset.ClassificationPublic
	r.AddMetric(NewMetric("leakage_risk", 0.1, 0.3, AtMost))

	r.Inherit(true, asset.ClassificationRestricted)

	if !r.ContainsPII {
		t.Error("ContainsPII should propagate to the result")
	}
	if r.DataClassification != asset.ClassificationRestricted {
		t.Errorf("classification = %s, want restricted", r.DataClassification)
	}
	m := r.Metrics[0]
	if !m.ContainsPII || m.DataClassification != asset.ClassificationRestricted {
		t.Errorf("metric tags not propagated: pii=%t class=%s", m.ContainsPII, m.DataClassification)
	}
}

func TestResult_InheritNeverDowngrades(t *testing.T) {
	r := NewResult(TestPrivacy)
	r.DataClassification = asset.ClassificationRestricted
	r.ContainsPII = true

	r.Inherit(false, asset.ClassificationPublic)

	if r.DataClassification != asset.ClassificationRestricted {
		t.Errorf("classification downgraded to %s", r.DataClassification)
	}
	if !r.ContainsPII {
		t.Error("ContainsPII flag must be sticky")
	}
}

func TestConfig_ParamAccessors(t *testing.T) {
	cfg := TestConfig{
		Parameters: map[string]any{
			"sensitive_attribute": "group",
			"n_repeats":           float64(7), // decoded from JSON
			"noise_levels":        []any{0.01, 0.05},
		},
		Thresholds: map[string]float64{"demographic_parity": 0.08},
	}

	if got := cfg.Param("sensitive_attribute", ""); got != "group" {
		t.Errorf("Param = %q", got)
	}
	if got := cfg.Param("missing", "fallback"); got != "fallback" {
		t.Errorf("Param default = %q", got)
	}
	if got := cfg.IntParam("n_repeats", 5); got != 7 {
		t.Errorf("IntParam = %d", got)
	}
	if got := cfg.FloatsParam("noise_levels", nil); len(got) != 2 || got[1] != 0.05 {
		t.Errorf("FloatsParam = %v", got)
	}
	if v, ok := cfg.Threshold("demographic_parity"); !ok || v != 0.08 {
		t.Errorf("Threshold = %v %t", v, ok)
	}
	if _, ok := cfg.Threshold("absent"); ok {
		t.Error("absent threshold reported as configured")
	}
}
