package govtest

import (
	"time"

	"aigovern/domain/asset"
	"aigovern/domain/core"
)

// TestName identifies a registered governance test
type TestName string

// Registered test names. The registry maps these to adapter implementations
// at startup; there is no runtime discovery.
const (
	TestFairness       TestName = "fairness_test"
	TestExplainability TestName = "explainability_test"
	TestRobustness     TestName = "robustness_test"
	TestPrivacy        TestName = "privacy_test"
	TestAccuracy       TestName = "accuracy_test"
)

// ResultStatus classifies how a single test execution ended
type ResultStatus string

const (
	ResultCompleted ResultStatus = "completed" // adapter ran to completion (pass or fail)
	ResultError     ResultStatus = "error"     // adapter could not complete
)

// Direction is the comparison applied between a metric value and its threshold
type Direction string

const (
	AtMost  Direction = "<=" // value must not exceed threshold (e.g. disparity, leakage risk)
	AtLeast Direction = ">=" // value must meet or exceed threshold (e.g. accuracy)
)

// Satisfies reports whether value meets threshold under the direction
func (d Direction) Satisfies(value, threshold float64) bool {
	switch d {
	case AtMost:
		return value <= threshold
	case AtLeast:
		return value >= threshold
	default:
		return false
	}
}

// TestConfig is the per-test slice of a plan's configuration handed to an
// adapter. Parameters and thresholds are heterogeneous per test family;
// each adapter decodes them into its own typed struct at the boundary.
type TestConfig struct {
	TestName   TestName           `json:"test_name"`
	Parameters map[string]any     `json:"parameters,omitempty"`
	Thresholds map[string]float64 `json:"thresholds,omitempty"`
	Timeout    time.Duration      `json:"timeout,omitempty"`
}

// Param returns a string parameter with a default
func (c TestConfig) Param(key, def string) string {
	if v, ok := c.Parameters[key].(string); ok && v != "" {
		return v
	}
	return def
}

// FloatParam returns a numeric parameter with a default
func (c TestConfig) FloatParam(key string, def float64) float64 {
	switch v := c.Parameters[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

// IntParam returns an integer parameter with a default
func (c TestConfig) IntParam(key string, def int) int {
	switch v := c.Parameters[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// FloatsParam returns a []float64 parameter with a default
func (c TestConfig) FloatsParam(key string, def []float64) []float64 {
	switch v := c.Parameters[key].(type) {
	case []float64:
		return v
	case []any:
		out := make([]float64, 0, len(v))
		for _, e := range v {
			switch f := e.(type) {
			case float64:
				out = append(out, f)
			case int:
				out = append(out, float64(f))
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}

// Threshold returns a named threshold and whether it was configured
func (c TestConfig) Threshold(key string) (float64, bool) {
	v, ok := c.Thresholds[key]
	return v, ok
}

// Metric is a single named numeric fact produced under a test result.
// Passed is derived from Value, Threshold and Direction at construction and
// must never contradict them.
type Metric struct {
	ID         core.MetricID `json:"id"`
	Name       string        `json:"name"`
	Value      float64       `json:"value"`
	Threshold  float64       `json:"threshold"`
	Direction  Direction     `json:"direction"`
	Passed     bool          `json:"passed"`
	SliceKey   string        `json:"slice_key,omitempty"`
	SliceValue string        `json:"slice_value,omitempty"`

	ContainsPII        bool                     `json:"contains_pii"`
	DataClassification asset.DataClassification `json:"data_classification"`
}

// NewMetric builds a metric with Passed derived from the threshold comparison
func NewMetric(name string, value, threshold float64, dir Direction) Metric {
	return Metric{
		ID:        core.MetricID(core.NewID()),
		Name:      name,
		Value:     value,
		Threshold: threshold,
		Direction: dir,
		Passed:    dir.Satisfies(value, threshold),
	}
}

// WithSlice attaches a subgroup breakdown key/value to the metric
func (m Metric) WithSlice(key, value string) Metric {
	m.SliceKey = key
	m.SliceValue = value
	return m
}

// TestResult is the outcome of one test within a run
type TestResult struct {
	ID       core.ResultID `json:"id"`
	RunID    core.RunID    `json:"run_id"`
	TestName TestName      `json:"test_name"`
	Status   ResultStatus  `json:"status"`
	Passed   bool          `json:"passed"`
	// Score is nil when the test produced no numeric score (e.g. adapter
	// error, purely informational test); summaries exclude such results
	// from the mean rather than counting them as zero.
	Score    *float64       `json:"score,omitempty"`
	Summary  map[string]any `json:"summary,omitempty"`
	Metrics  []Metric       `json:"metrics,omitempty"`
	Duration time.Duration  `json:"duration"`

	ContainsPII        bool                     `json:"contains_pii"`
	DataClassification asset.DataClassification `json:"data_classification"`

	CreatedAt core.Timestamp `json:"created_at"`
}

// NewResult builds a completed result for a test
func NewResult(name TestName) TestResult {
	return TestResult{
		ID:        core.ResultID(core.NewID()),
		TestName:  name,
		Status:    ResultCompleted,
		Summary:   make(map[string]any),
		CreatedAt: core.Now(),
	}
}

// NewErrorResult builds the failed result recorded when an adapter cannot
// complete. It never reports passed.
func NewErrorResult(name TestName, err error) TestResult {
	r := NewResult(name)
	r.Status = ResultError
	r.Passed = false
	r.Summary["error"] = err.Error()
	return r
}

// SetScore records the numeric score
func (r *TestResult) SetScore(score float64) {
	r.Score = &score
	r.Summary["score"] = score
}

// AddMetric appends a metric to the result
func (r *TestResult) AddMetric(m Metric) {
	r.Metrics = append(r.Metrics, m)
}

// Inherit propagates run-level sensitivity tags onto the result and all of
// its metrics. Classification may only escalate.
func (r *TestResult) Inherit(containsPII bool, class asset.DataClassification) {
	r.ContainsPII = r.ContainsPII || containsPII
	r.DataClassification = asset.Escalate(r.DataClassification, class)
	for i := range r.Metrics {
		r.Metrics[i].ContainsPII = r.Metrics[i].ContainsPII || containsPII
		r.Metrics[i].DataClassification = asset.Escalate(r.Metrics[i].DataClassification, class)
	}
}

// Summary aggregates the results of one run
type Summary struct {
	TotalTests  int      `json:"total_tests"`
	PassedTests int      `json:"passed_tests"`
	FailedTests int      `json:"failed_tests"`
	// OverallScore is the mean of individual scores; nil when no result
	// carried a numeric score.
	OverallScore *float64 `json:"overall_score,omitempty"`
}
