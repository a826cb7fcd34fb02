package battery

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"aigovern/domain/core"
	"aigovern/domain/dataset"
	"aigovern/domain/govtest"
	"aigovern/ports"
)

// PrivacyAdapter probes for data leakage and membership-inference signal.
// It compares the model's confidence distribution on real samples against a
// structure-broken copy (columns independently shuffled), and flags
// suspiciously high correlation between any input column and the output.
// Score = 1 - estimated leakage risk.
type PrivacyAdapter struct{}

// NewPrivacyAdapter creates the privacy test adapter
func NewPrivacyAdapter() *PrivacyAdapter {
	return &PrivacyAdapter{}
}

// Name returns the registered test name
func (a *PrivacyAdapter) Name() govtest.TestName {
	return govtest.TestPrivacy
}

// Description returns a human-readable description
func (a *PrivacyAdapter) Description() string {
	return "Estimates membership-inference and input/output leakage risk"
}

type privacyParams struct {
	targetColumn    string
	featureColumns  []string
	seed            int64
	maxLeakageRisk  float64
	corrSuspect     float64 // |correlation| above this counts toward leakage
}

func (a *PrivacyAdapter) decodeConfig(cfg govtest.TestConfig) privacyParams {
	p := privacyParams{
		targetColumn:   cfg.Param(paramTargetColumn, defaultTargetColumn),
		featureColumns: stringsParam(cfg.Parameters[paramFeatureColumns]),
		seed:           int64(cfg.IntParam(paramSeed, 42)),
		maxLeakageRisk: 0.3,
		corrSuspect:    cfg.FloatParam("correlation_suspect", 0.95),
	}
	if v, ok := cfg.Threshold("max_leakage_risk"); ok {
		p.maxLeakageRisk = v
	}
	return p
}

// ExecuteTest estimates leakage risk for the model/dataset pair
func (a *PrivacyAdapter) ExecuteTest(ctx context.Context, model ports.Model, ds *dataset.Table, cfg govtest.TestConfig) (govtest.TestResult, error) {
	params := a.decodeConfig(cfg)

	cols, err := resolveColumns(ds, params.featureColumns, params.targetColumn)
	if err != nil {
		return govtest.TestResult{}, err
	}
	features, err := ds.Features(cols)
	if err != nil {
		return govtest.TestResult{}, err
	}
	if len(features) < 10 {
		return govtest.TestResult{}, fmt.Errorf("%w: privacy probe needs at least 10 rows, got %d",
			core.ErrInsufficientData, len(features))
	}

	// Membership-inference signal: confidence gap between real samples
	// (held-in) and a joint-structure-broken copy (held-out-like).
	heldIn, err := confidences(model, features)
	if err != nil {
		return govtest.TestResult{}, fmt.Errorf("confidence scoring failed: %w", err)
	}
	rng := rand.New(rand.NewSource(params.seed))
	shuffled := shuffleColumns(features, rng)
	heldOut, err := confidences(model, shuffled)
	if err != nil {
		return govtest.TestResult{}, fmt.Errorf("confidence scoring on shuffled data failed: %w", err)
	}

	meanIn, _ := stats.Mean(heldIn)
	meanOut, _ := stats.Mean(heldOut)
	medianIn, _ := stats.Median(heldIn)
	medianOut, _ := stats.Median(heldOut)
	// Use the larger of mean and median gap so a skewed confidence
	// distribution cannot hide the signal.
	inferenceGap := math.Max(math.Max(meanIn-meanOut, medianIn-medianOut), 0)

	// Input/output correlation probe
	preds, err := model.Predict(features)
	if err != nil {
		return govtest.TestResult{}, fmt.Errorf("prediction failed: %w", err)
	}
	maxCorr, maxCorrColumn := maxAbsCorrelation(features, preds, cols)

	corrRisk := 0.0
	if maxCorr > params.corrSuspect {
		corrRisk = (maxCorr - params.corrSuspect) / math.Max(1-params.corrSuspect, 1e-9)
	}
	leakageRisk := clamp01(math.Max(inferenceGap, corrRisk))

	result := govtest.NewResult(a.Name())
	result.AddMetric(govtest.NewMetric("membership_inference_gap", inferenceGap, params.maxLeakageRisk, govtest.AtMost))
	result.AddMetric(govtest.NewMetric("max_input_output_correlation", maxCorr, params.corrSuspect, govtest.AtMost).
		WithSlice("feature", maxCorrColumn))
	result.AddMetric(govtest.NewMetric("leakage_risk", leakageRisk, params.maxLeakageRisk, govtest.AtMost))

	result.Passed = leakageRisk <= params.maxLeakageRisk
	result.SetScore(clamp01(1 - leakageRisk))
	result.Summary["leakage_risk"] = leakageRisk
	result.Summary["membership_inference_gap"] = inferenceGap
	result.Summary["max_input_output_correlation"] = maxCorr
	result.Summary["suspect_feature"] = maxCorrColumn
	result.Summary["sample_size"] = len(features)
	return result, nil
}

// shuffleColumns permutes each column independently, preserving marginals
// while destroying the joint structure the model may have memorized. The
// input matrix is never modified.
func shuffleColumns(features [][]float64, rng *rand.Rand) [][]float64 {
	n := len(features)
	nCols := len(features[0])
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, nCols)
	}
	for c := 0; c < nCols; c++ {
		perm := rng.Perm(n)
		for r := 0; r < n; r++ {
			out[r][c] = features[perm[r]][c]
		}
	}
	return out
}

// maxAbsCorrelation finds the feature column most correlated with the
// model's output
func maxAbsCorrelation(features [][]float64, preds []float64, cols []string) (float64, string) {
	maxCorr, maxName := 0.0, ""
	col := make([]float64, len(features))
	for c, name := range cols {
		for r := range features {
			col[r] = features[r][c]
		}
		corr := stat.Correlation(col, preds, nil)
		if math.IsNaN(corr) {
			continue
		}
		if abs := math.Abs(corr); abs > maxCorr {
			maxCorr, maxName = abs, name
		}
	}
	return maxCorr, maxName
}
