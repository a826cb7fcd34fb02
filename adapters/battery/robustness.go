package battery

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"aigovern/domain/dataset"
	"aigovern/domain/govtest"
	"aigovern/ports"
)

// RobustnessAdapter perturbs inputs with bounded Gaussian noise at several
// levels and measures accuracy degradation. Score = accuracy retained at
// the worst tested noise level.
type RobustnessAdapter struct{}

// NewRobustnessAdapter creates the robustness test adapter
func NewRobustnessAdapter() *RobustnessAdapter {
	return &RobustnessAdapter{}
}

// Name returns the registered test name
func (a *RobustnessAdapter) Name() govtest.TestName {
	return govtest.TestRobustness
}

// Description returns a human-readable description
func (a *RobustnessAdapter) Description() string {
	return "Measures prediction stability and accuracy under bounded input noise"
}

type robustnessParams struct {
	targetColumn   string
	featureColumns []string
	noiseLevels    []float64
	seed           int64
	minRobustness  float64
}

func (a *RobustnessAdapter) decodeConfig(cfg govtest.TestConfig) robustnessParams {
	p := robustnessParams{
		targetColumn:   cfg.Param(paramTargetColumn, defaultTargetColumn),
		featureColumns: stringsParam(cfg.Parameters[paramFeatureColumns]),
		noiseLevels:    cfg.FloatsParam("noise_levels", []float64{0.01, 0.05, 0.1}),
		seed:           int64(cfg.IntParam(paramSeed, 42)),
		minRobustness:  0.7,
	}
	if v, ok := cfg.Threshold("min_robustness"); ok {
		p.minRobustness = v
	}
	sort.Float64s(p.noiseLevels)
	return p
}

// ExecuteTest measures accuracy at each configured noise level
func (a *RobustnessAdapter) ExecuteTest(ctx context.Context, model ports.Model, ds *dataset.Table, cfg govtest.TestConfig) (govtest.TestResult, error) {
	params := a.decodeConfig(cfg)

	targets, err := ds.Numeric(params.targetColumn)
	if err != nil {
		return govtest.TestResult{}, err
	}
	cols, err := resolveColumns(ds, params.featureColumns, params.targetColumn)
	if err != nil {
		return govtest.TestResult{}, err
	}
	features, err := ds.Features(cols)
	if err != nil {
		return govtest.TestResult{}, err
	}

	basePreds, err := model.Predict(features)
	if err != nil {
		return govtest.TestResult{}, fmt.Errorf("prediction failed: %w", err)
	}
	baseline, err := accuracy(basePreds, targets)
	if err != nil {
		return govtest.TestResult{}, err
	}

	// Noise scales with each column's own spread so levels are comparable
	// across differently-scaled features.
	scales := columnStddevs(features, len(cols))

	result := govtest.NewResult(a.Name())
	rng := rand.New(rand.NewSource(params.seed))
	worstAccuracy := baseline
	worstStability := 1.0
	for _, level := range params.noiseLevels {
		noisy := addNoise(features, scales, level, rng)
		noisyPreds, err := model.Predict(noisy)
		if err != nil {
			return govtest.TestResult{}, fmt.Errorf("prediction on noisy data failed: %w", err)
		}
		acc, err := accuracy(noisyPreds, targets)
		if err != nil {
			return govtest.TestResult{}, err
		}
		stability := labelAgreement(basePreds, noisyPreds)
		if acc < worstAccuracy {
			worstAccuracy = acc
		}
		if stability < worstStability {
			worstStability = stability
		}
		levelStr := strconv.FormatFloat(level, 'g', -1, 64)
		result.AddMetric(govtest.NewMetric("accuracy_under_noise", acc, params.minRobustness, govtest.AtLeast).
			WithSlice("noise_level", levelStr))
		result.AddMetric(govtest.NewMetric("prediction_stability", stability, params.minRobustness, govtest.AtLeast).
			WithSlice("noise_level", levelStr))
	}

	result.AddMetric(govtest.NewMetric("worst_case_accuracy", worstAccuracy, params.minRobustness, govtest.AtLeast))
	result.Passed = worstAccuracy >= params.minRobustness
	result.SetScore(clamp01(worstAccuracy))
	result.Summary["baseline_accuracy"] = baseline
	result.Summary["noise_levels"] = params.noiseLevels
	result.Summary["worst_case_accuracy"] = worstAccuracy
	result.Summary["worst_case_stability"] = worstStability
	result.Summary["sample_size"] = len(targets)
	return result, nil
}

// columnStddevs computes per-column standard deviations of the feature matrix
func columnStddevs(features [][]float64, nCols int) []float64 {
	scales := make([]float64, nCols)
	col := make([]float64, len(features))
	for c := 0; c < nCols; c++ {
		for r := range features {
			col[r] = features[r][c]
		}
		sd := stat.StdDev(col, nil)
		if sd <= 0 {
			sd = 1
		}
		scales[c] = sd
	}
	return scales
}

// addNoise returns a noisy copy of the feature matrix; the input is never
// modified.
func addNoise(features [][]float64, scales []float64, level float64, rng *rand.Rand) [][]float64 {
	out := make([][]float64, len(features))
	for r := range features {
		row := make([]float64, len(features[r]))
		for c := range row {
			row[c] = features[r][c] + rng.NormFloat64()*level*scales[c]
		}
		out[r] = row
	}
	return out
}

// labelAgreement is the fraction of samples whose predicted label is
// unchanged by the perturbation
func labelAgreement(base, noisy []float64) float64 {
	if len(base) == 0 || len(base) != len(noisy) {
		return 0
	}
	same := 0
	for i := range base {
		if classify(base[i]) == classify(noisy[i]) {
			same++
		}
	}
	return float64(same) / float64(len(base))
}
