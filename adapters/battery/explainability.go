package battery

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/montanaflynn/stats"

	"aigovern/domain/dataset"
	"aigovern/domain/govtest"
	"aigovern/ports"
)

// ExplainabilityAdapter ranks features by permutation importance: the mean
// accuracy drop when a feature column is shuffled. Score reflects how
// concentrated importance is in the top features. Informational unless a
// min_importance threshold is configured.
type ExplainabilityAdapter struct{}

// NewExplainabilityAdapter creates the explainability test adapter
func NewExplainabilityAdapter() *ExplainabilityAdapter {
	return &ExplainabilityAdapter{}
}

// Name returns the registered test name
func (a *ExplainabilityAdapter) Name() govtest.TestName {
	return govtest.TestExplainability
}

// Description returns a human-readable description
func (a *ExplainabilityAdapter) Description() string {
	return "Computes permutation feature importance and importance concentration"
}

type explainabilityParams struct {
	targetColumn   string
	featureColumns []string
	nRepeats       int
	topK           int
	seed           int64
	minImportance  float64
	hasMin         bool
}

func (a *ExplainabilityAdapter) decodeConfig(cfg govtest.TestConfig) explainabilityParams {
	p := explainabilityParams{
		targetColumn:   cfg.Param(paramTargetColumn, defaultTargetColumn),
		featureColumns: stringsParam(cfg.Parameters[paramFeatureColumns]),
		nRepeats:       cfg.IntParam("n_repeats", 5),
		topK:           cfg.IntParam("top_k", 3),
		seed:           int64(cfg.IntParam(paramSeed, 42)),
	}
	if p.nRepeats < 1 {
		p.nRepeats = 1
	}
	p.minImportance, p.hasMin = cfg.Threshold("min_importance")
	return p
}

// ExecuteTest computes permutation importance for every feature column
func (a *ExplainabilityAdapter) ExecuteTest(ctx context.Context, model ports.Model, ds *dataset.Table, cfg govtest.TestConfig) (govtest.TestResult, error) {
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

	preds, err := model.Predict(features)
	if err != nil {
		return govtest.TestResult{}, fmt.Errorf("prediction failed: %w", err)
	}
	baseline, err := accuracy(preds, targets)
	if err != nil {
		return govtest.TestResult{}, err
	}

	rng := rand.New(rand.NewSource(params.seed))
	importances := make([]float64, len(cols))
	stabilities := make([]float64, len(cols))
	for c := range cols {
		drops := make([]float64, params.nRepeats)
		for rep := 0; rep < params.nRepeats; rep++ {
			permuted := permuteColumn(features, c, rng)
			permPreds, err := model.Predict(permuted)
			if err != nil {
				return govtest.TestResult{}, fmt.Errorf("prediction on permuted data failed: %w", err)
			}
			permAcc, err := accuracy(permPreds, targets)
			if err != nil {
				return govtest.TestResult{}, err
			}
			drops[rep] = baseline - permAcc
		}
		mean, _ := stats.Mean(drops)
		sd, _ := stats.StandardDeviation(drops)
		importances[c] = mean
		// Stability: low variance across repeats relative to the drop itself
		if mean > 1e-9 {
			stabilities[c] = clamp01(1 - sd/mean)
		} else {
			stabilities[c] = 1
		}
	}

	concentration := topKShare(importances, params.topK)
	meanStability, _ := stats.Mean(stabilities)

	result := govtest.NewResult(a.Name())
	maxImportance := 0.0
	for c, name := range cols {
		threshold := 0.0
		if params.hasMin {
			threshold = params.minImportance
		}
		result.AddMetric(govtest.NewMetric("permutation_importance", importances[c], threshold, govtest.AtLeast).
			WithSlice("feature", name))
		if importances[c] > maxImportance {
			maxImportance = importances[c]
		}
	}
	result.AddMetric(govtest.NewMetric("importance_concentration", concentration, 0, govtest.AtLeast))
	result.AddMetric(govtest.NewMetric("importance_stability", meanStability, 0, govtest.AtLeast))

	// Informational by default: only a configured minimum importance can fail it
	if params.hasMin {
		result.Passed = maxImportance >= params.minImportance
	} else {
		result.Passed = true
	}
	result.SetScore(clamp01(concentration))
	result.Summary["baseline_accuracy"] = baseline
	result.Summary["n_repeats"] = params.nRepeats
	result.Summary["feature_count"] = len(cols)
	result.Summary["max_importance"] = maxImportance
	result.Summary["importance_stability"] = meanStability
	result.Summary["top_features"] = topFeatures(cols, importances, params.topK)
	return result, nil
}

// permuteColumn returns a copy of the feature matrix with one column
// shuffled. The input matrix is never modified.
func permuteColumn(features [][]float64, col int, rng *rand.Rand) [][]float64 {
	n := len(features)
	perm := rng.Perm(n)
	out := make([][]float64, n)
	for i := range features {
		row := make([]float64, len(features[i]))
		copy(row, features[i])
		row[col] = features[perm[i]][col]
		out[i] = row
	}
	return out
}

// topKShare is the fraction of total (non-negative) importance captured by
// the k most important features
func topKShare(importances []float64, k int) float64 {
	clipped := make([]float64, len(importances))
	total := 0.0
	for i, v := range importances {
		if v > 0 {
			clipped[i] = v
			total += v
		}
	}
	if total <= 0 {
		return 0
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(clipped)))
	if k > len(clipped) {
		k = len(clipped)
	}
	top := 0.0
	for i := 0; i < k; i++ {
		top += clipped[i]
	}
	return top / total
}

// topFeatures lists the k highest-importance feature names for the summary
func topFeatures(cols []string, importances []float64, k int) []string {
	idx := make([]int, len(cols))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return importances[idx[i]] > importances[idx[j]] })
	if k > len(idx) {
		k = len(idx)
	}
	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = cols[idx[i]]
	}
	return out
}
