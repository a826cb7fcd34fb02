package battery

import (
	"context"
	"fmt"
	"math"

	"aigovern/domain/core"
	"aigovern/domain/dataset"
	"aigovern/domain/govtest"
	"aigovern/ports"
)

// FairnessAdapter computes group-conditioned outcome statistics between a
// privileged group and every other group drawn from a named sensitive
// attribute column. Score = 1 - worst disparity.
type FairnessAdapter struct{}

// NewFairnessAdapter creates the fairness test adapter
func NewFairnessAdapter() *FairnessAdapter {
	return &FairnessAdapter{}
}

// Name returns the registered test name
func (a *FairnessAdapter) Name() govtest.TestName {
	return govtest.TestFairness
}

// Description returns a human-readable description
func (a *FairnessAdapter) Description() string {
	return "Measures demographic parity and equal opportunity across sensitive attribute groups"
}

// fairnessParams is the typed view of the generic config map
type fairnessParams struct {
	sensitiveAttribute string
	privilegedGroup    string
	targetColumn       string
	featureColumns     []string
	parityThreshold    float64
	eqOppThreshold     float64
	hasEqOpp           bool
}

func (a *FairnessAdapter) decodeConfig(cfg govtest.TestConfig) (fairnessParams, error) {
	p := fairnessParams{
		sensitiveAttribute: cfg.Param("sensitive_attribute", ""),
		privilegedGroup:    cfg.Param("privileged_group", ""),
		targetColumn:       cfg.Param(paramTargetColumn, defaultTargetColumn),
		featureColumns:     stringsParam(cfg.Parameters[paramFeatureColumns]),
	}
	if p.sensitiveAttribute == "" {
		return p, fmt.Errorf("%w: sensitive_attribute parameter is required", core.ErrInvalidConfig)
	}
	p.parityThreshold = 0.1
	if v, ok := cfg.Threshold("demographic_parity"); ok {
		p.parityThreshold = v
	}
	p.eqOppThreshold, p.hasEqOpp = cfg.Threshold("equal_opportunity")
	return p, nil
}

// ExecuteTest runs the fairness battery against the model/dataset pair
func (a *FairnessAdapter) ExecuteTest(ctx context.Context, model ports.Model, ds *dataset.Table, cfg govtest.TestConfig) (govtest.TestResult, error) {
	params, err := a.decodeConfig(cfg)
	if err != nil {
		return govtest.TestResult{}, err
	}

	groups, err := ds.Categorical(params.sensitiveAttribute)
	if err != nil {
		return govtest.TestResult{}, err
	}

	cols, err := resolveColumns(ds, params.featureColumns, params.targetColumn, params.sensitiveAttribute)
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
	if len(preds) != len(groups) {
		return govtest.TestResult{}, fmt.Errorf("%w: %d predictions for %d rows",
			core.ErrInsufficientData, len(preds), len(groups))
	}

	byGroup := partitionByGroup(preds, groups)
	if len(byGroup) < 2 {
		return govtest.TestResult{}, fmt.Errorf("%w: need at least 2 groups in %q, found %d",
			core.ErrInsufficientData, params.sensitiveAttribute, len(byGroup))
	}

	privileged := params.privilegedGroup
	if privileged == "" {
		privileged = largestGroup(byGroup)
	}
	privPreds, ok := byGroup[privileged]
	if !ok {
		return govtest.TestResult{}, fmt.Errorf("%w: privileged group %q not present in column %q",
			core.ErrInvalidConfig, privileged, params.sensitiveAttribute)
	}
	privRate := positiveRate(privPreds)

	result := govtest.NewResult(a.Name())

	// Demographic parity: worst selection-rate gap against the privileged group
	maxParityGap := 0.0
	for name, groupPreds := range byGroup {
		if name == privileged {
			continue
		}
		gap := math.Abs(positiveRate(groupPreds) - privRate)
		if gap > maxParityGap {
			maxParityGap = gap
		}
		m := govtest.NewMetric("selection_rate_gap", gap, params.parityThreshold, govtest.AtMost).
			WithSlice(params.sensitiveAttribute, name)
		result.AddMetric(m)
	}
	result.AddMetric(govtest.NewMetric("demographic_parity_gap", maxParityGap, params.parityThreshold, govtest.AtMost))

	passed := maxParityGap <= params.parityThreshold

	// Equal opportunity: TPR gap, only when a target column exists
	maxEqOppGap, eqOppComputed := a.equalOpportunityGap(ds, params, preds, groups, privileged)
	if eqOppComputed {
		threshold := params.eqOppThreshold
		if !params.hasEqOpp {
			threshold = params.parityThreshold
		}
		result.AddMetric(govtest.NewMetric("equal_opportunity_gap", maxEqOppGap, threshold, govtest.AtMost))
		if params.hasEqOpp && maxEqOppGap > params.eqOppThreshold {
			passed = false
		}
	}

	result.Passed = passed
	result.SetScore(clamp01(1 - maxParityGap))
	result.Summary["sensitive_attribute"] = params.sensitiveAttribute
	result.Summary["privileged_group"] = privileged
	result.Summary["group_count"] = len(byGroup)
	result.Summary["sample_size"] = len(preds)
	result.Summary["demographic_parity_gap"] = maxParityGap
	return result, nil
}

// equalOpportunityGap computes the worst true-positive-rate gap against the
// privileged group. Returns computed=false when the dataset has no usable
// target column.
func (a *FairnessAdapter) equalOpportunityGap(ds *dataset.Table, params fairnessParams, preds []float64, groups []string, privileged string) (float64, bool) {
	targets, err := ds.Numeric(params.targetColumn)
	if err != nil {
		return 0, false
	}
	tpr := func(group string) (float64, bool) {
		positives, hits := 0, 0
		for i := range preds {
			if groups[i] != group || classify(targets[i]) != 1 {
				continue
			}
			positives++
			if classify(preds[i]) == 1 {
				hits++
			}
		}
		if positives == 0 {
			return 0, false
		}
		return float64(hits) / float64(positives), true
	}

	privTPR, ok := tpr(privileged)
	if !ok {
		return 0, false
	}
	maxGap, computed := 0.0, false
	seen := make(map[string]bool)
	for _, g := range groups {
		if g == privileged || seen[g] {
			continue
		}
		seen[g] = true
		groupTPR, ok := tpr(g)
		if !ok {
			continue
		}
		computed = true
		if gap := math.Abs(groupTPR - privTPR); gap > maxGap {
			maxGap = gap
		}
	}
	return maxGap, computed
}

// partitionByGroup splits predictions by sensitive attribute value
func partitionByGroup(preds []float64, groups []string) map[string][]float64 {
	out := make(map[string][]float64)
	for i, g := range groups {
		out[g] = append(out[g], preds[i])
	}
	return out
}

// largestGroup picks the most frequent group as the privileged default
func largestGroup(byGroup map[string][]float64) string {
	best, bestN := "", -1
	for name, preds := range byGroup {
		if len(preds) > bestN || (len(preds) == bestN && name < best) {
			best, bestN = name, len(preds)
		}
	}
	return best
}
