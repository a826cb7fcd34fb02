// Package compliance joins test outcomes to regulatory clauses. It is a
// read-only consumer of the evidence the engine produces: it never writes
// runs, results or metrics, only evaluates them against clause rules.
package compliance

import (
	"context"

	"aigovern/domain/core"
	"aigovern/domain/govtest"
	"aigovern/domain/run"
	"aigovern/ports"
)

// EvidenceRule decides whether a test result satisfies a clause.
// PassThreshold applies to the result's score; MetricRequirements name
// metrics that must individually pass.
type EvidenceRule struct {
	PassThreshold      *float64 `json:"pass_threshold,omitempty"`
	MetricRequirements []string `json:"metric_requirements,omitempty"`
}

// ClauseMapping links one test family to one regulatory clause
type ClauseMapping struct {
	TestName  govtest.TestName `json:"test_name"`
	Framework string           `json:"framework"`
	Clause    string           `json:"clause"`
	Rationale string           `json:"rationale"`
	Rule      EvidenceRule     `json:"rule"`
}

// ClauseStatus is the evaluated standing of one clause for a run
type ClauseStatus struct {
	Mapping   ClauseMapping `json:"mapping"`
	Satisfied bool          `json:"satisfied"`
	Detail    string        `json:"detail"`
}

// Report is the compliance view of a single run
type Report struct {
	RunID            string         `json:"run_id"`
	RunStatus        run.Status     `json:"run_status"`
	Clauses          []ClauseStatus `json:"clauses"`
	SatisfiedClauses int            `json:"satisfied_clauses"`
}

// Mapper evaluates clause mappings against a run's persisted results
type Mapper struct {
	runs     ports.RunRepository
	results  ports.ResultRepository
	mappings []ClauseMapping
}

// NewMapper creates a mapper over the evidence store
func NewMapper(runs ports.RunRepository, results ports.ResultRepository, mappings []ClauseMapping) *Mapper {
	if mappings == nil {
		mappings = DefaultMappings()
	}
	return &Mapper{runs: runs, results: results, mappings: mappings}
}

// DefaultMappings covers the registered test families with EU AI Act and
// GDPR clause associations.
func DefaultMappings() []ClauseMapping {
	parity := 0.8
	robust := 0.7
	privacy := 0.7
	return []ClauseMapping{
		{
			TestName:  govtest.TestFairness,
			Framework: "EU AI Act",
			Clause:    "Art. 10(2)(f)",
			Rationale: "Examination of possible biases in data governance requires demographic parity evidence across protected groups.",
			Rule:      EvidenceRule{PassThreshold: &parity, MetricRequirements: []string{"demographic_parity_gap"}},
		},
		{
			TestName:  govtest.TestRobustness,
			Framework: "EU AI Act",
			Clause:    "Art. 15(4)",
			Rationale: "Resilience against errors and perturbations is evidenced by accuracy retention under input noise.",
			Rule:      EvidenceRule{PassThreshold: &robust, MetricRequirements: []string{"worst_case_accuracy"}},
		},
		{
			TestName:  govtest.TestExplainability,
			Framework: "EU AI Act",
			Clause:    "Art. 13(1)",
			Rationale: "Transparency obligations are supported by feature importance evidence showing which inputs drive predictions.",
			Rule:      EvidenceRule{},
		},
		{
			TestName:  govtest.TestPrivacy,
			Framework: "GDPR",
			Clause:    "Art. 25",
			Rationale: "Data protection by design requires evidence that the model does not leak membership or memorize personal records.",
			Rule:      EvidenceRule{PassThreshold: &privacy, MetricRequirements: []string{"leakage_risk"}},
		},
		{
			TestName:  govtest.TestAccuracy,
			Framework: "EU AI Act",
			Clause:    "Art. 15(1)",
			Rationale: "Accuracy appropriate to the intended purpose is evidenced by held-out performance measurements.",
			Rule:      EvidenceRule{MetricRequirements: []string{"accuracy"}},
		},
	}
}

// Evaluate builds the compliance report for a run from its persisted
// evidence. Clauses whose test never produced a result are unsatisfied
// with an explanatory detail, not an error.
func (m *Mapper) Evaluate(ctx context.Context, runID core.RunID) (*Report, error) {
	r, err := m.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	results, err := m.results.ListResults(ctx, r.ID)
	if err != nil {
		return nil, err
	}

	byName := make(map[govtest.TestName]govtest.TestResult, len(results))
	for _, res := range results {
		byName[res.TestName] = res
	}

	report := &Report{RunID: r.ID.String(), RunStatus: r.Status}
	for _, mapping := range m.mappings {
		status := evaluateClause(mapping, byName)
		if status.Satisfied {
			report.SatisfiedClauses++
		}
		report.Clauses = append(report.Clauses, status)
	}
	return report, nil
}

func evaluateClause(mapping ClauseMapping, byName map[govtest.TestName]govtest.TestResult) ClauseStatus {
	status := ClauseStatus{Mapping: mapping}

	res, ok := byName[mapping.TestName]
	if !ok {
		status.Detail = "no evidence: test was not executed for this run"
		return status
	}
	if res.Status != govtest.ResultCompleted {
		status.Detail = "no evidence: test did not complete"
		return status
	}

	if mapping.Rule.PassThreshold != nil {
		if res.Score == nil {
			status.Detail = "insufficient evidence: test produced no score"
			return status
		}
		if *res.Score < *mapping.Rule.PassThreshold {
			status.Detail = "score below clause threshold"
			return status
		}
	}

	for _, required := range mapping.Rule.MetricRequirements {
		metric, found := findMetric(res.Metrics, required)
		if !found {
			status.Detail = "insufficient evidence: metric " + required + " missing"
			return status
		}
		if !metric.Passed {
			status.Detail = "metric " + required + " outside threshold"
			return status
		}
	}

	status.Satisfied = true
	status.Detail = "evidence satisfies clause rule"
	return status
}

func findMetric(metrics []govtest.Metric, name string) (govtest.Metric, bool) {
	for _, m := range metrics {
		// Prefer the aggregate row over per-slice breakdowns
		if m.Name == name && m.SliceKey == "" {
			return m, true
		}
	}
	for _, m := range metrics {
		if m.Name == name {
			return m, true
		}
	}
	return govtest.Metric{}, false
}
