package plan

import (
	"sort"
	"time"

	"aigovern/domain/asset"
	"aigovern/domain/core"
	"aigovern/domain/govtest"
)

// TestEntry is the configuration for one named test within a plan
type TestEntry struct {
	Enabled    bool               `json:"enabled"`
	Order      int                `json:"order,omitempty"` // position in the battery; ties break on name
	Parameters map[string]any     `json:"parameters,omitempty"`
	Thresholds map[string]float64 `json:"thresholds,omitempty"`
	Timeout    time.Duration      `json:"timeout,omitempty"`
}

// BatteryConfig is the nested test configuration of a plan, keyed by test
// name. It is the unit snapshotted onto a TestRun at creation time.
type BatteryConfig map[govtest.TestName]TestEntry

// Clone deep-copies the config so a run's snapshot cannot drift when the
// plan is edited mid-flight.
func (c BatteryConfig) Clone() BatteryConfig {
	out := make(BatteryConfig, len(c))
	for name, entry := range c {
		clone := entry
		if entry.Parameters != nil {
			clone.Parameters = make(map[string]any, len(entry.Parameters))
			for k, v := range entry.Parameters {
				clone.Parameters[k] = v
			}
		}
		if entry.Thresholds != nil {
			clone.Thresholds = make(map[string]float64, len(entry.Thresholds))
			for k, v := range entry.Thresholds {
				clone.Thresholds[k] = v
			}
		}
		out[name] = clone
	}
	return out
}

// EnabledTests returns the enabled test names in battery order
func (c BatteryConfig) EnabledTests() []govtest.TestName {
	type ordered struct {
		name  govtest.TestName
		order int
	}
	var entries []ordered
	for name, entry := range c {
		if entry.Enabled {
			entries = append(entries, ordered{name, entry.Order})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].order != entries[j].order {
			return entries[i].order < entries[j].order
		}
		return entries[i].name < entries[j].name
	})
	names := make([]govtest.TestName, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

// ConfigFor builds the TestConfig handed to an adapter for a named test.
// Unknown names yield an empty config so defaults apply.
func (c BatteryConfig) ConfigFor(name govtest.TestName) govtest.TestConfig {
	entry := c[name]
	return govtest.TestConfig{
		TestName:   name,
		Parameters: entry.Parameters,
		Thresholds: entry.Thresholds,
		Timeout:    entry.Timeout,
	}
}

// AlertRule describes when plan owners want to be notified about a run
type AlertRule struct {
	OnFailure      bool     `json:"on_failure"`       // run failed to execute
	OnTestFailures bool     `json:"on_test_failures"` // run completed with failing tests
	Channels       []string `json:"channels,omitempty"`
}

// TestPlan enumerates which named tests run for a model type, with
// parameters and pass/fail thresholds. Plans are per organization.
type TestPlan struct {
	ID         core.PlanID     `json:"id"`
	OrgID      core.OrgID      `json:"org_id"`
	Name       string          `json:"name"`
	ModelType  asset.ModelType `json:"model_type"`
	Config     BatteryConfig   `json:"config"`
	AlertRules AlertRule       `json:"alert_rules"`
	CreatedAt  core.Timestamp  `json:"created_at"`
	UpdatedAt  core.Timestamp  `json:"updated_at"`
}

// DefaultConfig returns the battery enabled for a model type when no plan
// is supplied. The compatibility table in the registry still gates which
// of these actually run.
func DefaultConfig() BatteryConfig {
	return BatteryConfig{
		govtest.TestAccuracy:       {Enabled: true, Order: 1},
		govtest.TestFairness:       {Enabled: true, Order: 2},
		govtest.TestExplainability: {Enabled: true, Order: 3},
		govtest.TestRobustness:     {Enabled: true, Order: 4},
		govtest.TestPrivacy:        {Enabled: true, Order: 5},
	}
}
