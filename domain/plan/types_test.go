package plan

import (
	"testing"

	"aigovern/domain/govtest"
)

func TestBatteryConfig_CloneIsDeep(t *testing.T) {
	original := BatteryConfig{
		govtest.TestFairness: {
			Enabled:    true,
			Parameters: map[string]any{"sensitive_attribute": "group"},
			Thresholds: map[string]float64{"demographic_parity": 0.1},
		},
	}
	clone := original.Clone()

	entry := original[govtest.TestFairness]
	entry.Parameters["sensitive_attribute"] = "mutated"
	entry.Thresholds["demographic_parity"] = 0.9

	got := clone[govtest.TestFairness]
	if got.Parameters["sensitive_attribute"] != "group" {
		t.Errorf("clone parameter mutated: %v", got.Parameters["sensitive_attribute"])
	}
	if got.Thresholds["demographic_parity"] != 0.1 {
		t.Errorf("clone threshold mutated: %v", got.Thresholds["demographic_parity"])
	}
}

func TestBatteryConfig_EnabledTestsOrdering(t *testing.T) {
	cfg := BatteryConfig{
		govtest.TestPrivacy:    {Enabled: true, Order: 2},
		govtest.TestFairness:   {Enabled: true, Order: 1},
		govtest.TestRobustness: {Enabled: false, Order: 0},
		govtest.TestAccuracy:   {Enabled: true, Order: 1},
	}

	got := cfg.EnabledTests()
	want := []govtest.TestName{govtest.TestAccuracy, govtest.TestFairness, govtest.TestPrivacy}
	if len(got) != len(want) {
		t.Fatalf("EnabledTests = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestBatteryConfig_ConfigFor(t *testing.T) {
	cfg := BatteryConfig{
		govtest.TestFairness: {
			Enabled:    true,
			Parameters: map[string]any{"sensitive_attribute": "group"},
			Thresholds: map[string]float64{"demographic_parity": 0.05},
		},
	}

	tc := cfg.ConfigFor(govtest.TestFairness)
	if tc.TestName != govtest.TestFairness {
		t.Errorf("TestName = %s", tc.TestName)
	}
	if tc.Param("sensitive_attribute", "") != "group" {
		t.Error("parameters not carried through")
	}

	// Unknown test yields an empty config so adapter defaults apply
	empty := cfg.ConfigFor(govtest.TestPrivacy)
	if empty.Parameters != nil || empty.Thresholds != nil {
		t.Errorf("unknown test config not empty: %+v", empty)
	}
}

func TestDefaultConfig(t *testing.T) {
	enabled := DefaultConfig().EnabledTests()
	if len(enabled) != 5 {
		t.Fatalf("default battery has %d tests, want 5", len(enabled))
	}
	if enabled[0] != govtest.TestAccuracy {
		t.Errorf("first default test = %s, want accuracy", enabled[0])
	}
}
