package asset

import "testing"

func TestEscalate(t *testing.T) {
	tests := []struct {
		current, incoming, want DataClassification
	}{
		{ClassificationPublic, ClassificationInternal, ClassificationInternal},
		{ClassificationConfidential, ClassificationPublic, ClassificationConfidential},
		{ClassificationInternal, ClassificationRestricted, ClassificationRestricted},
		{ClassificationRestricted, ClassificationRestricted, ClassificationRestricted},
	}
	for _, tt := range tests {
		if got := Escalate(tt.current, tt.incoming); got != tt.want {
			t.Errorf("Escalate(%s, %s) = %s, want %s", tt.current, tt.incoming, got, tt.want)
		}
	}
}

func TestRank_UnknownValuesRankAsInternal(t *testing.T) {
	if DataClassification("secret").Rank() != ClassificationInternal.Rank() {
		t.Error("unknown classification should rank as internal")
	}
}

func TestModelType_IsValid(t *testing.T) {
	for _, m := range []ModelType{ModelTabular, ModelImage, ModelGenerative} {
		if !m.IsValid() {
			t.Errorf("%s should be valid", m)
		}
	}
	if ModelType("audio").IsValid() {
		t.Error("unknown modality should be invalid")
	}
}
