package asset

import (
	"time"

	"aigovern/domain/core"
)

// ModelType categorizes registered models by input modality
type ModelType string

const (
	ModelTabular    ModelType = "tabular"
	ModelImage      ModelType = "image"
	ModelGenerative ModelType = "generative"
)

// IsValid reports whether the model type is one of the known modalities
func (m ModelType) IsValid() bool {
	switch m {
	case ModelTabular, ModelImage, ModelGenerative:
		return true
	}
	return false
}

// DataClassification is an ordered sensitivity tag. Higher ranks are more
// sensitive; propagation through derived records is monotone-non-decreasing.
type DataClassification string

const (
	ClassificationPublic       DataClassification = "public"
	ClassificationInternal     DataClassification = "internal"
	ClassificationConfidential DataClassification = "confidential"
	ClassificationRestricted   DataClassification = "restricted"
)

var classificationRank = map[DataClassification]int{
	ClassificationPublic:       0,
	ClassificationInternal:     1,
	ClassificationConfidential: 2,
	ClassificationRestricted:   3,
}

// Rank returns the numeric sensitivity rank (unknown values rank as internal)
func (c DataClassification) Rank() int {
	if r, ok := classificationRank[c]; ok {
		return r
	}
	return classificationRank[ClassificationInternal]
}

// Escalate returns the more sensitive of the two classifications.
// Derived records may only escalate sensitivity, never downgrade it.
func Escalate(current, incoming DataClassification) DataClassification {
	if incoming.Rank() > current.Rank() {
		return incoming
	}
	return current
}

// ModelAsset is a reference to a registered model owned by the external
// asset registry. The engine reads it; it never mutates it.
type ModelAsset struct {
	ID                 core.AssetID       `json:"id"`
	OrgID              core.OrgID         `json:"org_id"`
	Name               string             `json:"name"`
	ModelType          ModelType          `json:"model_type"`
	ContainsPII        bool               `json:"contains_pii"`
	DataClassification DataClassification `json:"data_classification"`
	RetentionDate      *time.Time         `json:"retention_date,omitempty"`
	Metadata           map[string]any     `json:"metadata,omitempty"`
}

// DatasetAsset is a reference to a registered evaluation dataset.
type DatasetAsset struct {
	ID                 core.AssetID       `json:"id"`
	OrgID              core.OrgID         `json:"org_id"`
	Name               string             `json:"name"`
	Location           string             `json:"location"` // file path or object key
	ContainsPII        bool               `json:"contains_pii"`
	DataClassification DataClassification `json:"data_classification"`
}
