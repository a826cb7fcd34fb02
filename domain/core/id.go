package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	RunID    ID
	ResultID ID
	MetricID ID
	AssetID  ID
	PlanID   ID
	OrgID    ID
)

// String conversions for domain IDs
func (id RunID) String() string    { return ID(id).String() }
func (id ResultID) String() string { return ID(id).String() }
func (id MetricID) String() string { return ID(id).String() }
func (id AssetID) String() string  { return ID(id).String() }
func (id PlanID) String() string   { return ID(id).String() }
func (id OrgID) String() string    { return ID(id).String() }

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	return RunID(s), nil
}

// ParseAssetID parses a string into AssetID
func ParseAssetID(s string) (AssetID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("asset ID cannot be empty")
	}
	return AssetID(s), nil
}

// ParsePlanID parses a string into PlanID
func ParsePlanID(s string) (PlanID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("plan ID cannot be empty")
	}
	return PlanID(s), nil
}

// ParseOrgID parses a string into OrgID
func ParseOrgID(s string) (OrgID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("organization ID cannot be empty")
	}
	return OrgID(s), nil
}
