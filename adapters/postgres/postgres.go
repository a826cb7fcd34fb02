// Package postgres implements the engine's persistence ports on
// PostgreSQL via sqlx. Heterogeneous maps (config, parameters, summaries)
// are stored as JSONB.
package postgres

import (
	"fmt"
	"time"

	"aigovern/domain/asset"
	"aigovern/domain/core"
)

func classificationFromString(s string) asset.DataClassification {
	if s == "" {
		return asset.ClassificationInternal
	}
	return asset.DataClassification(s)
}

// timeScanner adapts core.Timestamp to database/sql scanning
type timeScanner core.Timestamp

func (t *timeScanner) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*t = timeScanner(core.NewTimestamp(v))
		return nil
	case nil:
		*t = timeScanner(core.Timestamp{})
		return nil
	}
	return fmt.Errorf("cannot scan %T into timestamp", src)
}
