package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"

	"aigovern/domain/asset"
	"aigovern/domain/core"
	"aigovern/ports"
)

// AssetRepositoryImpl reads model and dataset asset records. The asset
// registry subsystem owns these tables; the engine only consumes them.
type AssetRepositoryImpl struct {
	db *sqlx.DB
}

// NewAssetRepository creates a new PostgreSQL asset repository
func NewAssetRepository(db *sqlx.DB) ports.AssetRepository {
	return &AssetRepositoryImpl{db: db}
}

// GetModelAsset loads a model asset by id
func (r *AssetRepositoryImpl) GetModelAsset(ctx context.Context, id core.AssetID) (*asset.ModelAsset, error) {
	var a asset.ModelAsset
	var assetID, orgID, modelType, classification string
	var metadataJSON []byte

	err := r.db.QueryRowContext(ctx, `
		SELECT id, org_id, name, model_type, contains_pii, data_classification,
			   retention_date, metadata
		FROM model_assets
		WHERE id = $1`, id.String()).Scan(
		&assetID, &orgID, &a.Name, &modelType, &a.ContainsPII,
		&classification, &a.RetentionDate, &metadataJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.NewNotFoundError("model asset", id.String())
		}
		return nil, err
	}

	a.ID = core.AssetID(assetID)
	a.OrgID = core.OrgID(orgID)
	a.ModelType = asset.ModelType(modelType)
	a.DataClassification = classificationFromString(classification)
	if len(metadataJSON) > 0 {
		json.Unmarshal(metadataJSON, &a.Metadata)
	}
	return &a, nil
}

// GetDatasetAsset loads a dataset asset by id
func (r *AssetRepositoryImpl) GetDatasetAsset(ctx context.Context, id core.AssetID) (*asset.DatasetAsset, error) {
	var a asset.DatasetAsset
	var assetID, orgID, classification string

	err := r.db.QueryRowContext(ctx, `
		SELECT id, org_id, name, location, contains_pii, data_classification
		FROM dataset_assets
		WHERE id = $1`, id.String()).Scan(
		&assetID, &orgID, &a.Name, &a.Location, &a.ContainsPII, &classification)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.NewNotFoundError("dataset asset", id.String())
		}
		return nil, err
	}

	a.ID = core.AssetID(assetID)
	a.OrgID = core.OrgID(orgID)
	a.DataClassification = classificationFromString(classification)
	return &a, nil
}
