package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aigovern/app"
	"aigovern/domain/asset"
	"aigovern/domain/core"
	"aigovern/domain/govtest"
	"aigovern/internal/compliance"
	"aigovern/internal/testkit"
)

type apiFixture struct {
	kit        *testkit.Kit
	handler    http.Handler
	modelAsset asset.ModelAsset
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	kit := testkit.NewKit()
	modelAsset := asset.ModelAsset{
		ID:                 core.AssetID(core.NewID()),
		OrgID:              core.OrgID(core.NewID()),
		Name:               "credit-scorer",
		ModelType:          asset.ModelTabular,
		DataClassification: asset.ClassificationInternal,
	}
	kit.Assets.PutModelAsset(modelAsset)

	service := app.NewRunService(kit.Runs, kit.Assets, kit.Plans, kit.Queue, nil)
	mapper := compliance.NewMapper(kit.Runs, kit.Results, nil)
	registry := app.NewRegistry()
	server := NewServer(service, kit.Results, mapper, registry, nil)

	return &apiFixture{kit: kit, handler: server.Router(), modelAsset: modelAsset}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateRun(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/runs", map[string]any{
		"model_asset_id": f.modelAsset.ID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "pending", created.Status)
	assert.NotEmpty(t, created.ID)

	require.Len(t, f.kit.Queue.Enqueued, 1)
	assert.Equal(t, created.ID, f.kit.Queue.Enqueued[0].String())
}

func TestCreateRun_UnknownModel(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodPost, "/api/runs", map[string]any{
		"model_asset_id": core.NewID().String(),
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateRun_BadRequest(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodPost, "/api/runs", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRun(t *testing.T) {
	f := newAPIFixture(t)
	created := f.do(t, http.MethodPost, "/api/runs", map[string]any{
		"model_asset_id": f.modelAsset.ID.String(),
	})
	var r struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &r))

	rec := f.do(t, http.MethodGet, "/api/runs/"+r.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	missing := f.do(t, http.MethodGet, "/api/runs/"+core.NewID().String(), nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestCancelRun(t *testing.T) {
	f := newAPIFixture(t)
	created := f.do(t, http.MethodPost, "/api/runs", map[string]any{
		"model_asset_id": f.modelAsset.ID.String(),
	})
	var r struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &r))

	rec := f.do(t, http.MethodPost, "/api/runs/"+r.ID+"/cancel", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// A second cancel hits the terminal state and conflicts
	again := f.do(t, http.MethodPost, "/api/runs/"+r.ID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, again.Code)
}

func TestListResults(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()
	created := f.do(t, http.MethodPost, "/api/runs", map[string]any{
		"model_asset_id": f.modelAsset.ID.String(),
	})
	var r struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &r))

	res := govtest.NewResult(govtest.TestFairness)
	res.RunID = core.RunID(r.ID)
	res.Passed = true
	require.NoError(t, f.kit.Results.SaveResult(ctx, &res))

	rec := f.do(t, http.MethodGet, "/api/runs/"+r.ID+"/results", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		RunID   string               `json:"run_id"`
		Results []govtest.TestResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Results, 1)
	assert.Equal(t, govtest.TestFairness, payload.Results[0].TestName)
}

func TestComplianceReport(t *testing.T) {
	f := newAPIFixture(t)
	created := f.do(t, http.MethodPost, "/api/runs", map[string]any{
		"model_asset_id": f.modelAsset.ID.String(),
	})
	var r struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &r))

	rec := f.do(t, http.MethodGet, "/api/compliance/"+r.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report compliance.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, r.ID, report.RunID)
	assert.NotEmpty(t, report.Clauses)

	missing := f.do(t, http.MethodGet, "/api/compliance/"+core.NewID().String(), nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestListTests(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/api/tests", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Tests []string `json:"tests"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Len(t, payload.Tests, 5)
}
