package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aigovern/domain/asset"
	"aigovern/domain/core"
	"aigovern/domain/govtest"
	"aigovern/domain/run"
)

func completedRun(t *testing.T) *run.TestRun {
	t.Helper()
	modelAsset := asset.ModelAsset{
		ID:                 core.AssetID(core.NewID()),
		OrgID:              core.OrgID(core.NewID()),
		ModelType:          asset.ModelTabular,
		DataClassification: asset.ClassificationInternal,
	}
	r := run.New(modelAsset, nil, nil, nil)
	require.NoError(t, r.Start())
	require.NoError(t, r.Complete())
	return r
}

func TestNotifyCompletion_DeliversPayload(t *testing.T) {
	var received webhookPayload
	var contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	r := completedRun(t)
	score := 0.91
	summary := govtest.Summary{TotalTests: 4, PassedTests: 3, FailedTests: 1, OverallScore: &score}

	notifier := NewWebhookNotifier(server.URL, nil)
	require.NoError(t, notifier.NotifyCompletion(context.Background(), r, summary))

	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, r.ID.String(), received.RunID)
	assert.Equal(t, "completed", received.Status)
	assert.Equal(t, 3, received.Summary.PassedTests)
	require.NotNil(t, received.Summary.OverallScore)
	assert.InDelta(t, 0.91, *received.Summary.OverallScore, 1e-9)

	// Markdown report rendered to HTML
	assert.True(t, strings.Contains(received.ReportHTML, "<table>"), "report should contain the summary table")
	assert.Contains(t, received.ReportHTML, r.ID.String())
}

func TestNotifyCompletion_FailedRunCarriesError(t *testing.T) {
	var received webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
	}))
	defer server.Close()

	modelAsset := asset.ModelAsset{
		ID:        core.AssetID(core.NewID()),
		OrgID:     core.OrgID(core.NewID()),
		ModelType: asset.ModelTabular,
	}
	r := run.New(modelAsset, nil, nil, nil)
	require.NoError(t, r.Start())
	require.NoError(t, r.Fail("model asset was deleted"))

	notifier := NewWebhookNotifier(server.URL, nil)
	require.NoError(t, notifier.NotifyCompletion(context.Background(), r, govtest.Summary{}))

	assert.Equal(t, "failed", received.Status)
	assert.Equal(t, "model asset was deleted", received.ErrorMessage)
	assert.Contains(t, received.ReportHTML, "model asset was deleted")
}

func TestNotifyCompletion_Non2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL, nil)
	err := notifier.NotifyCompletion(context.Background(), completedRun(t), govtest.Summary{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNotifyCompletion_UnreachableEndpoint(t *testing.T) {
	notifier := NewWebhookNotifier("http://127.0.0.1:1/hook", nil)
	err := notifier.NotifyCompletion(context.Background(), completedRun(t), govtest.Summary{})
	require.Error(t, err)
}
