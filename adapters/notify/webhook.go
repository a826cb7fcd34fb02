// Package notify delivers run completion notifications over HTTP webhooks.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"aigovern/domain/govtest"
	"aigovern/domain/run"
	"aigovern/internal"
	"aigovern/internal/errors"
	"aigovern/ports"
)

// WebhookNotifier posts a completion payload to a configured URL. The
// payload carries machine-readable fields plus an HTML report rendered
// from markdown, so chat and email receivers can display it directly.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *internal.Logger
}

var _ ports.CompletionNotifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier creates a notifier for the given endpoint
func NewWebhookNotifier(url string, logger *internal.Logger) *WebhookNotifier {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

type webhookPayload struct {
	RunID        string          `json:"run_id"`
	OrgID        string          `json:"org_id"`
	ModelAssetID string          `json:"model_asset_id"`
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Summary      govtest.Summary `json:"summary"`
	ReportHTML   string          `json:"report_html"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// NotifyCompletion posts the completion payload. Errors are returned to
// the caller for logging; the dispatcher never fails a run over them.
func (n *WebhookNotifier) NotifyCompletion(ctx context.Context, r *run.TestRun, summary govtest.Summary) error {
	payload := webhookPayload{
		RunID:        r.ID.String(),
		OrgID:        r.OrgID.String(),
		ModelAssetID: r.ModelAssetID.String(),
		Status:       string(r.Status),
		ErrorMessage: r.ErrorMessage,
		Summary:      summary,
		ReportHTML:   renderReport(r, summary),
		CompletedAt:  r.CompletedAt,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return errors.New(errors.CodeNotificationFailed,
			fmt.Sprintf("deliver webhook for run %s: %v", r.ID, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return errors.New(errors.CodeNotificationFailed,
			fmt.Sprintf("webhook for run %s returned status %d", r.ID, resp.StatusCode))
	}
	n.logger.Debug("delivered completion webhook for run %s", r.ID)
	return nil
}

// renderReport builds a markdown summary of the run and renders it to HTML
func renderReport(r *run.TestRun, summary govtest.Summary) string {
	var md strings.Builder
	fmt.Fprintf(&md, "## Test Run %s\n\n", r.ID)
	fmt.Fprintf(&md, "**Status:** %s\n\n", r.Status)
	if r.ErrorMessage != "" {
		fmt.Fprintf(&md, "**Error:** %s\n\n", r.ErrorMessage)
	}
	fmt.Fprintf(&md, "| Tests | Passed | Failed |\n|---|---|---|\n")
	fmt.Fprintf(&md, "| %d | %d | %d |\n\n",
		summary.TotalTests, summary.PassedTests, summary.FailedTests)
	if summary.OverallScore != nil {
		fmt.Fprintf(&md, "**Overall score:** %.3f\n", *summary.OverallScore)
	}

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return string(markdown.ToHTML([]byte(md.String()), p, renderer))
}
