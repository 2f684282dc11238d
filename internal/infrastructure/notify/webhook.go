// Package notify sends run summaries to chat webhooks and email.
// Notification failures are reported to the caller, which only logs them.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"smarttest/internal/application/port/output"
	"smarttest/internal/domain/entity"

	"github.com/goccy/go-json"
)

var _ output.NotifierPort = (*Webhook)(nil)

const maxListedFailures = 5

type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string, client *http.Client) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Webhook{url: url, client: client}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Notify(ctx context.Context, report *entity.RunReport, detailed bool) error {
	body, err := json.Marshal(SlackMessage(report, detailed))
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Blocks []slackBlock `json:"blocks"`
}

type slackMessage struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments"`
}

// Color is green when nothing failed, orange when at least half passed and
// red otherwise.
func Color(s entity.Summary) string {
	switch {
	case s.Succeeded():
		return "#36a64f"
	case s.PassRate() >= 50:
		return "#ff9900"
	default:
		return "#ff0000"
	}
}

func title(report *entity.RunReport) string {
	if report.Title != "" {
		return report.Title
	}
	return "SmartTest Results: " + report.Suite
}

func statusText(s entity.Summary) string {
	if s.Succeeded() {
		return "✅ All Passed"
	}
	return "❌ Some Tests Failed"
}

// SlackMessage builds a Block Kit payload. Detailed mode lists up to five
// failures.
func SlackMessage(report *entity.RunReport, detailed bool) any {
	s := report.Summary
	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: title(report)}},
		{Type: "section", Fields: []slackText{
			{Type: "mrkdwn", Text: fmt.Sprintf("*Total Tests:*\n%d", s.Total)},
			{Type: "mrkdwn", Text: "*Status:*\n" + statusText(s)},
			{Type: "mrkdwn", Text: fmt.Sprintf("*Passed:*\n%d (%.1f%%)", s.Passed, s.PassRate())},
			{Type: "mrkdwn", Text: fmt.Sprintf("*Failed:*\n%d", s.Failed+s.Errors)},
		}},
		{Type: "context", Elements: []slackText{
			{Type: "mrkdwn", Text: fmt.Sprintf("Duration: %.2f seconds | Run %s | Generated by SmartTest", s.Duration.Seconds(), report.RunID)},
		}},
	}

	failures := report.Failures()
	if detailed && len(failures) > 0 {
		blocks = append(blocks,
			slackBlock{Type: "divider"},
			slackBlock{Type: "section", Text: &slackText{Type: "mrkdwn", Text: "*Failed Tests:*"}},
		)
		for i, f := range failures {
			if i == maxListedFailures {
				blocks = append(blocks, slackBlock{Type: "context", Elements: []slackText{
					{Type: "mrkdwn", Text: fmt.Sprintf("_...and %d more failures_", len(failures)-maxListedFailures)},
				}})
				break
			}
			blocks = append(blocks, slackBlock{Type: "section", Text: &slackText{
				Type: "mrkdwn",
				Text: fmt.Sprintf("*%s*\n%s", f.Name, orDefault(f.Error, "No error message")),
			}})
		}
	}

	return slackMessage{
		Text:        fmt.Sprintf("%s: %d/%d passed", title(report), s.Passed, s.Total),
		Attachments: []slackAttachment{{Color: Color(s), Blocks: blocks}},
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
