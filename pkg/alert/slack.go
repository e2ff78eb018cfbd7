package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Slack posts run summaries to a Slack incoming webhook as Block Kit messages.
type Slack struct {
	client     *http.Client
	webhookURL string
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

// NewSlack creates a new Slack notifier.
func NewSlack(webhookURL string) *Slack {
	return &Slack{client: &http.Client{Timeout: 10 * time.Second}, webhookURL: webhookURL}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Send(ctx context.Context, n *Notification) error {
	body, err := json.Marshal(map[string][]slackBlock{"blocks": slackBlocks(n)})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, err := postJSON(ctx, s.client, s.webhookURL, body, nil)
	if err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("slack webhook status %d", status)
	}
	return nil
}

// slackBlocks renders a header, the tier counts and one context line per top signal.
func slackBlocks(n *Notification) []slackBlock {
	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: n.Title}},
		{Type: "section", Text: &slackText{Type: "mrkdwn", Text: fmt.Sprintf("*Run:* %s\n%s", n.RunID, n.Body)}},
	}
	if len(n.Signals) == 0 {
		return blocks
	}

	lines := make([]slackText, 0, len(n.Signals))
	for _, sig := range n.Signals {
		lines = append(lines, slackText{
			Type: "mrkdwn",
			Text: fmt.Sprintf("<%s|%s> [%s, %s, %.2f]", sig.Link, sig.Title, sig.Category, sig.PrimaryKeyword, sig.TrendScore),
		})
	}
	return append(blocks, slackBlock{Type: "context", Elements: lines})
}
