package alert

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	signatureHeader = "X-Signature-256"
	runHeader       = "X-Signalradar-Run"
)

// Webhook posts run summaries as JSON to a generic HTTP endpoint.
// With a secret set, the body is signed with HMAC-SHA256 in X-Signature-256.
type Webhook struct {
	client *http.Client
	url    string
	secret string
}

// NewWebhook creates a new generic webhook notifier.
func NewWebhook(url, secret string) *Webhook {
	return &Webhook{
		client: &http.Client{Timeout: 10 * time.Second},
		url:    url,
		secret: secret,
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Send(ctx context.Context, n *Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	header := http.Header{}
	header.Set(runHeader, n.RunID)
	if w.secret != "" {
		header.Set(signatureHeader, Sign(w.secret, body))
	}

	status, err := postJSON(ctx, w.client, w.url, body, header)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("webhook status %d", status)
	}
	return nil
}

// Sign returns the "sha256=<hex>" signature receivers compare against X-Signature-256.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches body under secret.
func Verify(secret string, body []byte, signature string) bool {
	return hmac.Equal([]byte(Sign(secret, body)), []byte(signature))
}
