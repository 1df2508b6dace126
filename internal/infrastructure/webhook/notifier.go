package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"PaperPoster/internal/domain"
	"PaperPoster/internal/ports"
)

// Notifier posts messages to an incoming chat webhook (Slack compatible).
type Notifier struct {
	url    string
	client *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers the webhook URL. A nil client gets a 30s timeout.
func NewNotifier(url string, client *http.Client) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Notifier{url: url, client: client}
}

// Post sends msg as a JSON payload.
func (n *Notifier) Post(ctx context.Context, msg domain.Message) error {
	if n.url == "" || n.client == nil {
		return fmt.Errorf("webhook notifier misconfigured")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook error: %s: %s", resp.Status, bytes.TrimSpace(body))
	}

	return nil
}
