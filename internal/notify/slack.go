package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/meetnotes/meeting-notes-api/internal/transcript"
)

// Static errors for Slack delivery.
var (
	// ErrSlackNotConfigured is returned when no webhook URL is available.
	ErrSlackNotConfigured = errors.New("notify: slack delivery is not configured")
	// ErrSlackRejected is returned when the webhook refused the message.
	ErrSlackRejected = errors.New("notify: slack webhook rejected the message")
)

// SlackClient posts meeting notes to a Slack incoming webhook.
type SlackClient struct {
	webhookURL string
	httpClient *http.Client
}

// SlackOption configures a SlackClient.
type SlackOption func(*SlackClient)

// WithSlackHTTPClient sets a custom HTTP client.
func WithSlackHTTPClient(c *http.Client) SlackOption {
	return func(sc *SlackClient) {
		sc.httpClient = c
	}
}

// NewSlackClient creates a Slack webhook client. webhookURL is the default
// destination; an empty string leaves the client unconfigured, and a
// per-request URL can still be supplied to SendSummary.
func NewSlackClient(webhookURL string, opts ...SlackOption) *SlackClient {
	c := &SlackClient{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether a default webhook URL is set.
func (c *SlackClient) Configured() bool {
	return c.webhookURL != ""
}

// slackMessage is the incoming-webhook payload.
type slackMessage struct {
	Text string `json:"text"`
}

// SendSummary renders the notes as text and posts them to the webhook.
// webhookURL overrides the default destination when non-empty.
func (c *SlackClient) SendSummary(ctx context.Context, webhookURL, filename string, notes transcript.StructuredSummary) error {
	url := webhookURL
	if url == "" {
		url = c.webhookURL
	}
	if url == "" {
		return ErrSlackNotConfigured
	}

	body, err := json.Marshal(slackMessage{Text: FormatText(notes, filename)})
	if err != nil {
		return fmt.Errorf("notify: marshal slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: slack request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: status %d: %s", ErrSlackRejected, resp.StatusCode, string(respBody))
	}
	return nil
}
