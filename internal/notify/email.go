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

// Static errors for email delivery.
var (
	// ErrEmailNotConfigured is returned when no Resend API key is set.
	ErrEmailNotConfigured = errors.New("notify: email delivery is not configured")
	// ErrEmailRejected is returned when the email API refused the request.
	ErrEmailRejected = errors.New("notify: email request rejected")
)

// EmailClient sends meeting notes through the Resend email API.
type EmailClient struct {
	apiKey     string
	from       string
	baseURL    string
	httpClient *http.Client
}

// EmailOption configures an EmailClient.
type EmailOption func(*EmailClient)

// WithEmailHTTPClient sets a custom HTTP client.
func WithEmailHTTPClient(c *http.Client) EmailOption {
	return func(ec *EmailClient) {
		ec.httpClient = c
	}
}

// WithEmailBaseURL sets a custom base URL for the email API.
func WithEmailBaseURL(url string) EmailOption {
	return func(ec *EmailClient) {
		ec.baseURL = url
	}
}

// NewEmailClient creates a Resend-backed email client. The from address is
// used as the sender for every message.
func NewEmailClient(apiKey, from string, opts ...EmailOption) *EmailClient {
	c := &EmailClient{
		apiKey:     apiKey,
		from:       from,
		baseURL:    "https://api.resend.com",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is set.
func (c *EmailClient) Configured() bool {
	return c.apiKey != ""
}

// emailRequest is the Resend /emails request body.
type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

// emailResponse is the Resend /emails response body.
type emailResponse struct {
	ID string `json:"id"`
}

// SendSummary renders the notes and emails them to the given address.
// Returns the provider's message ID.
func (c *EmailClient) SendSummary(ctx context.Context, toEmail, subject, filename string, notes transcript.StructuredSummary) (string, error) {
	if !c.Configured() {
		return "", ErrEmailNotConfigured
	}
	if subject == "" {
		subject = fmt.Sprintf("Meeting Notes: %s", filename)
	}

	body, err := json.Marshal(emailRequest{
		From:    c.from,
		To:      []string{toEmail},
		Subject: subject,
		HTML:    FormatHTML(notes, filename),
		Text:    FormatText(notes, filename),
	})
	if err != nil {
		return "", fmt.Errorf("notify: marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("notify: create email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("notify: email request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("notify: read email response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w with status %d: %s", ErrEmailRejected, resp.StatusCode, string(respBody))
	}

	var parsed emailResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("notify: unmarshal email response: %w", err)
	}
	return parsed.ID, nil
}
