package transcriber

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Compile-time check that WhisperTranscriber implements Transcriber.
var _ Transcriber = (*WhisperTranscriber)(nil)

// WhisperTranscriber implements Transcriber using the OpenAI audio
// transcription endpoint.
type WhisperTranscriber struct {
	client *openai.Client
	model  string
}

// Option configures a WhisperTranscriber.
type Option func(*WhisperTranscriber)

// WithModel overrides the transcription model (default whisper-1).
func WithModel(model string) Option {
	return func(t *WhisperTranscriber) {
		t.model = model
	}
}

// NewWhisperTranscriber creates a transcriber backed by the given OpenAI client.
func NewWhisperTranscriber(client *openai.Client, opts ...Option) *WhisperTranscriber {
	t := &WhisperTranscriber{
		client: client,
		model:  openai.Whisper1,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transcribe sends one audio segment to Whisper and returns the text.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: path,
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		if isRateLimit(err) {
			return "", fmt.Errorf("%w: %s", ErrRateLimited, err.Error())
		}
		return "", fmt.Errorf("transcriber: whisper request: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// isRateLimit reports whether the OpenAI error is an HTTP 429.
func isRateLimit(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
