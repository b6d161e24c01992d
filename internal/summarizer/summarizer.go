// Package summarizer provides the port for remote summarization calls and
// its OpenAI chat-completion implementation.
package summarizer

import (
	"context"
	"errors"

	"github.com/meetnotes/meeting-notes-api/internal/transcript"
)

// Static errors for summarization calls.
var (
	// ErrRateLimited is returned when the remote service throttled the request.
	ErrRateLimited = errors.New("summarizer: rate limited")
	// ErrMalformedResponse is returned when the model's reply does not
	// parse as the expected JSON shape.
	ErrMalformedResponse = errors.New("summarizer: malformed response")
)

// Summarizer defines the interface for summarizing one transcript chunk.
type Summarizer interface {
	// Summarize sends a transcript chunk to the language model and returns
	// the extracted structured summary. Missing fields come back as empty
	// lists; a reply that fails to parse is ErrMalformedResponse.
	Summarize(ctx context.Context, chunk string) (transcript.StructuredSummary, error)
}
