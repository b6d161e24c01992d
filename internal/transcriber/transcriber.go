// Package transcriber provides the port for remote speech-to-text calls and
// its OpenAI Whisper implementation.
package transcriber

import (
	"context"
	"errors"
)

// Static errors for transcription calls.
var (
	// ErrRateLimited is returned when the remote service throttled the
	// request. Callers may retry after backing off.
	ErrRateLimited = errors.New("transcriber: rate limited")
	// ErrEmptyResponse is returned when the service answered without any
	// transcript text.
	ErrEmptyResponse = errors.New("transcriber: empty response")
)

// Transcriber defines the interface for transcribing one audio segment.
type Transcriber interface {
	// Transcribe sends the audio file at path to the speech-to-text
	// service and returns the plain transcript text.
	// A rate-limit condition is reported as ErrRateLimited (wrapped);
	// any other remote failure is a generic error.
	Transcribe(ctx context.Context, path string) (string, error)
}
