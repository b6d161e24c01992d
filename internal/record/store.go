package record

import (
	"context"
	"errors"
)

// Static errors for store lookups.
var (
	// ErrRecordingNotFound is returned when a file ID resolves to no recording.
	ErrRecordingNotFound = errors.New("recording not found")
	// ErrSummaryNotFound is returned when a recording has no summary yet.
	ErrSummaryNotFound = errors.New("summary not found")
)

// Store defines the interface for recording and summary persistence.
// Every call is atomic and durable on return; the pipelines never batch
// writes across steps, so a poller always sees the latest persisted state.
type Store interface {
	// SaveRecording upserts a recording keyed by its file ID.
	SaveRecording(ctx context.Context, rec *Recording) error

	// GetRecording retrieves a recording by file ID.
	// Returns ErrRecordingNotFound if no recording exists.
	GetRecording(ctx context.Context, fileID string) (*Recording, error)

	// ListRecordings returns all recordings, optionally filtered by status
	// (empty status means no filter), newest first.
	ListRecordings(ctx context.Context, status Status) ([]*Recording, error)

	// SaveSummary upserts the summary for a recording.
	SaveSummary(ctx context.Context, sum *Summary) error

	// GetSummaryForRecording retrieves the summary for a recording.
	// Returns ErrSummaryNotFound if summarization was never requested.
	GetSummaryForRecording(ctx context.Context, fileID string) (*Summary, error)

	// ListSummaries returns all summaries, optionally filtered by status,
	// newest first.
	ListSummaries(ctx context.Context, status Status) ([]*Summary, error)
}
