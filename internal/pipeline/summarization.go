package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/meetnotes/meeting-notes-api/internal/record"
	"github.com/meetnotes/meeting-notes-api/internal/summarizer"
	"github.com/meetnotes/meeting-notes-api/internal/transcript"
)

// Static errors for out-of-order summarization requests.
var (
	// ErrTranscriptNotReady is returned when the recording has not
	// finished transcribing or produced no transcript text.
	ErrTranscriptNotReady = errors.New("transcription must be completed before summarizing")
	// ErrSummaryExists is returned when a completed summary is already stored.
	ErrSummaryExists = errors.New("summary already exists")
)

// Summarization runs the transcript -> structured notes pipeline for one
// recording.
type Summarization struct {
	store      record.Store
	summarizer summarizer.Summarizer
	logger     *slog.Logger
	maxChars   int
}

// SummarizationOption configures a Summarization pipeline.
type SummarizationOption func(*Summarization)

// WithMaxChunkChars overrides the transcript chunk budget (used in tests).
func WithMaxChunkChars(n int) SummarizationOption {
	return func(p *Summarization) {
		if n > 0 {
			p.maxChars = n
		}
	}
}

// NewSummarization creates a summarization pipeline.
func NewSummarization(store record.Store, sm summarizer.Summarizer, logger *slog.Logger, opts ...SummarizationOption) *Summarization {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Summarization{
		store:      store,
		summarizer: sm,
		logger:     logger,
		maxChars:   transcript.DefaultMaxChars,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run summarizes the completed transcript of the recording identified by
// fileID: chunks the text, summarizes each chunk, merges the results and
// persists the completed summary.
//
// Preconditions are checked before any state is persisted: the recording
// must exist, be completed with a non-empty transcript, and must not already
// have a completed summary. On failure past that point, the summary record
// is persisted as failed and the error returned; the duplicate-run guard is
// released by the caller on both paths.
func (p *Summarization) Run(ctx context.Context, fileID string) error {
	rec, err := p.store.GetRecording(ctx, fileID)
	if err != nil {
		return fmt.Errorf("load recording: %w", err)
	}
	if rec.Status != record.StatusCompleted || rec.Transcript == "" {
		return fmt.Errorf("recording %s is %s: %w", fileID, rec.Status, ErrTranscriptNotReady)
	}

	sum, err := p.store.GetSummaryForRecording(ctx, fileID)
	switch {
	case errors.Is(err, record.ErrSummaryNotFound):
		sum = record.NewSummary(fileID)
	case err != nil:
		return fmt.Errorf("load summary: %w", err)
	case sum.Status == record.StatusCompleted:
		return fmt.Errorf("recording %s: %w", fileID, ErrSummaryExists)
	}

	if err := sum.MarkProcessing(); err != nil {
		return fmt.Errorf("summary %s: %w", fileID, err)
	}
	if err := p.store.SaveSummary(ctx, sum); err != nil {
		return fmt.Errorf("persist processing state: %w", err)
	}

	notes, err := p.summarize(ctx, rec.Transcript)
	if err != nil {
		sum.Fail(err.Error())
		if saveErr := p.store.SaveSummary(ctx, sum); saveErr != nil {
			p.logger.Error("failed to persist failure state",
				slog.String("file_id", fileID),
				slog.String("error", saveErr.Error()),
			)
		}
		return err
	}

	if err := sum.Complete(notes); err != nil {
		return fmt.Errorf("summary %s: %w", fileID, err)
	}
	if err := p.store.SaveSummary(ctx, sum); err != nil {
		return fmt.Errorf("persist summary: %w", err)
	}

	p.logger.Info("summarization completed",
		slog.String("file_id", fileID),
		slog.Int("bullets", len(notes.Summary)),
		slog.Int("action_items", len(notes.ActionItems)),
	)
	return nil
}

// summarize chunks the transcript, summarizes each chunk in order and merges
// multi-chunk results.
func (p *Summarization) summarize(ctx context.Context, text string) (transcript.StructuredSummary, error) {
	chunks := transcript.Chunk(text, p.maxChars)

	results := make([]transcript.StructuredSummary, 0, len(chunks))
	for i, chunk := range chunks {
		res, err := p.summarizer.Summarize(ctx, chunk)
		if err != nil {
			return transcript.StructuredSummary{}, fmt.Errorf("summarize chunk %d/%d: %w", i+1, len(chunks), err)
		}
		results = append(results, res)
	}

	return transcript.Merge(results), nil
}
