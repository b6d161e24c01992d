// Package pipeline orchestrates the background transcription and
// summarization runs for one recording at a time. Pipelines are plain
// functions over an explicit store handle; the caller decides how to
// schedule them and owns the duplicate-run guard.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/meetnotes/meeting-notes-api/internal/audio"
	"github.com/meetnotes/meeting-notes-api/internal/record"
	"github.com/meetnotes/meeting-notes-api/internal/transcriber"
)

// Retry policy for rate-limited transcription calls: up to maxAttempts total,
// waiting baseRetryDelay x attempt number between tries (5s, then 10s).
const (
	maxAttempts    = 3
	baseRetryDelay = 5 * time.Second
)

// sleepFunc pauses for d or returns early with the context's error.
// Injectable so tests can observe the retry schedule without waiting.
type sleepFunc func(ctx context.Context, d time.Duration) error

// defaultSleep waits with a timer, honoring context cancellation.
func defaultSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Transcription runs the upload -> transcript pipeline for one recording.
type Transcription struct {
	store       record.Store
	chunker     audio.Chunker
	transcriber transcriber.Transcriber
	logger      *slog.Logger
	sleep       sleepFunc
}

// TranscriptionOption configures a Transcription pipeline.
type TranscriptionOption func(*Transcription)

// WithSleep overrides the retry sleep function (used in tests).
func WithSleep(f func(ctx context.Context, d time.Duration) error) TranscriptionOption {
	return func(p *Transcription) {
		p.sleep = f
	}
}

// NewTranscription creates a transcription pipeline.
func NewTranscription(store record.Store, chunker audio.Chunker, tr transcriber.Transcriber, logger *slog.Logger, opts ...TranscriptionOption) *Transcription {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Transcription{
		store:       store,
		chunker:     chunker,
		transcriber: tr,
		logger:      logger,
		sleep:       defaultSleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run transcribes the recording identified by fileID: computes its duration,
// splits it into segments, transcribes each segment in order with granular
// progress persistence, and stores the joined transcript.
//
// A missing recording is a silent no-op. On failure the recording is
// persisted as failed with the error message and the error is returned;
// releasing the duplicate-run guard is the caller's responsibility on both
// paths.
func (p *Transcription) Run(ctx context.Context, fileID string) error {
	rec, err := p.store.GetRecording(ctx, fileID)
	if err != nil {
		if errors.Is(err, record.ErrRecordingNotFound) {
			p.logger.Warn("transcription requested for unknown recording",
				slog.String("file_id", fileID),
			)
			return nil
		}
		return fmt.Errorf("load recording: %w", err)
	}

	if err := rec.MarkProcessing(); err != nil {
		return fmt.Errorf("recording %s: %w", fileID, err)
	}
	if err := p.store.SaveRecording(ctx, rec); err != nil {
		return fmt.Errorf("persist processing state: %w", err)
	}

	transcriptText, err := p.transcribe(ctx, rec)
	if err != nil {
		rec.Fail(err.Error())
		if saveErr := p.store.SaveRecording(ctx, rec); saveErr != nil {
			p.logger.Error("failed to persist failure state",
				slog.String("file_id", fileID),
				slog.String("error", saveErr.Error()),
			)
		}
		return err
	}

	if err := rec.Complete(transcriptText); err != nil {
		return fmt.Errorf("recording %s: %w", fileID, err)
	}
	if err := p.store.SaveRecording(ctx, rec); err != nil {
		return fmt.Errorf("persist transcript: %w", err)
	}

	p.logger.Info("transcription completed",
		slog.String("file_id", fileID),
		slog.Float64("duration_seconds", rec.DurationSeconds),
		slog.Int("transcript_chars", len(transcriptText)),
	)
	return nil
}

// transcribe performs the chunk/transcribe/progress loop and returns the
// joined transcript. The recording passed in is mutated and persisted as
// progress advances.
func (p *Transcription) transcribe(ctx context.Context, rec *record.Recording) (string, error) {
	rec.DurationSeconds = p.chunker.Duration(ctx, rec.FilePath)
	if err := p.store.SaveRecording(ctx, rec); err != nil {
		return "", fmt.Errorf("persist duration: %w", err)
	}

	chunks, err := p.chunker.Chunk(ctx, rec.FilePath)
	if err != nil {
		return "", fmt.Errorf("chunk audio: %w", err)
	}
	// Segment files belong to this run; the original upload is kept.
	if len(chunks) > 1 {
		defer audio.Cleanup(p.logger, chunks)
	}

	transcripts := make([]string, 0, len(chunks))
	for i, chunkPath := range chunks {
		text, err := p.transcribeWithRetry(ctx, chunkPath)
		if err != nil {
			return "", fmt.Errorf("transcribe segment %d/%d: %w", i+1, len(chunks), err)
		}
		transcripts = append(transcripts, text)

		rec.SetProgress(100 * (i + 1) / len(chunks))
		if err := p.store.SaveRecording(ctx, rec); err != nil {
			return "", fmt.Errorf("persist progress: %w", err)
		}
	}

	return strings.Join(transcripts, " "), nil
}

// transcribeWithRetry retries rate-limited calls with a linear backoff
// (5s x attempt number). Any other error propagates immediately.
func (p *Transcription) transcribeWithRetry(ctx context.Context, path string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, err := p.transcriber.Transcribe(ctx, path)
		if err == nil {
			return text, nil
		}
		if !errors.Is(err, transcriber.ErrRateLimited) {
			return "", err
		}
		lastErr = err

		if attempt < maxAttempts {
			delay := baseRetryDelay * time.Duration(attempt)
			p.logger.Warn("rate limited, backing off",
				slog.String("path", path),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
			)
			if err := p.sleep(ctx, delay); err != nil {
				return "", err
			}
		}
	}
	return "", lastErr
}
