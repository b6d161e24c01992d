// Package audio provides duration probing and chunking of audio files for a
// size-limited transcription API.
package audio

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
)

// ChunkOpts configures audio chunking.
type ChunkOpts struct {
	// MaxChunkSeconds is the maximum duration of a single segment.
	// Files at or below this duration are not split.
	// Default: 600 seconds (10 minutes, where the transcription API
	// performs best and stays under its upload limit).
	MaxChunkSeconds float64

	// OverlapSeconds is the overlap between consecutive segments so words
	// at a boundary are not truncated. Default: 1 second.
	OverlapSeconds float64
}

// DefaultChunkOpts returns the default chunking options.
func DefaultChunkOpts() ChunkOpts {
	return ChunkOpts{
		MaxChunkSeconds: 600,
		OverlapSeconds:  1,
	}
}

// Chunker defines the interface for splitting audio files into
// bounded-duration segments.
type Chunker interface {
	// Chunk splits an audio file into segments no longer than the
	// configured maximum, with a fixed overlap at each internal boundary.
	// If the file fits in a single segment, the returned slice contains
	// only the original path and no copy is made. Segment files are
	// written to a process-temporary directory; ownership passes to the
	// caller, who releases them with Cleanup.
	Chunk(ctx context.Context, path string) ([]string, error)

	// Duration reports the audio duration in seconds, or 0 when the
	// decoding capability is unavailable.
	Duration(ctx context.Context, path string) float64
}

// segment is a planned [start, end) slice of the source audio in seconds.
type segment struct {
	start float64
	end   float64
}

// planSegments computes segment boundaries for an audio file of the given
// duration. Each segment covers at most maxSec seconds and consecutive
// segments overlap by overlapSec at each internal boundary.
func planSegments(duration, maxSec, overlapSec float64) []segment {
	var segments []segment
	start := 0.0
	for start < duration {
		end := start + maxSec
		if end > duration {
			end = duration
		}
		segments = append(segments, segment{start: start, end: end})
		if end >= duration {
			break
		}
		start = end - overlapSec
	}
	return segments
}

// Cleanup releases segment files produced by a Chunker. Each file is deleted
// if present and its parent directory removed once empty. Cleanup is
// best-effort: every error is logged and swallowed, it never fails.
func Cleanup(logger *slog.Logger, paths []string) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove chunk file",
				slog.String("path", p),
				slog.String("error", err.Error()),
			)
			continue
		}
		// Remove the parent directory only if it became empty.
		parent := filepath.Dir(p)
		entries, err := os.ReadDir(parent)
		if err != nil || len(entries) > 0 {
			continue
		}
		if err := os.Remove(parent); err != nil {
			logger.Warn("failed to remove chunk directory",
				slog.String("path", parent),
				slog.String("error", err.Error()),
			)
		}
	}
}
