package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
)

// Compile-time check that FFmpegChunker implements Chunker.
var _ Chunker = (*FFmpegChunker)(nil)

// durationRe matches the "Duration: HH:MM:SS.ms" line ffmpeg prints to stderr.
var durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)

// FFmpegChunker implements Chunker using the ffmpeg CLI.
// When ffmpeg is not installed it degrades gracefully: Duration reports 0
// and Chunk returns the original file as the sole segment, so short
// recordings still flow through the pipeline on hosts without ffmpeg.
type FFmpegChunker struct {
	ffmpegPath string
	opts       ChunkOpts
}

// NewFFmpegChunker creates a new FFmpegChunker.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found in PATH).
func NewFFmpegChunker(ffmpegPath string, opts ChunkOpts) *FFmpegChunker {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if opts.MaxChunkSeconds <= 0 {
		opts.MaxChunkSeconds = DefaultChunkOpts().MaxChunkSeconds
	}
	if opts.OverlapSeconds <= 0 {
		opts.OverlapSeconds = DefaultChunkOpts().OverlapSeconds
	}
	return &FFmpegChunker{ffmpegPath: ffmpegPath, opts: opts}
}

// available reports whether the ffmpeg binary can be found.
func (c *FFmpegChunker) available() bool {
	_, err := exec.LookPath(c.ffmpegPath)
	return err == nil
}

// Duration implements Chunker.Duration by decoding the file with ffmpeg and
// parsing the reported duration. Returns 0 when ffmpeg is unavailable or the
// output cannot be parsed.
func (c *FFmpegChunker) Duration(ctx context.Context, path string) float64 {
	if !c.available() {
		return 0
	}

	cmd := exec.CommandContext(ctx, c.ffmpegPath,
		"-i", path,
		"-hide_banner",
		"-f", "null", "-",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// ffmpeg exits non-zero with a null output sink; the duration line is
	// still printed, so the exit code is ignored.
	_ = cmd.Run()

	matches := durationRe.FindStringSubmatch(stderr.String())
	if len(matches) < 5 {
		return 0
	}

	hours, _ := strconv.ParseFloat(matches[1], 64)
	minutes, _ := strconv.ParseFloat(matches[2], 64)
	seconds, _ := strconv.ParseFloat(matches[3], 64)
	frac, _ := strconv.ParseFloat(matches[4], 64)

	fracDivisor := 1.0
	for range matches[4] {
		fracDivisor *= 10
	}

	return hours*3600 + minutes*60 + seconds + frac/fracDivisor
}

// Chunk implements Chunker.Chunk. Segments are extracted with stream copy
// into a fresh temporary directory named after the source file.
func (c *FFmpegChunker) Chunk(ctx context.Context, path string) ([]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat input file: %w", err)
	}

	if !c.available() {
		return []string{path}, nil
	}

	duration := c.Duration(ctx, path)
	if duration <= c.opts.MaxChunkSeconds {
		return []string{path}, nil
	}

	segments := planSegments(duration, c.opts.MaxChunkSeconds, c.opts.OverlapSeconds)

	tempDir, err := os.MkdirTemp("", "chunks_"+strippedBase(path)+"_")
	if err != nil {
		return nil, fmt.Errorf("create chunk directory: %w", err)
	}

	ext := filepath.Ext(path)
	var chunks []string
	for i, seg := range segments {
		outputPath := filepath.Join(tempDir, fmt.Sprintf("chunk_%03d%s", i, ext))
		if err := c.extractSegment(ctx, path, outputPath, seg.start, seg.end-seg.start); err != nil {
			Cleanup(nil, chunks)
			_ = os.Remove(tempDir)
			return nil, fmt.Errorf("extract segment %d: %w", i, err)
		}
		chunks = append(chunks, outputPath)
	}

	return chunks, nil
}

// extractSegment extracts a portion of audio to a new file.
func (c *FFmpegChunker) extractSegment(ctx context.Context, inputPath, outputPath string, start, duration float64) error {
	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.3f", start),
		"-t", fmt.Sprintf("%.3f", duration),
		"-i", inputPath,
		"-c", "copy",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg error: %w, stderr: %s", err, stderr.String())
	}
	return nil
}

// strippedBase returns the filename without its extension for use in
// temporary directory names.
func strippedBase(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
