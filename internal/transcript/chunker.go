package transcript

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxChars is the transcript chunk budget in characters.
// The summarization model handles far more, but staying conservative keeps
// each request well inside its context window (~25k tokens).
const DefaultMaxChars = 100000

// Chunk splits a transcript into pieces that fit within maxChars each.
// It prefers to break on a paragraph boundary ("\n\n") inside the window,
// falls back to a sentence boundary (". ") past the halfway point, and hard
// cuts at the budget when neither exists. Chunks are trimmed of surrounding
// whitespace. maxChars values below 1 fall back to DefaultMaxChars.
func Chunk(text string, maxChars int) []string {
	if maxChars < 1 {
		maxChars = DefaultMaxChars
	}
	if len(text) <= maxChars {
		return []string{text}
	}

	var chunks []string
	remaining := text

	for remaining != "" {
		if len(remaining) <= maxChars {
			chunks = append(chunks, remaining)
			break
		}

		cut := breakPoint(remaining, maxChars)

		chunk := strings.TrimSpace(remaining[:cut])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		remaining = strings.TrimSpace(remaining[cut:])
	}

	return chunks
}

// breakPoint returns how many bytes of text make up the next chunk.
// Boundaries closer to the start than half the window are ignored so chunks
// do not degenerate.
func breakPoint(text string, maxChars int) int {
	window := text[:maxChars]
	half := maxChars / 2

	if idx := strings.LastIndex(window, "\n\n"); idx >= half {
		return idx + 1
	}
	if idx := strings.LastIndex(window, ". "); idx >= half {
		return idx + 1
	}

	// Hard cut at the budget, backed off so a multi-byte rune is never split.
	cut := maxChars
	for cut > 1 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return cut
}
