// Package text splits narration scripts into byte-bounded, sentence-respecting
// chunks sized for the remote synthesis call's per-request budget.
package text

import (
	"fmt"
	"strings"

	"github.com/papercast-dev/papercast/internal/core"
)

// Sentence terminator substrings recognized as preferred chunk boundaries.
const (
	asciiTerminator = ". "
	cjkTerminator   = "。"
)

// Segmenter produces ordered text chunks whose UTF-8 encoded length never
// exceeds the configured byte budget. Boundaries prefer sentence terminators;
// a single oversized sentence falls back to a rune-greedy split that never
// divides a multi-byte codepoint.
type Segmenter struct {
	maxBytes int
}

// NewSegmenter creates a segmenter for the given byte budget. A non-positive
// budget is a configuration error.
func NewSegmenter(maxBytes int) (*Segmenter, error) {
	if maxBytes <= 0 {
		return nil, fmt.Errorf(
			"%w: chunk byte budget must be positive, got %d",
			core.ErrConfiguration,
			maxBytes,
		)
	}

	return &Segmenter{maxBytes: maxBytes}, nil
}

// Split segments input into ordered chunks. Text already within the budget
// short-circuits to a single chunk equal to the input.
func (s *Segmenter) Split(input string) []core.TextChunk {
	if len(input) <= s.maxBytes {
		return []core.TextChunk{{Index: 0, Text: input}}
	}

	var chunks []string

	current := ""

	for _, sentence := range splitSentences(input) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		withTerminator := restoreTerminator(sentence) + " "

		candidate := current + withTerminator
		if len(candidate) <= s.maxBytes {
			current = candidate

			continue
		}

		if trimmed := strings.TrimSpace(current); trimmed != "" {
			chunks = append(chunks, trimmed)
		}

		current = withTerminator

		// A single sentence beyond the budget degrades to a greedy
		// rune split; the final fill stays open for more sentences.
		if len(current) > s.maxBytes {
			parts := splitRunes(current, s.maxBytes)
			chunks = append(chunks, parts[:len(parts)-1]...)
			current = parts[len(parts)-1]
		}
	}

	if trimmed := strings.TrimSpace(current); trimmed != "" {
		chunks = append(chunks, trimmed)
	}

	out := make([]core.TextChunk, 0, len(chunks))
	for index, chunk := range chunks {
		out = append(out, core.TextChunk{Index: index, Text: chunk})
	}

	return out
}

// splitSentences normalizes CJK full stops to the ASCII terminator and splits
// on it. The terminator itself is consumed and restored later.
func splitSentences(input string) []string {
	normalized := strings.ReplaceAll(input, cjkTerminator, asciiTerminator)

	return strings.Split(normalized, asciiTerminator)
}

// restoreTerminator puts back the period the sentence split consumed, unless
// the sentence already carries one.
func restoreTerminator(sentence string) string {
	if strings.HasSuffix(sentence, ".") {
		return sentence
	}

	return sentence + "."
}

// splitRunes greedily fills chunks rune by rune so no multi-byte codepoint is
// ever divided. A rune wider than the budget still becomes its own chunk;
// codepoint integrity takes precedence over the budget at that extreme.
func splitRunes(input string, maxBytes int) []string {
	var parts []string

	current := ""

	for _, r := range input {
		encoded := string(r)
		if len(current)+len(encoded) <= maxBytes {
			current += encoded

			continue
		}

		if current != "" {
			parts = append(parts, current)
		}

		current = encoded
	}

	parts = append(parts, current)

	return parts
}
