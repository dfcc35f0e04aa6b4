package service

import (
	"strings"
	"unicode/utf8"
)

// SegmentConfig controls how extracted document text is split into chunks.
type SegmentConfig struct {
	MaxChunkSize int
	MinChunkSize int
	NoiseFloor   int
}

// DefaultSegmentConfig provides sane defaults for segmentation.
func DefaultSegmentConfig() SegmentConfig {
	return SegmentConfig{
		MaxChunkSize: 1500,
		MinChunkSize: 500,
		NoiseFloor:   50,
	}
}

// segmentText splits text into size-bounded, paragraph-aligned chunks.
//
// The scan proposes a boundary MaxChunkSize characters ahead and grows it
// forward to the next paragraph break when one exists; the boundary is never
// pulled earlier than the proposed position. Slices shorter than MinChunkSize
// accumulate in a carry buffer (blank-line separated) until the combined text
// meets the minimum. A short trailing carry merges into the previous chunk.
// Chunks whose trimmed length is at or below NoiseFloor are dropped.
func segmentText(text string, cfg SegmentConfig) []string {
	if cfg.MaxChunkSize <= 0 || cfg.MinChunkSize <= 0 {
		cfg = DefaultSegmentConfig()
	}

	runes := []rune(text)
	chunks := make([]string, 0, 8)
	carry := ""

	pos := 0
	for pos < len(runes) {
		end := pos + cfg.MaxChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else if idx := nextParagraphBreak(runes, end); idx >= 0 {
			end = idx
		}

		piece := strings.TrimSpace(string(runes[pos:end]))
		candidate := piece
		if carry != "" {
			if piece != "" {
				candidate = carry + "\n\n" + piece
			} else {
				candidate = carry
			}
		}

		if utf8.RuneCountInString(candidate) >= cfg.MinChunkSize {
			chunks = append(chunks, candidate)
			carry = ""
		} else {
			carry = candidate
		}

		pos = end
	}

	switch {
	case utf8.RuneCountInString(carry) >= cfg.MinChunkSize:
		chunks = append(chunks, carry)
	case len(chunks) > 0:
		if carry != "" {
			chunks[len(chunks)-1] += "\n\n" + carry
		}
	default:
		// Short input produces a single chunk; the noise filter below drops
		// it again when it is empty or trivially small.
		chunks = append(chunks, carry)
	}

	filtered := chunks[:0]
	for _, chunk := range chunks {
		if utf8.RuneCountInString(strings.TrimSpace(chunk)) > cfg.NoiseFloor {
			filtered = append(filtered, chunk)
		}
	}
	return filtered
}

// nextParagraphBreak returns the index of the first "\n\n" at or after from,
// or -1 when none remains.
func nextParagraphBreak(runes []rune, from int) int {
	for i := from; i+1 < len(runes); i++ {
		if runes[i] == '\n' && runes[i+1] == '\n' {
			return i
		}
	}
	return -1
}
