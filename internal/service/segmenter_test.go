package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentText_ShortInputSingleChunk(t *testing.T) {
	text := strings.Repeat("go ", 40) // 120 chars, below the 500 minimum
	chunks := segmentText(text, DefaultSegmentConfig())

	require.Len(t, chunks, 1)
	assert.Equal(t, strings.TrimSpace(text), chunks[0])
}

func TestSegmentText_ShortInputBelowNoiseFloor(t *testing.T) {
	chunks := segmentText("tiny note", DefaultSegmentConfig())
	assert.Empty(t, chunks)
}

func TestSegmentText_EmptyInput(t *testing.T) {
	assert.Empty(t, segmentText("", DefaultSegmentConfig()))
}

func TestSegmentText_WhitespaceOnlyInput(t *testing.T) {
	assert.Empty(t, segmentText(" \n\n\t  \n ", DefaultSegmentConfig()))
}

func TestSegmentText_LongDocumentWithParagraphBreaks(t *testing.T) {
	// 4000 characters with two paragraph breaks.
	para1 := strings.Repeat("a", 1000)
	para2 := strings.Repeat("b", 1600)
	para3 := strings.Repeat("c", 1396)
	text := para1 + "\n\n" + para2 + "\n\n" + para3
	require.Equal(t, 4000, len(text))

	chunks := segmentText(text, DefaultSegmentConfig())

	require.GreaterOrEqual(t, len(chunks), 2)
	require.LessOrEqual(t, len(chunks), 3)
	for i, chunk := range chunks[:len(chunks)-1] {
		assert.GreaterOrEqual(t, len(chunk), 500, "chunk %d below minimum", i)
	}
}

func TestSegmentText_BoundaryGrowsToParagraphBreak(t *testing.T) {
	// The break sits after the proposed 1500-char boundary, so the first
	// chunk extends forward to it instead of cutting mid-paragraph.
	para1 := strings.Repeat("a", 1800)
	para2 := strings.Repeat("b", 900)
	text := para1 + "\n\n" + para2

	chunks := segmentText(text, DefaultSegmentConfig())

	require.Len(t, chunks, 2)
	assert.Equal(t, para1, chunks[0])
	assert.Equal(t, para2, chunks[1])
}

func TestSegmentText_NoParagraphBreakCutsAtMax(t *testing.T) {
	text := strings.Repeat("x", 3000)
	chunks := segmentText(text, DefaultSegmentConfig())

	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], 1500)
	assert.Len(t, chunks[1], 1500)
}

func TestSegmentText_CarryAccumulatesShortSlices(t *testing.T) {
	cfg := SegmentConfig{MaxChunkSize: 10, MinChunkSize: 25, NoiseFloor: 0}
	text := "aaaaaaaaaa" + "bbbbbbbbbb" + "cccccccccc"

	chunks := segmentText(text, cfg)

	// Two 10-char slices stay in the carry; the third pushes the combined
	// length past the minimum.
	require.Len(t, chunks, 1)
	assert.Equal(t, "aaaaaaaaaa\n\nbbbbbbbbbb\n\ncccccccccc", chunks[0])
}

func TestSegmentText_TrailingCarryMergesIntoPreviousChunk(t *testing.T) {
	cfg := SegmentConfig{MaxChunkSize: 10, MinChunkSize: 8, NoiseFloor: 0}
	text := "aaaaaaaaaa" + "bb"

	chunks := segmentText(text, cfg)

	require.Len(t, chunks, 1)
	assert.Equal(t, "aaaaaaaaaa\n\nbb", chunks[0])
}

func TestSegmentText_ContentPreservedUpToBoundaryWhitespace(t *testing.T) {
	text := strings.Repeat("alpha ", 300) + "\n\n" + strings.Repeat("beta ", 300)
	chunks := segmentText(text, DefaultSegmentConfig())
	require.NotEmpty(t, chunks)

	joined := strings.Join(chunks, "\n\n")
	squash := func(s string) string { return strings.Join(strings.Fields(s), " ") }
	assert.Equal(t, squash(text), squash(joined))
}

func TestSegmentText_DropsNoiseChunks(t *testing.T) {
	cfg := SegmentConfig{MaxChunkSize: 100, MinChunkSize: 10, NoiseFloor: 50}
	chunks := segmentText(strings.Repeat("z", 40), cfg)
	assert.Empty(t, chunks)
}
