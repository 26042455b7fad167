package splitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmptyInput(t *testing.T) {
	chunks, err := Split("", 1000, 200)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"negative overlap", 100, -1},
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Split("some text", tc.size, tc.overlap)
			assert.ErrorIs(t, err, ErrBadChunkConfig)
		})
	}
}

func TestSplitShortInputSingleChunk(t *testing.T) {
	text := "A short paragraph that fits."
	chunks, err := Split(text, 1000, 200)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Start)
}

func TestSplitSizeBound(t *testing.T) {
	text := strings.Repeat("revenue grew twelve percent year over year. ", 200)
	chunks, err := Split(text, 1000, 200)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.LessOrEqualf(t, len([]rune(c.Text)), 1000, "chunk %d exceeds size", i)
		assert.NotEmpty(t, c.Text)
	}
}

func TestSplitCoversInputExactly(t *testing.T) {
	text := strings.Repeat("Total assets were $4.2 billion at year end.\n", 120)
	chunks, err := Split(text, 500, 100)
	require.NoError(t, err)

	runes := []rune(text)
	require.Equal(t, 0, chunks[0].Start)
	require.Equal(t, len(runes), chunks[len(chunks)-1].End())

	for i, c := range chunks {
		// Each chunk is a literal substring at its recorded offset.
		assert.Equal(t, string(runes[c.Start:c.End()]), c.Text, "chunk %d", i)
		if i > 0 {
			prev := chunks[i-1]
			assert.LessOrEqual(t, c.Start, prev.End(), "gap before chunk %d", i)
			assert.Greater(t, c.Start, prev.Start, "no progress at chunk %d", i)
		}
	}
}

func TestSplitOverlapBound(t *testing.T) {
	text := strings.Repeat("Operating margin improved across all segments this quarter. ", 100)
	overlap := 150
	chunks, err := Split(text, 600, overlap)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		shared := chunks[i-1].End() - chunks[i].Start
		assert.LessOrEqualf(t, shared, overlap, "overlap too large between chunks %d and %d", i-1, i)
	}
}

func TestSplitPrefersParagraphBoundary(t *testing.T) {
	para := strings.Repeat("x", 90)
	text := para + "\n\n" + strings.Repeat("y", 90)
	chunks, err := Split(text, 100, 20)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	// First chunk should end at the paragraph break, not a hard cut at 100.
	assert.True(t, strings.HasSuffix(chunks[0].Text, "\n\n"))
}

func TestSplitHardCutWithoutBoundaries(t *testing.T) {
	text := strings.Repeat("a", 250)
	chunks, err := Split(text, 100, 20)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	assert.Len(t, []rune(chunks[0].Text), 100)
}

func TestSplitZeroOverlap(t *testing.T) {
	text := strings.Repeat("b", 350)
	chunks, err := Split(text, 100, 0)
	require.NoError(t, err)
	for i := 1; i < len(chunks); i++ {
		assert.GreaterOrEqual(t, chunks[i].Start, chunks[i-1].End())
	}
	assert.Equal(t, len([]rune(text)), chunks[len(chunks)-1].End())
}

func TestSplitMultibyteRunes(t *testing.T) {
	text := strings.Repeat("营业收入同比增长十二个百分点。", 60)
	chunks, err := Split(text, 100, 20)
	require.NoError(t, err)
	runes := []rune(text)
	for i, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c.Text)), 100)
		assert.Equal(t, string(runes[c.Start:c.End()]), c.Text, "chunk %d", i)
	}
	assert.Equal(t, len(runes), chunks[len(chunks)-1].End())
}
