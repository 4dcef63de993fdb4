// Package text_test tests the byte-bounded script segmenter.
package text_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papercast-dev/papercast/internal/core"
	"github.com/papercast-dev/papercast/internal/speech/text"
)

func chunkTexts(chunks []core.TextChunk) []string {
	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		out = append(out, chunk.Text)
	}

	return out
}

func TestNewSegmenterRejectsNonPositiveBudget(t *testing.T) {
	t.Parallel()

	for _, budget := range []int{0, -1, -100} {
		_, err := text.NewSegmenter(budget)
		require.Error(t, err)
		require.ErrorIs(t, err, core.ErrConfiguration)
	}
}

func TestSplitShortTextIsSingleChunkEqualToInput(t *testing.T) {
	t.Parallel()

	segmenter, err := text.NewSegmenter(100)
	require.NoError(t, err)

	input := "A short announcement."
	chunks := segmenter.Split(input)

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, input, chunks[0].Text)
}

func TestSplitPrefersSentenceBoundaries(t *testing.T) {
	t.Parallel()

	segmenter, err := text.NewSegmenter(4)
	require.NoError(t, err)

	chunks := segmenter.Split("A. B. C.")

	assert.Equal(t, []string{"A.", "B.", "C."}, chunkTexts(chunks))

	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Text), 4)
	}
}

func TestSplitKeepsSentencesTogetherWithinBudget(t *testing.T) {
	t.Parallel()

	segmenter, err := text.NewSegmenter(20)
	require.NoError(t, err)

	chunks := segmenter.Split("Hello world. Goodbye moon. The end.")

	assert.Equal(
		t,
		[]string{"Hello world.", "Goodbye moon.", "The end."},
		chunkTexts(chunks),
	)
}

func TestSplitOrdinalsAreSequential(t *testing.T) {
	t.Parallel()

	segmenter, err := text.NewSegmenter(10)
	require.NoError(t, err)

	chunks := segmenter.Split("One two three. Four five six. Seven eight nine.")

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
	}
}

func TestSplitHandlesCJKTerminator(t *testing.T) {
	t.Parallel()

	segmenter, err := text.NewSegmenter(16)
	require.NoError(t, err)

	chunks := segmenter.Split("첫 번째 문장。두 번째 문장。")

	require.NotEmpty(t, chunks)

	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Text), 16)
		assert.True(t, utf8.ValidString(chunk.Text))
	}
}

func TestSplitNeverDividesMultiByteCodepoint(t *testing.T) {
	t.Parallel()

	segmenter, err := text.NewSegmenter(7)
	require.NoError(t, err)

	input := strings.Repeat("가", 10)
	chunks := segmenter.Split(input)

	require.NotEmpty(t, chunks)

	var rebuilt strings.Builder

	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Text), 7)
		assert.True(t, utf8.ValidString(chunk.Text))
		rebuilt.WriteString(chunk.Text)
	}

	// Content survives; only the restored terminator is extra.
	assert.Equal(t, input, strings.TrimSuffix(strings.ReplaceAll(rebuilt.String(), " ", ""), "."))
}

func TestSplitBudgetHoldsForArbitraryText(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"The quick brown fox jumps over the lazy dog. " +
			"Pack my box with five dozen liquor jugs. " +
			"Sphinx of black quartz, judge my vow.",
		strings.Repeat("word ", 200),
		"짧은 한국어 문장입니다. 두 번째 문장도 있습니다. 세 번째 문장까지 이어집니다.",
	}

	for _, budget := range []int{8, 25, 64, 512} {
		segmenter, err := text.NewSegmenter(budget)
		require.NoError(t, err)

		for _, input := range inputs {
			for _, chunk := range segmenter.Split(input) {
				assert.LessOrEqual(t, len(chunk.Text), budget)
				assert.True(t, utf8.ValidString(chunk.Text))
				assert.NotEmpty(t, strings.TrimSpace(chunk.Text))
			}
		}
	}
}
