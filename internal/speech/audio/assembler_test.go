// Package audio_test tests fragment assembly and duration derivation.
package audio_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papercast-dev/papercast/internal/core"
	"github.com/papercast-dev/papercast/internal/speech/audio"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "audio-test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = log.Close() })

	return log
}

func fragment(index, size int, fill byte) core.AudioFragment {
	data := make([]byte, size)
	for i := range data {
		data[i] = fill
	}

	return core.AudioFragment{Index: index, Data: data}
}

func TestAssembleSizeIsSumOfFragmentSizes(t *testing.T) {
	t.Parallel()

	assembler := audio.NewAssembler(testLogger(t))
	outputPath := filepath.Join(t.TempDir(), "episode.mp3")

	artifact, err := assembler.Assemble([]core.AudioFragment{
		fragment(0, 100, 'a'),
		fragment(1, 200, 'b'),
		fragment(2, 50, 'c'),
	}, outputPath)
	require.NoError(t, err)

	assert.Equal(t, int64(350), artifact.SizeBytes)
	assert.Len(t, artifact.Data, 350)

	written, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Len(t, written, 350)
}

func TestAssemblePreservesOrdinalOrder(t *testing.T) {
	t.Parallel()

	assembler := audio.NewAssembler(testLogger(t))
	outputPath := filepath.Join(t.TempDir(), "episode.mp3")

	// Fragments supplied out of order still concatenate by ordinal.
	artifact, err := assembler.Assemble([]core.AudioFragment{
		{Index: 2, Data: []byte("CC")},
		{Index: 0, Data: []byte("AA")},
		{Index: 1, Data: []byte("BB")},
	}, outputPath)
	require.NoError(t, err)

	assert.Equal(t, []byte("AABBCC"), artifact.Data)
}

func TestAssembleFallsBackToSizeEstimateOnUnparseableData(t *testing.T) {
	t.Parallel()

	assembler := audio.NewAssembler(testLogger(t))
	outputPath := filepath.Join(t.TempDir(), "episode.mp3")

	// Not valid MP3 frames; duration must come from the size estimate.
	artifact, err := assembler.Assemble([]core.AudioFragment{
		fragment(0, 40*1024, 'x'),
	}, outputPath)
	require.NoError(t, err)

	// ceil(40 KiB / 16 KiB per second) = 3.
	assert.Equal(t, 3, artifact.DurationSeconds)
}

func TestAssembleDurationHasFloorOfOneSecond(t *testing.T) {
	t.Parallel()

	assembler := audio.NewAssembler(testLogger(t))
	outputPath := filepath.Join(t.TempDir(), "episode.mp3")

	artifact, err := assembler.Assemble([]core.AudioFragment{
		fragment(0, 16, 'x'),
	}, outputPath)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, artifact.DurationSeconds, 1)
}

func TestAssembleRejectsEmptyFragmentList(t *testing.T) {
	t.Parallel()

	assembler := audio.NewAssembler(testLogger(t))

	_, err := assembler.Assemble(nil, filepath.Join(t.TempDir(), "episode.mp3"))
	require.ErrorIs(t, err, audio.ErrNoFragments)
}

func TestEstimateDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		size     int64
		expected int
	}{
		{name: "zero bytes floors at one", size: 0, expected: 1},
		{name: "under one second floors at one", size: 100, expected: 1},
		{name: "exactly one second", size: 16 * 1024, expected: 1},
		{name: "rounds up to next second", size: 16*1024 + 1, expected: 2},
		{name: "multiple seconds", size: 160 * 1024, expected: 10},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.expected, audio.EstimateDuration(testCase.size))
		})
	}
}
