// Package stagelog_test tests the stage record state machine.
package stagelog_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papercast-dev/papercast/internal/stagelog"
)

var testStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestStartCreatesStartedRecord(t *testing.T) {
	t.Parallel()

	record := stagelog.Start("2025-06-01", stagelog.StageCollect, testStart)

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "2025-06-01", record.EpisodeID)
	assert.Equal(t, stagelog.StageCollect, record.Stage)
	assert.Equal(t, stagelog.StatusStarted, record.Status)
	assert.Equal(t, testStart, record.StartedAt)
	assert.Nil(t, record.CompletedAt)
}

func TestCompletedDerivesWholeSecondDuration(t *testing.T) {
	t.Parallel()

	record := stagelog.Start("2025-06-01", stagelog.StageSummarize, testStart)

	completed, err := record.Completed(testStart.Add(7*time.Second + 900*time.Millisecond))
	require.NoError(t, err)

	assert.Equal(t, stagelog.StatusCompleted, completed.Status)
	assert.Equal(t, 7, completed.DurationSeconds)
	require.NotNil(t, completed.CompletedAt)
}

func TestCompletedZeroElapsedTime(t *testing.T) {
	t.Parallel()

	record := stagelog.Start("2025-06-01", stagelog.StagePersist, testStart)

	completed, err := record.Completed(testStart)
	require.NoError(t, err)
	assert.Equal(t, 0, completed.DurationSeconds)
}

func TestFailedRecordsTruncatedError(t *testing.T) {
	t.Parallel()

	record := stagelog.Start("2025-06-01", stagelog.StageSynthesize, testStart)

	failed, err := record.Failed(testStart.Add(5*time.Second), "boom")
	require.NoError(t, err)

	assert.Equal(t, stagelog.StatusFailed, failed.Status)
	assert.Equal(t, 5, failed.DurationSeconds)
	assert.Equal(t, "boom", failed.ErrorMessage)
}

func TestFailedTruncatesLongError(t *testing.T) {
	t.Parallel()

	record := stagelog.Start("2025-06-01", stagelog.StageCollect, testStart)
	long := strings.Repeat("x", 5000)

	failed, err := record.Failed(testStart.Add(time.Second), long)
	require.NoError(t, err)
	assert.Len(t, failed.ErrorMessage, stagelog.MaxErrorMessageLength)
}

func TestFailedTruncatesOnCharacterBoundary(t *testing.T) {
	t.Parallel()

	record := stagelog.Start("2025-06-01", stagelog.StageCollect, testStart)
	long := strings.Repeat("x", stagelog.MaxErrorMessageLength-1) + "가나다"

	failed, err := record.Failed(testStart.Add(time.Second), long)
	require.NoError(t, err)

	assert.True(t, utf8.ValidString(failed.ErrorMessage))
	assert.Len(t, []rune(failed.ErrorMessage), stagelog.MaxErrorMessageLength)
	assert.True(t, strings.HasSuffix(failed.ErrorMessage, "가"))
}

func TestTerminalTransitionHappensExactlyOnce(t *testing.T) {
	t.Parallel()

	record := stagelog.Start("2025-06-01", stagelog.StageFinalize, testStart)

	completed, err := record.Completed(testStart.Add(time.Second))
	require.NoError(t, err)

	_, err = completed.Completed(testStart.Add(2 * time.Second))
	require.ErrorIs(t, err, stagelog.ErrAlreadyTerminal)

	_, err = completed.Failed(testStart.Add(2*time.Second), "late failure")
	require.ErrorIs(t, err, stagelog.ErrAlreadyTerminal)
}

func TestWithRetryCountClampsToBounds(t *testing.T) {
	t.Parallel()

	record := stagelog.Start("2025-06-01", stagelog.StageCollect, testStart)

	assert.Equal(t, 0, record.WithRetryCount(-2).RetryCount)
	assert.Equal(t, 2, record.WithRetryCount(2).RetryCount)
	assert.Equal(t, stagelog.MaxRetryCount, record.WithRetryCount(9).RetryCount)
}

func TestWithMetadataDoesNotShareMaps(t *testing.T) {
	t.Parallel()

	record := stagelog.Start("2025-06-01", stagelog.StageCollect, testStart)

	first := record.WithMetadata("papers_count", 3)
	second := first.WithMetadata("fallbacks_used", 1)

	assert.Len(t, first.Metadata, 1)
	assert.Len(t, second.Metadata, 2)
	assert.Equal(t, 3, second.Metadata["papers_count"])
}

func TestRecorderMarshalsOrderedRunLog(t *testing.T) {
	t.Parallel()

	recorder := stagelog.NewRecorder()

	collect := stagelog.Start("2025-06-01", stagelog.StageCollect, testStart)
	collected, err := collect.Completed(testStart.Add(2 * time.Second))
	require.NoError(t, err)
	recorder.Append(collected)

	summarize := stagelog.Start("2025-06-01", stagelog.StageSummarize, testStart.Add(2*time.Second))
	failed, err := summarize.Failed(testStart.Add(4*time.Second), "upstream down")
	require.NoError(t, err)
	recorder.Append(failed)

	data, err := recorder.MarshalLog()
	require.NoError(t, err)

	var decoded []stagelog.Record

	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, stagelog.StageCollect, decoded[0].Stage)
	assert.Equal(t, stagelog.StageSummarize, decoded[1].Stage)
	assert.Equal(t, "upstream down", decoded[1].ErrorMessage)
}
