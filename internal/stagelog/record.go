// Package stagelog records per-stage timing, status, retries, and failure
// text for one pipeline run.
package stagelog

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Stage names one discrete pipeline phase.
type Stage string

// Pipeline stages, in execution order.
const (
	StageCollect    Stage = "collect"
	StageSummarize  Stage = "summarize"
	StageSynthesize Stage = "synthesize"
	StagePersist    Stage = "persist"
	StageFinalize   Stage = "finalize"
)

// Status is the lifecycle state of a stage record.
type Status string

// Record statuses. A record is created started and transitions exactly once
// to completed or failed; retrying is a valid transient status in the schema
// for callers that surface mid-stage retries.
const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRetrying  Status = "retrying"
)

// MaxErrorMessageLength bounds the persisted failure text.
const MaxErrorMessageLength = 1000

// MaxRetryCount bounds the recorded retry count.
const MaxRetryCount = 3

// ErrAlreadyTerminal is returned when a terminal transition is applied to a
// record that already reached completed or failed.
var ErrAlreadyTerminal = errors.New("stage record is already terminal")

// Record is one stage's log entry. Terminal transitions return a new value
// instead of mutating in place, so a record can never be double-terminated.
type Record struct {
	ID              string         `json:"id"`
	EpisodeID       string         `json:"episode_id"`
	Stage           Stage          `json:"stage"`
	Status          Status         `json:"status"`
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	DurationSeconds int            `json:"duration"`
	RetryCount      int            `json:"retry_count"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Start creates a record in the started state.
func Start(episodeID string, stage Stage, now time.Time) Record {
	return Record{
		ID:              uuid.NewString(),
		EpisodeID:       episodeID,
		Stage:           stage,
		Status:          StatusStarted,
		StartedAt:       now,
		CompletedAt:     nil,
		DurationSeconds: 0,
		RetryCount:      0,
		ErrorMessage:    "",
		Metadata:        nil,
	}
}

// Completed returns a copy of the record in the completed state with its
// duration derived from the wall-clock delta.
func (r Record) Completed(now time.Time) (Record, error) {
	if r.terminal() {
		return r, ErrAlreadyTerminal
	}

	r.Status = StatusCompleted
	r.CompletedAt = &now
	r.DurationSeconds = wholeSeconds(r.StartedAt, now)

	return r, nil
}

// Failed returns a copy of the record in the failed state, carrying the
// failure text truncated to MaxErrorMessageLength.
func (r Record) Failed(now time.Time, message string) (Record, error) {
	if r.terminal() {
		return r, ErrAlreadyTerminal
	}

	r.Status = StatusFailed
	r.CompletedAt = &now
	r.DurationSeconds = wholeSeconds(r.StartedAt, now)
	r.ErrorMessage = Truncate(message)

	return r, nil
}

// WithRetryCount returns a copy of the record with its retry count set,
// clamped to [0, MaxRetryCount].
func (r Record) WithRetryCount(retries int) Record {
	if retries < 0 {
		retries = 0
	}

	if retries > MaxRetryCount {
		retries = MaxRetryCount
	}

	r.RetryCount = retries

	return r
}

// WithMetadata returns a copy of the record with the key set in its metadata
// map. The original record's map is never shared.
func (r Record) WithMetadata(key string, value any) Record {
	merged := make(map[string]any, len(r.Metadata)+1)
	for k, v := range r.Metadata {
		merged[k] = v
	}

	merged[key] = value
	r.Metadata = merged

	return r
}

// Truncate bounds failure text to the persisted maximum, counted in
// characters so a cut never leaves a partial codepoint behind.
func Truncate(message string) string {
	runes := []rune(message)
	if len(runes) > MaxErrorMessageLength {
		return string(runes[:MaxErrorMessageLength])
	}

	return message
}

func (r Record) terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// wholeSeconds is the non-negative whole-second delta between two instants.
func wholeSeconds(start, end time.Time) int {
	seconds := int(end.Sub(start) / time.Second)
	if seconds < 0 {
		return 0
	}

	return seconds
}
