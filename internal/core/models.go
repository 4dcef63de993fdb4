// Package core defines the domain model, the collaborator interfaces, and the
// error taxonomy shared by every stage of the episode pipeline.
package core

import "time"

// DocumentsPerEpisode is the number of documents every episode must embed.
// The Episode invariant is structural, so this is a constant rather than
// configuration.
const DocumentsPerEpisode = 3

// EpisodeIDFormat is the time layout used for run date keys.
const EpisodeIDFormat = "2006-01-02"

// EpisodeStatus is the processing status of an episode.
type EpisodeStatus string

// Episode statuses.
const (
	EpisodeStatusPending    EpisodeStatus = "pending"
	EpisodeStatusProcessing EpisodeStatus = "processing"
	EpisodeStatusCompleted  EpisodeStatus = "completed"
	EpisodeStatusFailed     EpisodeStatus = "failed"
)

// Document represents one externally sourced document embedded in an episode.
// Summary and ShortSummary are empty until the summarize stage populates them,
// exactly once; every other field is immutable after collection.
type Document struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Authors       []string  `json:"authors"`
	Abstract      string    `json:"abstract"`
	Summary       string    `json:"summary,omitempty"`
	ShortSummary  string    `json:"short_summary,omitempty"`
	URL           string    `json:"url"`
	PublishedDate string    `json:"published_date,omitempty"`
	Upvotes       int       `json:"upvotes"`
	Categories    []string  `json:"categories,omitempty"`
	ThumbnailURL  string    `json:"thumbnail_url,omitempty"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Episode represents one generated podcast episode, keyed by run date.
// It is constructed only at the finalize stage and is immutable afterwards.
type Episode struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	CreatedAt       time.Time     `json:"created_at"`
	Documents       []Document    `json:"documents"`
	AudioReference  string        `json:"audio_reference"`
	DurationSeconds int           `json:"audio_duration"`
	SizeBytes       int64         `json:"audio_size"`
	Status          EpisodeStatus `json:"status"`
	ErrorMessage    string        `json:"error_message,omitempty"`
}

// TextChunk is a byte-bounded slice of the narration script destined for one
// remote synthesis call. Index is the chunk's position in the original text.
type TextChunk struct {
	Index int
	Text  string
}

// AudioFragment is the binary result of synthesizing one text chunk. Index
// matches the source chunk's ordinal so the assembler can preserve order.
type AudioFragment struct {
	Index int
	Data  []byte
}
