// Package pipeline orchestrates one episode run as a sequential state
// machine: collect, summarize, synthesize, persist, finalize. Each stage's
// output is the next stage's required input, and every stage is recorded in
// the run's stage log.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/book-expert/logger"

	"github.com/papercast-dev/papercast/internal/core"
	"github.com/papercast-dev/papercast/internal/retry"
	"github.com/papercast-dev/papercast/internal/speech"
	"github.com/papercast-dev/papercast/internal/speech/audio"
	"github.com/papercast-dev/papercast/internal/speech/text"
	"github.com/papercast-dev/papercast/internal/stagelog"
	"github.com/papercast-dev/papercast/internal/summarize"
)

// State is the orchestrator's position in the run lifecycle.
type State string

// Run states. Failed is reachable from every non-terminal state.
const (
	StateIdle         State = "idle"
	StateCollecting   State = "collecting"
	StateSummarizing  State = "summarizing"
	StateSynthesizing State = "synthesizing"
	StatePersisting   State = "persisting"
	StateFinalized    State = "finalized"
	StateFailed       State = "failed"
)

// Persisted object names under the run's date key.
const (
	metadataObjectName = "episode.json"
	stageLogObjectName = "stage-log.json"
)

// Stage metadata keys.
const (
	metaDocuments      = "documents"
	metaFullFallbacks  = "full_summary_fallbacks"
	metaShortFallbacks = "short_summary_fallbacks"
	metaChunks         = "chunks"
	metaDurationSecs   = "duration_seconds"
	metaSizeBytes      = "size_bytes"
	metaAudioReference = "audio_reference"
)

// ErrInsufficientDocuments aborts the run when the feed cannot supply a full
// episode. There is no way to fabricate missing source content.
var ErrInsufficientDocuments = errors.New("feed returned fewer documents than an episode needs")

// Deps are the collaborators one pipeline instance runs against.
type Deps struct {
	Source      core.DocumentSource
	Summarizer  core.Summarizer
	Segmenter   *text.Segmenter
	Synthesizer *speech.ChunkSynthesizer
	Assembler   *audio.Assembler
	Store       core.ObjectStore
	Policy      retry.Policy
	Log         *logger.Logger
}

// Options are the presentation and placement settings of one pipeline.
type Options struct {
	Voice         core.VoiceParams
	Language      string
	ShowTitle     string
	AudioFileName string
	WorkDir       string
}

// Result is the outcome of one run. Episode is populated only when the run
// reached Finalized; Records always carries the full stage log.
type Result struct {
	Episode core.Episode
	Records []stagelog.Record
}

// Pipeline runs one episode at a time. A pipeline owns no cross-run state
// beyond its collaborators; every run constructs its own documents, episode,
// and stage log.
type Pipeline struct {
	deps  Deps
	opts  Options
	state State
	now   func() time.Time
}

// New validates the collaborator set and returns an idle pipeline.
func New(deps Deps, opts Options) (*Pipeline, error) {
	switch {
	case deps.Source == nil:
		return nil, fmt.Errorf("%w: document source is required", core.ErrConfiguration)
	case deps.Summarizer == nil:
		return nil, fmt.Errorf("%w: summarizer is required", core.ErrConfiguration)
	case deps.Segmenter == nil:
		return nil, fmt.Errorf("%w: segmenter is required", core.ErrConfiguration)
	case deps.Synthesizer == nil:
		return nil, fmt.Errorf("%w: synthesizer is required", core.ErrConfiguration)
	case deps.Assembler == nil:
		return nil, fmt.Errorf("%w: assembler is required", core.ErrConfiguration)
	case deps.Store == nil:
		return nil, fmt.Errorf("%w: object store is required", core.ErrConfiguration)
	case deps.Log == nil:
		return nil, fmt.Errorf("%w: logger is required", core.ErrConfiguration)
	}

	if opts.AudioFileName == "" {
		opts.AudioFileName = "episode.mp3"
	}

	return &Pipeline{
		deps:  deps,
		opts:  opts,
		state: StateIdle,
		now:   time.Now,
	}, nil
}

// State reports the pipeline's current lifecycle state.
func (p *Pipeline) State() State {
	return p.state
}

// Run executes one full episode run. The stage log is persisted once at run
// end on both the success and the failure path; the episode itself is
// persisted only when the run reaches Finalized.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	episodeID := p.now().Format(core.EpisodeIDFormat)
	recorder := stagelog.NewRecorder()

	p.deps.Log.System("Starting episode run %s", episodeID)

	defer p.persistStageLog(ctx, episodeID, recorder)

	p.state = StateCollecting

	docs, err := p.collect(ctx, episodeID, recorder)
	if err != nil {
		return p.fail(recorder, err)
	}

	p.state = StateSummarizing
	p.summarizeAll(ctx, episodeID, recorder, docs)

	p.state = StateSynthesizing

	artifact, err := p.synthesize(ctx, episodeID, recorder, docs)
	if err != nil {
		return p.fail(recorder, err)
	}

	p.state = StatePersisting

	audioReference, err := p.persistAudio(ctx, episodeID, recorder, artifact)
	if err != nil {
		return p.fail(recorder, err)
	}

	episode, err := p.finalize(ctx, episodeID, recorder, docs, artifact, audioReference)
	if err != nil {
		return p.fail(recorder, err)
	}

	p.state = StateFinalized
	p.deps.Log.System("Episode run %s finalized: %s", episodeID, audioReference)

	return Result{Episode: episode, Records: recorder.Records()}, nil
}

func (p *Pipeline) fail(recorder *stagelog.Recorder, err error) (Result, error) {
	p.state = StateFailed
	p.deps.Log.Error("Episode run failed: %v", err)

	return Result{Episode: core.Episode{}, Records: recorder.Records()}, err
}

// collect fetches the episode's documents. Fewer than the required count is
// a hard abort.
func (p *Pipeline) collect(
	ctx context.Context,
	episodeID string,
	recorder *stagelog.Recorder,
) ([]core.Document, error) {
	record := stagelog.Start(episodeID, stagelog.StageCollect, p.now())

	docs, attempts, err := retry.DoValue(ctx, p.deps.Policy, "collect documents",
		func(ctx context.Context) ([]core.Document, error) {
			return p.deps.Source.Fetch(ctx, core.DocumentsPerEpisode)
		})
	if err == nil && len(docs) < core.DocumentsPerEpisode {
		err = fmt.Errorf(
			"%w: got %d, need %d",
			ErrInsufficientDocuments,
			len(docs),
			core.DocumentsPerEpisode,
		)
	}

	record = record.WithRetryCount(attempts - 1)
	if err != nil {
		p.appendFailed(recorder, record, err)

		return nil, fmt.Errorf("collect stage: %w", err)
	}

	record = record.WithMetadata(metaDocuments, len(docs))
	p.appendCompleted(recorder, record)

	return docs, nil
}

// summarizeAll populates Summary and ShortSummary on every document. Remote
// failures and invalid output degrade to deterministic fallbacks recorded as
// stage metadata, so this stage always completes.
func (p *Pipeline) summarizeAll(
	ctx context.Context,
	episodeID string,
	recorder *stagelog.Recorder,
	docs []core.Document,
) {
	record := stagelog.Start(episodeID, stagelog.StageSummarize, p.now())

	retries := 0
	fullFallbacks := 0
	shortFallbacks := 0

	for i := range docs {
		fullRetries, usedFallback := p.summarizeOne(ctx, &docs[i])

		retries += fullRetries
		if usedFallback {
			fullFallbacks++
		}

		shortRetries, usedShortFallback := p.shortSummarizeOne(ctx, &docs[i])

		retries += shortRetries
		if usedShortFallback {
			shortFallbacks++
		}
	}

	record = record.WithRetryCount(retries).
		WithMetadata(metaFullFallbacks, fullFallbacks).
		WithMetadata(metaShortFallbacks, shortFallbacks)
	p.appendCompleted(recorder, record)
}

// summarizeOne fills doc.Summary, falling back to document-derived text.
// It reports retries spent and whether the fallback was used.
func (p *Pipeline) summarizeOne(ctx context.Context, doc *core.Document) (int, bool) {
	summary, attempts, err := retry.DoValue(ctx, p.deps.Policy, "summarize "+doc.ID,
		func(ctx context.Context) (string, error) {
			return p.deps.Summarizer.Summarize(ctx, *doc, p.opts.Language)
		})
	if err == nil {
		err = summarize.ValidateSummary(summary)
	}

	retries := attempts - 1
	if retries < 0 {
		retries = 0
	}

	if err != nil {
		p.deps.Log.Warn("Summary for %q degraded to fallback: %v", doc.ID, err)
		doc.Summary = FallbackSummary(*doc)

		return retries, true
	}

	doc.Summary = summary

	return retries, false
}

// shortSummarizeOne fills doc.ShortSummary, falling back to the opening
// lines of the full summary. Must run after summarizeOne.
func (p *Pipeline) shortSummarizeOne(ctx context.Context, doc *core.Document) (int, bool) {
	short, attempts, err := retry.DoValue(ctx, p.deps.Policy, "short summary "+doc.ID,
		func(ctx context.Context) (string, error) {
			return p.deps.Summarizer.ShortSummarize(ctx, *doc, p.opts.Language)
		})
	if err == nil {
		err = summarize.ValidateShortSummary(short)
	}

	retries := attempts - 1
	if retries < 0 {
		retries = 0
	}

	if err != nil {
		p.deps.Log.Warn("Short summary for %q degraded to fallback: %v", doc.ID, err)
		doc.ShortSummary = FallbackShortSummary(doc.Summary)

		return retries, true
	}

	doc.ShortSummary = short

	return retries, false
}

// synthesize renders the narration script, chunks it, synthesizes every
// chunk, and assembles the episode audio in the work directory.
func (p *Pipeline) synthesize(
	ctx context.Context,
	episodeID string,
	recorder *stagelog.Recorder,
	docs []core.Document,
) (audio.Artifact, error) {
	record := stagelog.Start(episodeID, stagelog.StageSynthesize, p.now())

	script := BuildScript(p.opts.ShowTitle, episodeID, docs)
	chunks := p.deps.Segmenter.Split(script)

	fragments, retries, err := p.deps.Synthesizer.SynthesizeChunks(ctx, chunks, p.opts.Voice)

	record = record.WithRetryCount(retries).WithMetadata(metaChunks, len(chunks))
	if err != nil {
		p.appendFailed(recorder, record, err)

		return audio.Artifact{}, fmt.Errorf("synthesize stage: %w", err)
	}

	outputPath := filepath.Join(p.opts.WorkDir, episodeID, p.opts.AudioFileName)

	artifact, err := p.deps.Assembler.Assemble(fragments, outputPath)
	if err != nil {
		p.appendFailed(recorder, record, err)

		return audio.Artifact{}, fmt.Errorf("synthesize stage: %w", err)
	}

	record = record.WithMetadata(metaDurationSecs, artifact.DurationSeconds).
		WithMetadata(metaSizeBytes, artifact.SizeBytes)
	p.appendCompleted(recorder, record)

	return artifact, nil
}

// persistAudio uploads the assembled audio under the run's date key and
// returns the store reference.
func (p *Pipeline) persistAudio(
	ctx context.Context,
	episodeID string,
	recorder *stagelog.Recorder,
	artifact audio.Artifact,
) (string, error) {
	record := stagelog.Start(episodeID, stagelog.StagePersist, p.now())

	key := episodeID + "/" + p.opts.AudioFileName

	reference, attempts, err := retry.DoValue(ctx, p.deps.Policy, "persist audio",
		func(ctx context.Context) (string, error) {
			return p.deps.Store.Upload(ctx, key, artifact.Data)
		})

	record = record.WithRetryCount(attempts - 1)
	if err != nil {
		p.appendFailed(recorder, record, err)

		return "", fmt.Errorf("persist stage: %w", err)
	}

	record = record.WithMetadata(metaAudioReference, reference)
	p.appendCompleted(recorder, record)

	return reference, nil
}

// finalize constructs the immutable Episode and persists its metadata. Only
// a run that reaches this point leaves a persisted episode behind.
func (p *Pipeline) finalize(
	ctx context.Context,
	episodeID string,
	recorder *stagelog.Recorder,
	docs []core.Document,
	artifact audio.Artifact,
	audioReference string,
) (core.Episode, error) {
	record := stagelog.Start(episodeID, stagelog.StageFinalize, p.now())

	episode := core.Episode{
		ID:              episodeID,
		Title:           fmt.Sprintf("%s - %s", p.opts.ShowTitle, episodeID),
		Description:     episodeDescription(docs),
		CreatedAt:       p.now(),
		Documents:       docs,
		AudioReference:  audioReference,
		DurationSeconds: artifact.DurationSeconds,
		SizeBytes:       artifact.SizeBytes,
		Status:          core.EpisodeStatusCompleted,
		ErrorMessage:    "",
	}

	encoded, err := json.MarshalIndent(episode, "", "  ")
	if err != nil {
		p.appendFailed(recorder, record, err)

		return core.Episode{}, fmt.Errorf("finalize stage: %w", err)
	}

	key := episodeID + "/" + metadataObjectName

	_, attempts, err := retry.DoValue(ctx, p.deps.Policy, "persist episode metadata",
		func(ctx context.Context) (string, error) {
			return p.deps.Store.Upload(ctx, key, encoded)
		})

	record = record.WithRetryCount(attempts - 1)
	if err != nil {
		p.appendFailed(recorder, record, err)

		return core.Episode{}, fmt.Errorf("finalize stage: %w", err)
	}

	p.appendCompleted(recorder, record)

	return episode, nil
}

// persistStageLog uploads the run's stage log. It is best-effort: a run that
// already failed must not lose its primary error to a log upload failure.
func (p *Pipeline) persistStageLog(
	ctx context.Context,
	episodeID string,
	recorder *stagelog.Recorder,
) {
	encoded, err := recorder.MarshalLog()
	if err != nil {
		p.deps.Log.Error("Failed to marshal stage log for %s: %v", episodeID, err)

		return
	}

	key := episodeID + "/" + stageLogObjectName

	_, err = p.deps.Store.Upload(ctx, key, encoded)
	if err != nil {
		p.deps.Log.Error("Failed to persist stage log for %s: %v", episodeID, err)

		return
	}

	p.deps.Log.Info("Persisted stage log for %s (%d records)", episodeID, len(recorder.Records()))
}

// episodeDescription joins the documents' short summaries into the episode
// blurb.
func episodeDescription(docs []core.Document) string {
	parts := make([]string, 0, len(docs))

	for _, doc := range docs {
		if doc.ShortSummary == "" {
			parts = append(parts, doc.Title)

			continue
		}

		parts = append(parts, doc.ShortSummary)
	}

	return strings.Join(parts, "\n\n")
}

func (p *Pipeline) appendCompleted(recorder *stagelog.Recorder, record stagelog.Record) {
	completed, err := record.Completed(p.now())
	if err != nil {
		p.deps.Log.Error("Stage %s double-terminated: %v", record.Stage, err)

		return
	}

	recorder.Append(completed)
	p.deps.Log.Info("Stage %s completed in %ds", completed.Stage, completed.DurationSeconds)
}

func (p *Pipeline) appendFailed(recorder *stagelog.Recorder, record stagelog.Record, cause error) {
	failed, err := record.Failed(p.now(), cause.Error())
	if err != nil {
		p.deps.Log.Error("Stage %s double-terminated: %v", record.Stage, err)

		return
	}

	recorder.Append(failed)
	p.deps.Log.Error("Stage %s failed after %ds: %v", failed.Stage, failed.DurationSeconds, cause)
}
