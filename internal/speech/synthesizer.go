package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/book-expert/logger"

	"github.com/papercast-dev/papercast/internal/core"
	"github.com/papercast-dev/papercast/internal/retry"
)

// Scratch artifact naming and permissions.
const (
	scratchDirPattern  = "speech-chunks-*"
	scratchFileFormat  = "chunk_%04d.mp3"
	scratchFilePerm    = 0o600
	logFmtChunkDone    = "Synthesized chunk %d/%d (%d bytes)"
	logFmtScratchClean = "Failed to remove scratch directory '%s': %v"
)

// ErrNoChunks is returned when synthesis is requested with no input chunks.
var ErrNoChunks = errors.New("no text chunks to synthesize")

// ChunkSynthesizer submits each text chunk to the remote synthesis call,
// retried per the configured policy, and produces ordered audio fragments.
// Per-chunk intermediate files are written to a scoped scratch directory for
// diagnosability; the directory is removed on every exit path.
type ChunkSynthesizer struct {
	client      core.SpeechClient
	policy      retry.Policy
	scratchRoot string
	log         *logger.Logger
}

// NewChunkSynthesizer creates a synthesizer using the given client and retry
// policy. scratchRoot is the parent directory for per-run scratch space; an
// empty string uses the system temp directory.
func NewChunkSynthesizer(
	client core.SpeechClient,
	policy retry.Policy,
	scratchRoot string,
	log *logger.Logger,
) *ChunkSynthesizer {
	return &ChunkSynthesizer{
		client:      client,
		policy:      policy,
		scratchRoot: scratchRoot,
		log:         log,
	}
}

// SynthesizeChunks converts the ordered chunk sequence into the complete
// ordered fragment list. It also reports the number of retries spent across
// all chunks. A permanent failure aborts the whole operation immediately,
// naming the failing chunk's ordinal and the last remote error.
func (s *ChunkSynthesizer) SynthesizeChunks(
	ctx context.Context,
	chunks []core.TextChunk,
	params core.VoiceParams,
) ([]core.AudioFragment, int, error) {
	if len(chunks) == 0 {
		return nil, 0, ErrNoChunks
	}

	scratchDir, err := os.MkdirTemp(s.scratchRoot, scratchDirPattern)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	defer func() {
		removeErr := os.RemoveAll(scratchDir)
		if removeErr != nil {
			s.log.Warn(logFmtScratchClean, scratchDir, removeErr)
		}
	}()

	fragments := make([]core.AudioFragment, 0, len(chunks))
	totalRetries := 0

	for _, chunk := range chunks {
		audioData, attempts, synthErr := retry.DoValue(
			ctx,
			s.policy,
			fmt.Sprintf("synthesize chunk %d", chunk.Index),
			func(ctx context.Context) ([]byte, error) {
				return s.client.Synthesize(ctx, chunk.Text, params)
			},
		)

		totalRetries += attempts - 1

		if synthErr != nil {
			return nil, totalRetries, fmt.Errorf(
				"chunk %d failed after %d attempts: %w",
				chunk.Index,
				attempts,
				synthErr,
			)
		}

		writeErr := s.writeScratchFragment(scratchDir, chunk.Index, audioData)
		if writeErr != nil {
			return nil, totalRetries, writeErr
		}

		fragments = append(fragments, core.AudioFragment{
			Index: chunk.Index,
			Data:  audioData,
		})

		s.log.Info(logFmtChunkDone, chunk.Index+1, len(chunks), len(audioData))
	}

	return fragments, totalRetries, nil
}

// writeScratchFragment persists one fragment into the scratch directory so a
// failed run leaves per-chunk evidence in the logs before cleanup.
func (s *ChunkSynthesizer) writeScratchFragment(dir string, index int, data []byte) error {
	path := filepath.Join(dir, fmt.Sprintf(scratchFileFormat, index))

	err := os.WriteFile(path, data, scratchFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write scratch fragment %d: %w", index, err)
	}

	return nil
}
