// Package audio assembles synthesized fragments into one playable artifact
// and derives its duration and size metadata.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/book-expert/logger"
	"github.com/tcolgate/mp3"

	"github.com/papercast-dev/papercast/internal/core"
)

// fallbackBytesPerSecond is the fixed-bitrate assumption for the size-based
// duration estimate: one second of 128 kbps MP3 is roughly 16 KiB.
const fallbackBytesPerSecond = 16 * 1024

// File and directory permissions for the assembled artifact.
const (
	artifactFilePerm = 0o600
	artifactDirPerm  = 0o750
)

// ErrNoFragments is returned when assembly is requested with no fragments.
var ErrNoFragments = errors.New("no audio fragments to assemble")

// Artifact describes the assembled audio file.
type Artifact struct {
	Path            string
	Data            []byte
	SizeBytes       int64
	DurationSeconds int
}

// Assembler concatenates audio fragments in ordinal order via raw byte
// concatenation. This relies on MP3 tolerating independently encoded frame
// sequences placed back-to-back; it is an approximation carried over from the
// original design, not a generalized muxer.
type Assembler struct {
	log *logger.Logger
}

// NewAssembler creates an assembler.
func NewAssembler(log *logger.Logger) *Assembler {
	return &Assembler{log: log}
}

// Assemble joins the fragments, writes the artifact to outputPath, and
// derives its metadata. Duration parsing never fails the operation; only the
// filesystem write can.
func (a *Assembler) Assemble(
	fragments []core.AudioFragment,
	outputPath string,
) (Artifact, error) {
	if len(fragments) == 0 {
		return Artifact{}, ErrNoFragments
	}

	ordered := make([]core.AudioFragment, len(fragments))
	copy(ordered, fragments)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	var assembled bytes.Buffer

	for _, fragment := range ordered {
		assembled.Write(fragment.Data)
	}

	data := assembled.Bytes()

	err := a.writeArtifact(outputPath, data)
	if err != nil {
		return Artifact{}, err
	}

	artifact := Artifact{
		Path:            outputPath,
		Data:            data,
		SizeBytes:       int64(len(data)),
		DurationSeconds: a.duration(data),
	}

	a.log.Info(
		"Assembled %d fragments into %s (%d bytes, ~%ds)",
		len(ordered),
		outputPath,
		artifact.SizeBytes,
		artifact.DurationSeconds,
	)

	return artifact, nil
}

// duration parses frame metadata from the assembled artifact and falls back
// to the size-based estimate when the data does not parse.
func (a *Assembler) duration(data []byte) int {
	if parsed, ok := parseDuration(data); ok {
		return parsed
	}

	a.log.Warn("Could not parse audio metadata, estimating duration from size")

	return EstimateDuration(int64(len(data)))
}

// EstimateDuration estimates the playback time of sizeBytes of audio at the
// fixed-bitrate assumption, rounded up, with a floor of one second.
func EstimateDuration(sizeBytes int64) int {
	estimated := (sizeBytes + fallbackBytesPerSecond - 1) / fallbackBytesPerSecond
	if estimated < 1 {
		return 1
	}

	return int(estimated)
}

// parseDuration sums MP3 frame durations. It reports ok only when at least
// one frame decoded, so malformed payloads route to the estimator instead.
func parseDuration(data []byte) (int, bool) {
	decoder := mp3.NewDecoder(bytes.NewReader(data))

	var (
		frame   mp3.Frame
		skipped int
		total   float64
	)

	for {
		err := decoder.Decode(&frame, &skipped)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			if total == 0 {
				return 0, false
			}

			break
		}

		total += frame.Duration().Seconds()
	}

	if total <= 0 {
		return 0, false
	}

	seconds := int(math.Ceil(total))
	if seconds < 1 {
		seconds = 1
	}

	return seconds, true
}

func (a *Assembler) writeArtifact(outputPath string, data []byte) error {
	dirErr := os.MkdirAll(filepath.Dir(outputPath), artifactDirPerm)
	if dirErr != nil {
		return fmt.Errorf("failed to create artifact directory: %w", dirErr)
	}

	writeErr := os.WriteFile(outputPath, data, artifactFilePerm)
	if writeErr != nil {
		return fmt.Errorf("failed to write assembled artifact: %w", writeErr)
	}

	return nil
}
