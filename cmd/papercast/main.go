// main package for the papercast episode pipeline.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/book-expert/logger"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/papercast-dev/papercast/internal/collect"
	"github.com/papercast-dev/papercast/internal/config"
	"github.com/papercast-dev/papercast/internal/core"
	"github.com/papercast-dev/papercast/internal/objectstore"
	"github.com/papercast-dev/papercast/internal/pipeline"
	"github.com/papercast-dev/papercast/internal/retry"
	"github.com/papercast-dev/papercast/internal/speech"
	"github.com/papercast-dev/papercast/internal/speech/audio"
	"github.com/papercast-dev/papercast/internal/speech/text"
	"github.com/papercast-dev/papercast/internal/summarize"
)

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "papercast.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	// A missing .env file is fine; the key may come from the environment.
	_ = godotenv.Load()

	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
		}
	}()

	episode, err := runPipeline(cfg, finalLog)
	if err != nil {
		return err
	}

	fmt.Printf("Episode %s finalized: %s\n", episode.ID, episode.AudioReference)

	return nil
}

func runPipeline(cfg *config.Config, log *logger.Logger) (core.Episode, error) {
	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return core.Episode{}, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return core.Episode{}, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	store, err := objectstore.New(jetstreamContext, cfg.NATS.EpisodeBucket, cfg.NATS.EpisodeDescription)
	if err != nil {
		return core.Episode{}, fmt.Errorf("failed to initialize object store: %w", err)
	}

	segmenter, err := text.NewSegmenter(cfg.Speech.MaxChunkBytes)
	if err != nil {
		return core.Episode{}, fmt.Errorf("failed to create segmenter: %w", err)
	}

	policy := retry.NewPolicy(
		cfg.Retry.MaxAttempts,
		cfg.RetryMinWait(),
		cfg.RetryMaxWait(),
		log,
	)

	speechClient := speech.NewHTTPClient(cfg.Speech.URL, cfg.SpeechTimeout())
	generativeClient := summarize.NewGenerativeClient(
		cfg.Summarizer.URL,
		cfg.Summarizer.Model,
		cfg.Summarizer.APIKey,
		cfg.SummarizerTimeout(),
	)

	pipe, err := pipeline.New(
		pipeline.Deps{
			Source:      collect.New(cfg.Source.URL, cfg.SourceTimeout(), log),
			Summarizer:  summarize.NewService(generativeClient, log),
			Segmenter:   segmenter,
			Synthesizer: speech.NewChunkSynthesizer(speechClient, policy, cfg.Paths.WorkDir, log),
			Assembler:   audio.NewAssembler(log),
			Store:       store,
			Policy:      policy,
			Log:         log,
		},
		pipeline.Options{
			Voice: core.VoiceParams{
				LanguageCode: cfg.Speech.LanguageCode,
				Voice:        cfg.Speech.Voice,
				SpeakingRate: cfg.Speech.SpeakingRate,
			},
			Language:      cfg.Summarizer.Language,
			ShowTitle:     cfg.Episode.TitlePrefix,
			AudioFileName: cfg.Episode.AudioFileName,
			WorkDir:       cfg.Paths.WorkDir,
		},
	)
	if err != nil {
		return core.Episode{}, fmt.Errorf("failed to build pipeline: %w", err)
	}

	result, err := pipe.Run(context.Background())
	if err != nil {
		return core.Episode{}, fmt.Errorf("pipeline run failed: %w", err)
	}

	return result.Episode, nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "papercast run failed: %v\n", err)
		os.Exit(1)
	}
}
