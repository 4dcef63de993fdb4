// Package config provides the configuration structure for the papercast
// pipeline.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"

	"github.com/papercast-dev/papercast/internal/core"
)

// EnvSummarizerAPIKey is the environment variable holding the generative-text
// service API key. Loaded from the environment (or a .env file) rather than
// the project TOML so the key never lands in versioned configuration.
const EnvSummarizerAPIKey = "PAPERCAST_SUMMARIZER_API_KEY"

// Defaults applied when the project TOML leaves a field unset.
const (
	defaultRetryMaxAttempts  = 3
	defaultRetryMinWaitSec   = 4
	defaultRetryMaxWaitSec   = 10
	defaultSourceTimeoutSec  = 30
	defaultRemoteTimeoutSec  = 120
	defaultMaxChunkBytes     = 4500
	defaultLanguage          = "en"
	defaultLanguageCode      = "en-US"
	defaultSpeakingRate      = 1.0
	defaultTitlePrefix       = "Daily AI Papers"
	defaultEpisodeAudioName  = "episode.mp3"
	defaultEpisodeBucketName = "EPISODES"
)

// NATSConfig holds the connection and bucket settings for the blob store.
type NATSConfig struct {
	URL                string `toml:"url"`
	EpisodeBucket      string `toml:"episode_bucket"`
	EpisodeDescription string `toml:"episode_bucket_description"`
}

// SourceConfig holds the settings for the remote document feed.
type SourceConfig struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// SummarizerConfig holds the settings for the generative-text service.
// APIKey is populated from the environment, never from the TOML.
type SummarizerConfig struct {
	URL            string `toml:"url"`
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	APIKey         string `toml:"-"`
}

// SpeechConfig holds the settings for the remote text-to-speech service.
type SpeechConfig struct {
	URL            string  `toml:"url"`
	Voice          string  `toml:"voice"`
	LanguageCode   string  `toml:"language_code"`
	SpeakingRate   float64 `toml:"speaking_rate"`
	MaxChunkBytes  int     `toml:"max_chunk_bytes"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// EpisodeConfig holds presentation settings for generated episodes.
type EpisodeConfig struct {
	TitlePrefix   string `toml:"title_prefix"`
	AudioFileName string `toml:"audio_file_name"`
}

// RetryConfig holds the backoff bounds applied at every remote-call boundary.
type RetryConfig struct {
	MaxAttempts    int `toml:"max_attempts"`
	MinWaitSeconds int `toml:"min_wait_seconds"`
	MaxWaitSeconds int `toml:"max_wait_seconds"`
}

// PathsConfig holds the local filesystem paths used during a run.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
	WorkDir     string `toml:"work_dir"`
}

// Config is the root configuration structure.
type Config struct {
	NATS       NATSConfig       `toml:"nats"`
	Source     SourceConfig     `toml:"source"`
	Summarizer SummarizerConfig `toml:"summarizer"`
	Speech     SpeechConfig     `toml:"speech"`
	Episode    EpisodeConfig    `toml:"episode"`
	Retry      RetryConfig      `toml:"retry"`
	Paths      PathsConfig      `toml:"paths"`
}

// Load loads the pipeline configuration from the project TOML, fills in
// defaults, pulls secrets from the environment, and validates the result.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.ApplyDefaults()
	cfg.Summarizer.APIKey = os.Getenv(EnvSummarizerAPIKey)

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills unset fields with their documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = defaultRetryMaxAttempts
	}

	if c.Retry.MinWaitSeconds == 0 {
		c.Retry.MinWaitSeconds = defaultRetryMinWaitSec
	}

	if c.Retry.MaxWaitSeconds == 0 {
		c.Retry.MaxWaitSeconds = defaultRetryMaxWaitSec
	}

	if c.Source.TimeoutSeconds == 0 {
		c.Source.TimeoutSeconds = defaultSourceTimeoutSec
	}

	if c.Summarizer.TimeoutSeconds == 0 {
		c.Summarizer.TimeoutSeconds = defaultRemoteTimeoutSec
	}

	if c.Summarizer.Language == "" {
		c.Summarizer.Language = defaultLanguage
	}

	if c.Speech.TimeoutSeconds == 0 {
		c.Speech.TimeoutSeconds = defaultRemoteTimeoutSec
	}

	if c.Speech.MaxChunkBytes == 0 {
		c.Speech.MaxChunkBytes = defaultMaxChunkBytes
	}

	if c.Speech.LanguageCode == "" {
		c.Speech.LanguageCode = defaultLanguageCode
	}

	if c.Speech.SpeakingRate == 0 {
		c.Speech.SpeakingRate = defaultSpeakingRate
	}

	if c.Episode.TitlePrefix == "" {
		c.Episode.TitlePrefix = defaultTitlePrefix
	}

	if c.Episode.AudioFileName == "" {
		c.Episode.AudioFileName = defaultEpisodeAudioName
	}

	if c.NATS.EpisodeBucket == "" {
		c.NATS.EpisodeBucket = defaultEpisodeBucketName
	}
}

// Validate checks that every setting a remote call depends on is present and
// sane, so misconfiguration fails before the first network round trip.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"nats.url", c.NATS.URL},
		{"source.url", c.Source.URL},
		{"summarizer.url", c.Summarizer.URL},
		{"summarizer.model", c.Summarizer.Model},
		{"speech.url", c.Speech.URL},
		{"speech.voice", c.Speech.Voice},
		{"paths.base_logs_dir", c.Paths.BaseLogsDir},
		{"paths.work_dir", c.Paths.WorkDir},
	}

	for _, field := range required {
		if field.value == "" {
			return fmt.Errorf("%w: %s is required", core.ErrConfiguration, field.name)
		}
	}

	if c.Summarizer.APIKey == "" {
		return fmt.Errorf("%w: %s is not set", core.ErrConfiguration, EnvSummarizerAPIKey)
	}

	if c.Speech.MaxChunkBytes <= 0 {
		return fmt.Errorf("%w: speech.max_chunk_bytes must be positive", core.ErrConfiguration)
	}

	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("%w: retry.max_attempts must be positive", core.ErrConfiguration)
	}

	if c.Retry.MinWaitSeconds > c.Retry.MaxWaitSeconds {
		return fmt.Errorf(
			"%w: retry.min_wait_seconds exceeds retry.max_wait_seconds",
			core.ErrConfiguration,
		)
	}

	return nil
}

// SourceTimeout returns the document feed timeout as a duration.
func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}

// SummarizerTimeout returns the generative-text call timeout as a duration.
func (c *Config) SummarizerTimeout() time.Duration {
	return time.Duration(c.Summarizer.TimeoutSeconds) * time.Second
}

// SpeechTimeout returns the synthesis call timeout as a duration.
func (c *Config) SpeechTimeout() time.Duration {
	return time.Duration(c.Speech.TimeoutSeconds) * time.Second
}

// RetryMinWait returns the minimum backoff wait as a duration.
func (c *Config) RetryMinWait() time.Duration {
	return time.Duration(c.Retry.MinWaitSeconds) * time.Second
}

// RetryMaxWait returns the maximum backoff wait as a duration.
func (c *Config) RetryMaxWait() time.Duration {
	return time.Duration(c.Retry.MaxWaitSeconds) * time.Second
}
