package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/book-expert/logger"

	"github.com/papercast-dev/papercast/internal/core"
)

// Generation bounds carried over from the service contract. A full summary
// outside these limits is unusable for narration.
const (
	MinSummaryLength = 500
	MaxSummaryLength = 5000

	// ShortSummaryLines is the number of lines a short summary is
	// normalized to.
	ShortSummaryLines = 3

	// MaxShortSummaryLineLength bounds each line of a short summary.
	MaxShortSummaryLineLength = 100
)

const (
	fullMaxOutputTokens = 10000

	fullTemperature  = 0.7
	shortTemperature = 0.4
	sharedTopP       = 0.8
	sharedTopK       = 40
)

const fullPromptTemplate = `You are writing a segment for a podcast that covers machine learning research.
Summarize the paper below as a flowing spoken script of three to five paragraphs.
Explain the problem, the approach, and the key results in plain language a
technical listener can follow without seeing the paper. Do not use headings,
bullet points, or markdown of any kind. %s

Title: %s
Authors: %s

Abstract:
%s`

const shortPromptTemplate = `Summarize the paper below in exactly three short lines, one sentence per line.
Each line must stand on its own and be at most 100 characters. Do not number
the lines and do not use markdown. %s

Title: %s

Abstract:
%s`

// Service implements core.Summarizer on top of the generative-text client.
type Service struct {
	client *GenerativeClient
	log    *logger.Logger
}

// NewService wires a generative client into the summarizer interface.
func NewService(client *GenerativeClient, log *logger.Logger) *Service {
	return &Service{client: client, log: log}
}

// Summarize produces the full narration summary for one document in the
// given language.
func (s *Service) Summarize(
	ctx context.Context,
	doc core.Document,
	language string,
) (string, error) {
	prompt := fmt.Sprintf(
		fullPromptTemplate,
		languageDirective(language),
		doc.Title,
		strings.Join(doc.Authors, ", "),
		doc.Abstract,
	)

	text, err := s.client.Generate(ctx, prompt, GenerationConfig{
		Temperature:     fullTemperature,
		TopP:            sharedTopP,
		TopK:            sharedTopK,
		MaxOutputTokens: fullMaxOutputTokens,
	})
	if err != nil {
		return "", fmt.Errorf("full summary for %q: %w", doc.ID, err)
	}

	s.log.Info("Generated full summary for %q (%d chars)", doc.ID, len(text))

	return strings.TrimSpace(text), nil
}

// ShortSummarize produces the three-line teaser summary for one document.
// The raw response is normalized to exactly ShortSummaryLines lines.
func (s *Service) ShortSummarize(
	ctx context.Context,
	doc core.Document,
	language string,
) (string, error) {
	prompt := fmt.Sprintf(
		shortPromptTemplate,
		languageDirective(language),
		doc.Title,
		doc.Abstract,
	)

	text, err := s.client.Generate(ctx, prompt, GenerationConfig{
		Temperature: shortTemperature,
		TopP:        sharedTopP,
		TopK:        sharedTopK,
	})
	if err != nil {
		return "", fmt.Errorf("short summary for %q: %w", doc.ID, err)
	}

	normalized := NormalizeShortSummary(text)

	s.log.Info("Generated short summary for %q", doc.ID)

	return normalized, nil
}

// languageDirective turns a language code into a prompt instruction.
func languageDirective(language string) string {
	switch language {
	case "", "en":
		return "Write in English."
	case "ko":
		return "Write in Korean."
	case "ja":
		return "Write in Japanese."
	default:
		return fmt.Sprintf("Write in the language with ISO code %q.", language)
	}
}

// NormalizeShortSummary strips blank lines and markdown bullets and keeps the
// first ShortSummaryLines lines.
func NormalizeShortSummary(raw string) string {
	lines := make([]string, 0, ShortSummaryLines)

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		trimmed = strings.TrimLeft(trimmed, "-*• ")

		if trimmed == "" {
			continue
		}

		lines = append(lines, trimmed)
		if len(lines) == ShortSummaryLines {
			break
		}
	}

	return strings.Join(lines, "\n")
}

// ValidateSummary checks a full summary against the narration length bounds.
func ValidateSummary(summary string) error {
	length := len([]rune(strings.TrimSpace(summary)))

	if length < MinSummaryLength {
		return fmt.Errorf(
			"%w: summary too short: %d chars, need at least %d",
			core.ErrValidation,
			length,
			MinSummaryLength,
		)
	}

	if length > MaxSummaryLength {
		return fmt.Errorf(
			"%w: summary too long: %d chars, limit is %d",
			core.ErrValidation,
			length,
			MaxSummaryLength,
		)
	}

	return nil
}

// ValidateShortSummary checks that a short summary has at least one line and
// that no line exceeds the per-line bound.
func ValidateShortSummary(summary string) error {
	trimmed := strings.TrimSpace(summary)
	if trimmed == "" {
		return fmt.Errorf("%w: short summary is empty", core.ErrValidation)
	}

	for i, line := range strings.Split(trimmed, "\n") {
		if length := len([]rune(line)); length > MaxShortSummaryLineLength {
			return fmt.Errorf(
				"%w: short summary line %d is %d chars, limit is %d",
				core.ErrValidation,
				i+1,
				length,
				MaxShortSummaryLineLength,
			)
		}
	}

	return nil
}
