package pipeline_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papercast-dev/papercast/internal/core"
	"github.com/papercast-dev/papercast/internal/pipeline"
)

func TestBuildScriptStructure(t *testing.T) {
	t.Parallel()

	docs := testDocuments()
	for i := range docs {
		docs[i].Summary = "Narration for " + docs[i].Title + "."
	}

	script := pipeline.BuildScript("Daily AI Papers", "2026-08-26", docs)

	assert.Contains(t, script, "Welcome to Daily AI Papers for 2026-08-26.")
	assert.Contains(t, script, "Today we cover 3 new papers.")
	assert.Contains(t, script, "Paper 1: Paper Number 1. By Ada One, Ben Two.")
	assert.Contains(t, script, "Paper 3: Paper Number 3.")
	assert.Contains(t, script, "Narration for Paper Number 2.")
	assert.True(t, strings.HasSuffix(script, "see you tomorrow."))

	intro := strings.Index(script, "Welcome")
	first := strings.Index(script, "Paper 1:")
	third := strings.Index(script, "Paper 3:")
	assert.Less(t, intro, first)
	assert.Less(t, first, third)
}

func TestBuildScriptTruncatesLongAuthorLists(t *testing.T) {
	t.Parallel()

	docs := testDocuments()[:1]
	docs[0].Authors = []string{"A", "B", "C", "D", "E"}
	docs[0].Summary = "Some narration."

	script := pipeline.BuildScript("Show", "2026-08-26", docs)

	assert.Contains(t, script, "By A, B, C, and 2 others.")
}

func TestFallbackSummaryUsesDocumentFields(t *testing.T) {
	t.Parallel()

	doc := core.Document{
		ID:       "p1",
		Title:    "Interesting Paper",
		Authors:  []string{"Ada One"},
		Abstract: "A short abstract about the work.",
	}

	summary := pipeline.FallbackSummary(doc)

	assert.Contains(t, summary, "Interesting Paper")
	assert.Contains(t, summary, "Ada One")
	assert.Contains(t, summary, "A short abstract about the work.")
}

func TestFallbackSummaryBoundsLongAbstracts(t *testing.T) {
	t.Parallel()

	doc := core.Document{
		ID:       "p1",
		Title:    "T",
		Authors:  []string{"A"},
		Abstract: strings.Repeat("가", 2000),
	}

	summary := pipeline.FallbackSummary(doc)

	require.True(t, strings.HasSuffix(summary, "..."))
	assert.LessOrEqual(t, strings.Count(summary, "가"), 800)
}

func TestFallbackShortSummaryKeepsOpeningLines(t *testing.T) {
	t.Parallel()

	full := "First sentence.\nSecond sentence.\nThird sentence.\nFourth sentence."

	short := pipeline.FallbackShortSummary(full)

	assert.Equal(t, "First sentence.\nSecond sentence.\nThird sentence.", short)
}
