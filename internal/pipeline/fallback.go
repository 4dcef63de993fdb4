package pipeline

import (
	"fmt"
	"strings"

	"github.com/papercast-dev/papercast/internal/core"
	"github.com/papercast-dev/papercast/internal/summarize"
)

const (
	fallbackNamedAuthors   = 5
	fallbackAbstractLength = 800
)

// FallbackSummary builds a deterministic narration summary from the
// document's own fields. It is used when the generative service fails or
// returns text that does not validate, so it must never fail itself.
func FallbackSummary(doc core.Document) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("This paper is titled %s.", doc.Title))
	builder.WriteString(" ")
	builder.WriteString(fmt.Sprintf("It was written by %s.", fallbackAuthorLine(doc.Authors)))
	builder.WriteString(" Here is the abstract. ")
	builder.WriteString(abstractExcerpt(doc.Abstract))

	return builder.String()
}

// FallbackShortSummary derives the teaser from the full summary's opening
// lines when the dedicated short-summary call fails.
func FallbackShortSummary(fullSummary string) string {
	return summarize.NormalizeShortSummary(fullSummary)
}

func fallbackAuthorLine(authors []string) string {
	if len(authors) == 0 {
		return "unknown authors"
	}

	if len(authors) <= fallbackNamedAuthors {
		return strings.Join(authors, ", ")
	}

	named := strings.Join(authors[:fallbackNamedAuthors], ", ")

	return fmt.Sprintf("%s, and %d others", named, len(authors)-fallbackNamedAuthors)
}

// abstractExcerpt bounds the abstract to a narratable length, cutting at a
// rune boundary.
func abstractExcerpt(abstract string) string {
	trimmed := strings.TrimSpace(abstract)

	runes := []rune(trimmed)
	if len(runes) <= fallbackAbstractLength {
		return trimmed
	}

	return string(runes[:fallbackAbstractLength]) + "..."
}
