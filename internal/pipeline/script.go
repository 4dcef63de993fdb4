package pipeline

import (
	"fmt"
	"strings"

	"github.com/papercast-dev/papercast/internal/core"
)

const (
	maxNamedAuthors = 3

	scriptIntroFormat   = "Welcome to %s for %s. Today we cover %d new papers."
	scriptSectionFormat = "Paper %d: %s. By %s."
	scriptOutro         = "That was today's episode. Thanks for listening, and see you tomorrow."
)

// BuildScript renders the full narration script for one episode: a dated
// intro, one numbered section per document, and a fixed outro. Sections use
// the document's summary, which is always populated by the time the script
// is built.
func BuildScript(showTitle, date string, docs []core.Document) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf(scriptIntroFormat, showTitle, date, len(docs)))
	builder.WriteString("\n\n")

	for i, doc := range docs {
		builder.WriteString(fmt.Sprintf(
			scriptSectionFormat,
			i+1,
			doc.Title,
			authorLine(doc.Authors),
		))
		builder.WriteString("\n")
		builder.WriteString(strings.TrimSpace(doc.Summary))
		builder.WriteString("\n\n")
	}

	builder.WriteString(scriptOutro)

	return builder.String()
}

// authorLine names up to maxNamedAuthors authors and counts the rest.
func authorLine(authors []string) string {
	if len(authors) == 0 {
		return "Unknown"
	}

	if len(authors) <= maxNamedAuthors {
		return strings.Join(authors, ", ")
	}

	named := strings.Join(authors[:maxNamedAuthors], ", ")

	return fmt.Sprintf("%s, and %d others", named, len(authors)-maxNamedAuthors)
}
