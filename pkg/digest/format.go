package digest

import (
	"strings"

	"github.com/mitchellh/go-wordwrap"

	"github.com/dtnitsch/news-digest/models"
)

// DefaultWrapWidth is the summary column width.
const DefaultWrapWidth = 40

// FormatOutput renders headline -> summary pairs in order: the headline, the
// summary wrapped to width columns, then a blank line. Words longer than width
// are kept whole.
func FormatOutput(entries *models.OrderedMap[string], width int) string {
	if width <= 0 {
		width = DefaultWrapWidth
	}
	var b strings.Builder
	entries.Each(func(headline, summary string) bool {
		b.WriteString(headline)
		b.WriteString("\n")
		b.WriteString(wrap(summary, width))
		b.WriteString("\n\n")
		return true
	})
	return b.String()
}

func wrap(text string, width int) string {
	return wordwrap.WrapString(strings.Join(strings.Fields(text), " "), uint(width))
}
