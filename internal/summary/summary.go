// Package summary builds extractive summaries from article bodies.
package summary

import (
	"math"
	"strings"
)

const (
	// Ratio of paragraphs kept in a summary.
	Ratio = 0.3
	// MinParagraphs is the floor on kept paragraphs, and also the size at
	// or below which content is returned unchanged.
	MinParagraphs = 3

	separator    = "\n\n"
	continuation = "..."
)

// Summarize keeps the leading share of content's paragraphs under the
// title. Short content is returned as is.
func Summarize(content, title string) string {
	paragraphs := strings.Split(content, separator)
	if len(paragraphs) <= MinParagraphs {
		return content
	}

	n := max(MinParagraphs, int(math.Ceil(float64(len(paragraphs))*Ratio)))

	var b strings.Builder
	b.WriteString(title)
	b.WriteString(separator)
	b.WriteString(strings.Join(paragraphs[:n], separator))
	if len(paragraphs) > n {
		b.WriteString(separator)
		b.WriteString(continuation)
	}
	return b.String()
}
