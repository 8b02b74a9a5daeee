package parser

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/newsgoat/internal/category"
	"github.com/IshaanNene/newsgoat/internal/observability"
	"github.com/IshaanNene/newsgoat/internal/site"
)

// Fields is everything the extractors pull out of one article page.
type Fields struct {
	Title       string
	Description string
	ImageURL    string
	Category    category.Category
	CreatedAt   string
	Content     string
	RelatedURLs []string
}

// Extractor runs the field cascades against parsed documents.
type Extractor struct {
	site    *site.Site
	metrics *observability.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewExtractor creates an Extractor resolving links against s.
func NewExtractor(s *site.Site, logger *slog.Logger, metrics *observability.Metrics) *Extractor {
	return &Extractor{
		site:    s,
		metrics: metrics,
		logger:  logger.With("component", "extractor"),
		now:     time.Now,
	}
}

// Extract runs every article field extractor over doc.
func (e *Extractor) Extract(doc *Document) Fields {
	return Fields{
		Title:       e.Title(doc),
		Description: e.Description(doc),
		ImageURL:    e.Image(doc),
		Category:    e.Category(doc),
		CreatedAt:   e.PublishedAt(doc),
		Content:     e.Content(doc),
		RelatedURLs: e.RelatedURLs(doc),
	}
}

// step is one strategy of a field cascade.
type step struct {
	name string
	fn   func(*Document) string
}

// cascade evaluates steps in order and returns the first non-empty result,
// or fallback when every step comes up empty. A panicking step counts as
// empty.
func (e *Extractor) cascade(field string, doc *Document, fallback string, steps []step) string {
	for _, s := range steps {
		v := e.try(field, s, doc)
		if v != "" {
			e.metrics.ExtractorStrategy(field, s.name)
			return v
		}
	}
	e.metrics.ExtractorStrategy(field, "default")
	return fallback
}

func (e *Extractor) try(field string, s step, doc *Document) (v string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("extractor strategy failed",
				"field", field,
				"strategy", s.name,
				"url", doc.URL,
				"error", fmt.Sprint(r),
			)
			v = ""
		}
	}()
	return s.fn(doc)
}
