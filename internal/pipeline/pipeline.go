package pipeline

import (
	"log/slog"
	"strings"

	"github.com/IshaanNene/newsgoat/internal/types"
)

// Middleware post-processes an extracted record before it is summarised
// and cached.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a record in place and returns it.
	Process(rec *types.Record) (*types.Record, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates an empty Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Default returns the standard record chain: trim, strip boilerplate,
// normalise dates. Record text is already decoded by the parser and is
// not treated as markup here.
func Default(logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(&TrimMiddleware{})
	p.Use(NewBoilerplateMiddleware(nil))
	p.Use(NewDateNormalizeMiddleware())
	return p
}

// Use adds a middleware to the chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs rec through all middleware in order. The first failure
// stops the chain and is returned as a *types.PipelineError.
func (p *Pipeline) Process(rec *types.Record) (*types.Record, error) {
	current := rec
	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{Stage: mw.Name(), URL: rec.URL, Err: err}
		}
		current = result
	}
	return current, nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// TrimMiddleware collapses whitespace in single-line fields and trims each
// paragraph of the body.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(rec *types.Record) (*types.Record, error) {
	rec.Title = strings.Join(strings.Fields(rec.Title), " ")
	rec.Description = strings.Join(strings.Fields(rec.Description), " ")
	rec.ImageURL = strings.TrimSpace(rec.ImageURL)
	rec.CreatedAt = strings.TrimSpace(rec.CreatedAt)
	rec.Content = mapParagraphs(rec.Content, func(p string) string {
		return strings.Join(strings.Fields(p), " ")
	})
	return rec, nil
}

// mapParagraphs applies fn to each blank-line separated paragraph and
// drops paragraphs that end up empty.
func mapParagraphs(content string, fn func(string) string) string {
	if content == "" {
		return ""
	}
	parts := strings.Split(content, "\n\n")
	out := parts[:0]
	for _, p := range parts {
		if p = fn(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}
