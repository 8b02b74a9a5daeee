package pipeline

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/IshaanNene/newsgoat/internal/types"
)

// DefaultBoilerplate lists promo and footer phrases that leak into DF.cl
// article bodies.
var DefaultBoilerplate = []string{
	"También puede leer:",
	"Te puede interesar:",
	"Lee también:",
	"Suscríbete",
	"Diario Financiero",
	"www.df.cl",
	"Derechos Reservados",
	"Términos y condiciones",
	"Política de privacidad",
}

var copyrightRe = regexp.MustCompile(`(?i)copyright\s+(©\s*)?\d{4}`)

// minLineLen is the rune count a line must exceed to survive boilerplate removal.
const minLineLen = 10

// BoilerplateMiddleware removes promo phrases from the body and drops the
// short lines they tend to leave behind.
type BoilerplateMiddleware struct {
	phrases []string
}

// NewBoilerplateMiddleware uses DefaultBoilerplate when phrases is nil.
func NewBoilerplateMiddleware(phrases []string) *BoilerplateMiddleware {
	if phrases == nil {
		phrases = DefaultBoilerplate
	}
	return &BoilerplateMiddleware{phrases: phrases}
}

func (m *BoilerplateMiddleware) Name() string { return "boilerplate" }

func (m *BoilerplateMiddleware) Process(rec *types.Record) (*types.Record, error) {
	rec.Content = mapParagraphs(rec.Content, func(p string) string {
		for _, phrase := range m.phrases {
			p = strings.ReplaceAll(p, phrase, "")
		}
		p = copyrightRe.ReplaceAllString(p, "")

		lines := strings.Split(p, "\n")
		kept := lines[:0]
		for _, line := range lines {
			if utf8.RuneCountInString(strings.TrimSpace(line)) > minLineLen {
				kept = append(kept, strings.TrimSpace(line))
			}
		}
		return strings.Join(kept, "\n")
	})
	return rec, nil
}

// DateNormalizeMiddleware rewrites CreatedAt as RFC 3339 when it parses
// with one of the known layouts. Unknown formats are left untouched.
type DateNormalizeMiddleware struct {
	inFormats []string
}

func NewDateNormalizeMiddleware() *DateNormalizeMiddleware {
	return &DateNormalizeMiddleware{
		inFormats: []string{
			time.RFC3339Nano,
			time.RFC3339,
			"2006-01-02T15:04:05-0700",
			"2006-01-02T15:04:05",
			"2006-01-02 15:04:05",
			"2006-01-02",
			time.RFC1123Z,
			time.RFC1123,
			"02/01/2006 15:04",
			"02/01/2006",
			"02-01-2006",
			"2006/01/02",
		},
	}
}

func (m *DateNormalizeMiddleware) Name() string { return "date_normalize" }

func (m *DateNormalizeMiddleware) Process(rec *types.Record) (*types.Record, error) {
	s := strings.TrimSpace(rec.CreatedAt)
	if s == "" {
		return rec, nil
	}
	for _, layout := range m.inFormats {
		if t, err := time.Parse(layout, s); err == nil {
			rec.CreatedAt = t.Format(time.RFC3339)
			break
		}
	}
	return rec, nil
}
