// Package category holds the closed set of news categories and the keyword
// categorizer shared by listing and single-article extraction.
package category

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Category is one of the fixed news categories.
type Category string

const (
	Empresas      Category = "Empresas"
	Economia      Category = "Economía"
	Mercados      Category = "Mercados"
	Internacional Category = "Internacional"
	Opinion       Category = "Opinión"
	Tecnologia    Category = "Tecnología"
	General       Category = "General"
)

// rule binds a category to the keyword substrings that select it.
// Keywords are stored folded (lower-case, no diacritics).
type rule struct {
	category Category
	keywords []string
}

// rules is evaluated in order; the first category with a matching keyword wins.
var rules = []rule{
	{Empresas, []string{"empresas", "negocios", "compania", "industria"}},
	{Economia, []string{"economia", "economico", "fiscal", "banco", "central", "politica", "inflacion"}},
	{Mercados, []string{"mercado", "bolsa", "finanzas", "financiero", "acciones", "bursatil", "inversiones"}},
	{Internacional, []string{"internacional", "mundo", "global", "eeuu", "europa", "asia", "exterior"}},
	{Opinion, []string{"opinion", "columna", "columnista", "editorial", "analisis"}},
	{Tecnologia, []string{"tecnologia", "tech", "innovacion", "digital", "internet", "startup"}},
}

// All returns every category in priority order, General last.
func All() []Category {
	out := make([]Category, 0, len(rules)+1)
	for _, r := range rules {
		out = append(out, r.category)
	}
	return append(out, General)
}

// Valid reports whether c belongs to the closed set.
func (c Category) Valid() bool {
	for _, known := range All() {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string { return string(c) }

// Classify assigns a category to arbitrary text (a URL, a section name, a
// path segment) by keyword substring match. Unmatched input is General.
func Classify(text string) Category {
	folded := Fold(text)
	if folded == "" {
		return General
	}
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(folded, kw) {
				return r.category
			}
		}
	}
	return General
}

// Parse resolves a user-supplied category name such as "economia" or
// "Economía". The boolean is false for names outside the closed set.
func Parse(name string) (Category, bool) {
	folded := Fold(strings.TrimSpace(name))
	if folded == "" {
		return "", false
	}
	for _, c := range All() {
		if Fold(string(c)) == folded {
			return c, true
		}
	}
	return "", false
}

// Fold lower-cases s and strips diacritics so "Economía" matches "economia".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}
