package parser

import (
	"encoding/json"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// ldPolicy strips markup from JSON-LD text. Unlike DOM text, JSON strings
// reach us undecoded and may carry tags or entities.
var ldPolicy = bluemonday.StrictPolicy()

// articleTypes are the schema.org types whose JSON-LD describes the page's article.
var articleTypes = map[string]bool{
	"NewsArticle":          true,
	"Article":              true,
	"ReportageNewsArticle": true,
	"AnalysisNewsArticle":  true,
	"OpinionNewsArticle":   true,
}

// articleLD holds the JSON-LD article fields the cascades can fall back on.
type articleLD struct {
	Headline      string
	Description   string
	DatePublished string
	Section       string
	Image         string
}

// article returns the first JSON-LD article object on the page, parsed
// once per Document. Pages without one yield an empty articleLD.
func (d *Document) article() articleLD {
	d.ldOnce.Do(func() {
		d.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			raw := strings.TrimSpace(sel.Text())
			if raw == "" {
				return true
			}
			var v any
			if err := json.Unmarshal([]byte(raw), &v); err != nil {
				return true
			}
			if obj := findArticle(v); obj != nil {
				d.ld = articleLD{
					Headline:      ldText(obj["headline"]),
					Description:   ldText(obj["description"]),
					DatePublished: ldString(obj["datePublished"]),
					Section:       ldText(obj["articleSection"]),
					Image:         ldString(obj["image"]),
				}
				return false
			}
			return true
		})
	})
	return d.ld
}

// findArticle walks a decoded JSON-LD value, including arrays and @graph
// containers, for an object of an article type.
func findArticle(v any) map[string]any {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if obj := findArticle(item); obj != nil {
				return obj
			}
		}
	case map[string]any:
		if isArticleType(t["@type"]) {
			return t
		}
		if graph, ok := t["@graph"]; ok {
			return findArticle(graph)
		}
	}
	return nil
}

func isArticleType(v any) bool {
	switch t := v.(type) {
	case string:
		return articleTypes[t]
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && articleTypes[s] {
				return true
			}
		}
	}
	return false
}

// ldString flattens the shapes schema.org allows for text-ish values: a
// string, an ImageObject-like {"url": ...}, or a list of either.
func ldString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		return ldString(t["url"])
	case []any:
		for _, item := range t {
			if s := ldString(item); s != "" {
				return s
			}
		}
	}
	return ""
}

// ldText is ldString for human-readable fields: markup is removed and
// entities decoded.
func ldText(v any) string {
	s := ldString(v)
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	return strings.Join(strings.Fields(html.UnescapeString(ldPolicy.Sanitize(s))), " ")
}
