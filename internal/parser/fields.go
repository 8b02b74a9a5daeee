package parser

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/newsgoat/internal/category"
)

// minParagraphLen is the rune count a text block must exceed to count as body content.
const minParagraphLen = 20

const (
	contentContainers = "article, .article-content, .content, .post-content"
	contentBlocks     = "p, h2, h3, h4, h5, h6"
	relatedContainers = ".related-news a, .read-more a, .recommended a, .also-read a"
)

// Title: first h1, og:title, <title>, JSON-LD headline.
func (e *Extractor) Title(doc *Document) string {
	return e.cascade("title", doc, "", []step{
		{"h1", func(d *Document) string { return strings.TrimSpace(d.Find("h1").First().Text()) }},
		{"og_title", func(d *Document) string { return d.meta("og:title") }},
		{"title_tag", func(d *Document) string { return strings.TrimSpace(d.Find("title").First().Text()) }},
		{"json_ld", func(d *Document) string { return d.article().Headline }},
	})
}

// Description: description meta, og:description, first content paragraph,
// JSON-LD description.
func (e *Extractor) Description(doc *Document) string {
	return e.cascade("description", doc, "", []step{
		{"meta_description", func(d *Document) string { return d.meta("description") }},
		{"og_description", func(d *Document) string { return d.meta("og:description") }},
		{"first_paragraph", func(d *Document) string {
			return strings.TrimSpace(d.Find("article p, .article-content p, .content p").First().Text())
		}},
		{"json_ld", func(d *Document) string { return d.article().Description }},
	})
}

// Image: og:image, the lead image block, any image inside the content, any image.
func (e *Extractor) Image(doc *Document) string {
	src := func(selector string) func(*Document) string {
		return func(d *Document) string {
			v, _ := d.Find(selector).First().Attr("src")
			return e.site.Resolve(v)
		}
	}
	return e.cascade("image", doc, "", []step{
		{"og_image", func(d *Document) string { return e.site.Resolve(d.meta("og:image")) }},
		{"lead_image", src(".art-img img, .article-image img, .main-image img")},
		{"content_image", src(".article-content img, .content img, .post-content img")},
		{"any_image", src("img")},
	})
}

// Category: article:section, a category label, the canonical URL path,
// the JSON-LD articleSection, then General. Raw values only count when they classify into a known
// category, so the result always belongs to the closed set.
func (e *Extractor) Category(doc *Document) category.Category {
	classified := func(raw string) string {
		if c := category.Classify(raw); c != category.General {
			return string(c)
		}
		return ""
	}
	v := e.cascade("category", doc, string(category.General), []step{
		{"section_meta", func(d *Document) string { return classified(d.meta("article:section")) }},
		{"category_label", func(d *Document) string {
			return classified(strings.TrimSpace(d.Find(".category, .article-category").First().Text()))
		}},
		{"canonical_path", func(d *Document) string {
			href, _ := d.Find(`link[rel="canonical"]`).First().Attr("href")
			return classified(canonicalPath(href))
		}},
		{"json_ld_section", func(d *Document) string { return classified(d.article().Section) }},
	})
	return category.Category(v)
}

// canonicalPath returns the path of a canonical URL so the host never
// contributes keywords.
func canonicalPath(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if u, err := url.Parse(href); err == nil {
		return u.Path
	}
	return href
}

// PublishedAt: article:published_time, a date element, JSON-LD
// datePublished, then now.
func (e *Extractor) PublishedAt(doc *Document) string {
	return e.cascade("published_at", doc, e.now().UTC().Format(time.RFC3339), []step{
		{"published_time_meta", func(d *Document) string { return d.meta("article:published_time") }},
		{"date_element", func(d *Document) string {
			el := d.Find(".date, .article-date, .publish-date, time").First()
			if dt, ok := el.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
				return strings.TrimSpace(dt)
			}
			return strings.TrimSpace(el.Text())
		}},
		{"json_ld", func(d *Document) string { return d.article().DatePublished }},
	})
}

// Content locates the main container and joins its substantial text
// blocks with blank lines. Containers are tried in order: the known
// article selectors, the div holding the most paragraphs, then body.
func (e *Extractor) Content(doc *Document) string {
	container := e.contentContainer(doc)
	if container.Length() == 0 {
		return ""
	}

	return e.cascade("content", doc, "", []step{
		{"text_blocks", func(*Document) string {
			var paragraphs []string
			container.Find(contentBlocks).Each(func(_ int, s *goquery.Selection) {
				if text := strings.TrimSpace(s.Text()); utf8.RuneCountInString(text) > minParagraphLen {
					paragraphs = append(paragraphs, text)
				}
			})
			return strings.Join(paragraphs, "\n\n")
		}},
		{"container_text", func(*Document) string {
			var paragraphs []string
			for _, line := range strings.Split(container.Text(), "\n") {
				if text := strings.TrimSpace(line); utf8.RuneCountInString(text) > minParagraphLen {
					paragraphs = append(paragraphs, text)
				}
			}
			return strings.Join(paragraphs, "\n\n")
		}},
	})
}

func (e *Extractor) contentContainer(doc *Document) (sel *goquery.Selection) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("content container scan failed", "url", doc.URL, "error", r)
			sel = doc.Find("body")
		}
	}()

	if sel := doc.Find(contentContainers); sel.Length() > 0 {
		return sel
	}
	if node := densestParagraphDiv(doc.Root()); node != nil {
		return doc.doc.FindNodes(node)
	}
	return doc.Find("body")
}

// densestParagraphDiv returns the first div with the most descendant
// paragraphs, or nil when no div contains any.
func densestParagraphDiv(root *html.Node) *html.Node {
	var best *html.Node
	bestCount := 0
	for _, div := range htmlquery.Find(root, "//div") {
		if n := len(htmlquery.Find(div, ".//p")); n > bestCount {
			best, bestCount = div, n
		}
	}
	return best
}

// RelatedURLs collects validated links from related/recommended blocks in
// discovery order, without duplicates.
func (e *Extractor) RelatedURLs(doc *Document) (out []string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("related link scan failed", "url", doc.URL, "error", r)
			out = nil
		}
	}()

	seen := make(map[string]bool)
	doc.Find(relatedContainers).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		abs := e.site.Resolve(href)
		if abs == "" || seen[abs] || !e.site.IsValidNewsURL(abs) {
			return
		}
		seen[abs] = true
		out = append(out, abs)
	})
	return out
}
