package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/newsgoat/internal/types"
)

// listingBlocks are the index-page article containers. They are matched
// together, so links come out in document order.
var listingBlocks = []string{
	"article",
	".featured-article",
	".main-article",
	".highlight-article",
	".article-item",
	".news-item",
	".article-list article",
	".news-list article",
}

var backgroundImageRe = regexp.MustCompile(`background-image:\s*url\(['"]?(.*?)['"]?\)`)

// ListingLinks extracts article links with their titles and thumbnails
// from an index page. Only the first occurrence of each URL is kept, and
// links without a title are dropped.
func (e *Extractor) ListingLinks(doc *Document) (links []types.ListingLink) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("listing scan failed", "url", doc.URL, "error", r)
		}
	}()

	seen := make(map[string]bool)
	doc.Find(strings.Join(listingBlocks, ", ")).Each(func(_ int, block *goquery.Selection) {
		link, ok := e.listingLink(block)
		if !ok || seen[link.URL] {
			return
		}
		seen[link.URL] = true
		links = append(links, link)
	})

	e.logger.Debug("listing links extracted", "url", doc.URL, "count", len(links))
	return links
}

func (e *Extractor) listingLink(block *goquery.Selection) (types.ListingLink, bool) {
	anchor := block.Find("a[href]").First()
	href, _ := anchor.Attr("href")
	abs := e.site.Resolve(href)
	if abs == "" || !e.site.IsValidNewsURL(abs) {
		return types.ListingLink{}, false
	}

	title := strings.TrimSpace(block.Find("h1, h2, h3, h4, h5").First().Text())
	if title == "" {
		title = strings.TrimSpace(anchor.Text())
	}
	if title == "" {
		return types.ListingLink{}, false
	}

	return types.ListingLink{
		URL:      abs,
		Title:    strings.Join(strings.Fields(title), " "),
		ImageURL: e.site.Resolve(listingImage(block)),
	}, true
}

// listingImage prefers an <img> src or data-src, then an inline
// background-image on the block or any descendant.
func listingImage(block *goquery.Selection) string {
	img := block.Find("img").First()
	if src, ok := img.Attr("src"); ok && strings.TrimSpace(src) != "" {
		return src
	}
	if src, ok := img.Attr("data-src"); ok && strings.TrimSpace(src) != "" {
		return src
	}

	styled := block.Filter("[style]").AddSelection(block.Find("[style]"))
	var found string
	styled.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		style, _ := s.Attr("style")
		if m := backgroundImageRe.FindStringSubmatch(style); len(m) > 1 && m[1] != "" {
			found = m[1]
			return false
		}
		return true
	})
	return found
}
