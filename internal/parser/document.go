package parser

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/newsgoat/internal/types"
)

// Document is a parsed HTML page. One node tree backs both the goquery
// selection API and htmlquery XPath queries.
type Document struct {
	URL  string
	root *html.Node
	doc  *goquery.Document

	ldOnce sync.Once
	ld     articleLD
}

// Parse parses body into a Document. On failure it still returns a usable
// empty Document alongside a *types.ParseError, so extractors fall back to
// their defaults.
func Parse(rawURL, body string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		empty, _ := html.Parse(strings.NewReader(""))
		return newDocument(rawURL, empty), &types.ParseError{URL: rawURL, Err: err}
	}
	return newDocument(rawURL, root), nil
}

func newDocument(rawURL string, root *html.Node) *Document {
	return &Document{
		URL:  rawURL,
		root: root,
		doc:  goquery.NewDocumentFromNode(root),
	}
}

// Find runs a CSS selector over the whole document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Root returns the underlying node tree.
func (d *Document) Root() *html.Node {
	return d.root
}

// meta returns the trimmed content of the first <meta> whose name or
// property attribute equals key.
func (d *Document) meta(key string) string {
	v, _ := d.doc.Find(`meta[name="` + key + `"], meta[property="` + key + `"]`).First().Attr("content")
	return strings.TrimSpace(v)
}
