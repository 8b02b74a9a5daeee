package parser

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/newsgoat/internal/category"
	"github.com/IshaanNene/newsgoat/internal/site"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestExtractor() *Extractor {
	e := NewExtractor(site.Default(), testLogger, nil)
	e.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func mustParse(t *testing.T, body string) *Document {
	t.Helper()
	doc, err := Parse("https://www.df.cl/noticias/test", body)
	require.NoError(t, err)
	return doc
}

const (
	para1 = "El Banco Central mantuvo la tasa de interés en 5,75%."
	para2 = "La decisión fue unánime entre los consejeros del instituto emisor."
	para3 = "Los mercados anticipaban el resultado desde hace varias semanas."
)

func TestExtractCleanArticle(t *testing.T) {
	html := `<html><head>
<meta name="description" content="Desc">
<meta property="og:image" content="https://cdn.df.cl/foto.jpg">
</head><body>
<h1>Title</h1>
<p>` + para1 + `</p><p>` + para2 + `</p><p>` + para3 + `</p>
</body></html>`

	f := newTestExtractor().Extract(mustParse(t, html))
	assert.Equal(t, "Title", f.Title)
	assert.Equal(t, "Desc", f.Description)
	assert.Equal(t, "https://cdn.df.cl/foto.jpg", f.ImageURL)
	assert.Equal(t, para1+"\n\n"+para2+"\n\n"+para3, f.Content)
}

func TestExtractMissingEverything(t *testing.T) {
	f := newTestExtractor().Extract(mustParse(t, `<html><body><span>x</span></body></html>`))
	assert.Equal(t, "", f.Title)
	assert.Equal(t, "", f.Description)
	assert.Equal(t, "", f.ImageURL)
	assert.Equal(t, category.General, f.Category)
	assert.Equal(t, "", f.Content)
	assert.Equal(t, "2024-05-01T12:00:00Z", f.CreatedAt)
	assert.Empty(t, f.RelatedURLs)
}

func TestExtractKeepsEscapedAngleBrackets(t *testing.T) {
	html := `<html><head><meta name="description" content="Bajada &lt;IPSA&gt; &amp; dólar"></head><body>
<h1>Resultados &lt;Q3&gt; de la banca</h1>
<article><p>El indicador x&lt;b y c&gt;d se mantuvo estable en la jornada.</p></article>
</body></html>`

	f := newTestExtractor().Extract(mustParse(t, html))
	assert.Equal(t, "Resultados <Q3> de la banca", f.Title)
	assert.Equal(t, "Bajada <IPSA> & dólar", f.Description)
	assert.Equal(t, "El indicador x<b y c>d se mantuvo estable en la jornada.", f.Content)
}

func TestTitleCascade(t *testing.T) {
	e := newTestExtractor()
	assert.Equal(t, "OG", e.Title(mustParse(t, `<meta property="og:title" content=" OG "><title>T</title>`)))
	assert.Equal(t, "T", e.Title(mustParse(t, `<title> T </title>`)))
	assert.Equal(t, "H", e.Title(mustParse(t, `<meta property="og:title" content="OG"><h1>H</h1>`)))
}

func TestDescriptionCascade(t *testing.T) {
	e := newTestExtractor()
	assert.Equal(t, "og", e.Description(mustParse(t, `<meta property="og:description" content="og">`)))
	assert.Equal(t, "primer", e.Description(mustParse(t, `<article><p>primer</p><p>segundo</p></article>`)))
}

func TestImageCascadeResolvesRelative(t *testing.T) {
	e := newTestExtractor()
	assert.Equal(t, "https://www.df.cl/img/lead.jpg",
		e.Image(mustParse(t, `<div class="art-img"><img src="/img/lead.jpg"></div><img src="/other.jpg">`)))
	assert.Equal(t, "https://www.df.cl/img/body.jpg",
		e.Image(mustParse(t, `<div class="content"><img src="/img/body.jpg"></div>`)))
	assert.Equal(t, "https://www.df.cl/any.jpg",
		e.Image(mustParse(t, `<img src="/any.jpg">`)))
}

func TestCategoryCascade(t *testing.T) {
	e := newTestExtractor()
	tests := []struct {
		html string
		want category.Category
	}{
		{`<meta property="article:section" content="Mercados">`, category.Mercados},
		{`<meta property="article:section" content="Deportes"><span class="category">Economía</span>`, category.Economia},
		{`<link rel="canonical" href="https://www.df.cl/tecnologia/startup-x">`, category.Tecnologia},
		{`<link rel="canonical" href="https://www.df.cl/deportes/futbol">`, category.General},
		{``, category.General},
	}
	for _, tt := range tests {
		got := e.Category(mustParse(t, tt.html))
		assert.Equal(t, tt.want, got, tt.html)
		assert.True(t, got.Valid())
	}
}

func TestPublishedAtCascade(t *testing.T) {
	e := newTestExtractor()
	assert.Equal(t, "2024-03-01T10:00:00-03:00",
		e.PublishedAt(mustParse(t, `<meta property="article:published_time" content="2024-03-01T10:00:00-03:00">`)))
	assert.Equal(t, "2024-03-02",
		e.PublishedAt(mustParse(t, `<time datetime="2024-03-02">2 de marzo</time>`)))
	assert.Equal(t, "2 de marzo de 2024",
		e.PublishedAt(mustParse(t, `<span class="date"> 2 de marzo de 2024 </span>`)))
}

func TestContentDensestDivFallback(t *testing.T) {
	html := `<body>
<div id="nav"><p>menu corto</p></div>
<div id="main"><p>` + para1 + `</p><p>` + para2 + `</p><p>corto</p></div>
</body>`
	got := newTestExtractor().Content(mustParse(t, html))
	assert.Equal(t, para1+"\n\n"+para2, got)
}

func TestContentIncludesSubheadings(t *testing.T) {
	html := `<article><h1>Título</h1><p>` + para1 + `</p><h2>Un subtítulo suficientemente largo</h2><p>` + para2 + `</p></article>`
	got := newTestExtractor().Content(mustParse(t, html))
	assert.Equal(t, para1+"\n\nUn subtítulo suficientemente largo\n\n"+para2, got)
}

func TestContentRawTextFallback(t *testing.T) {
	html := "<article>" + para1 + "\nbreve\n" + para2 + "</article>"
	got := newTestExtractor().Content(mustParse(t, html))
	assert.Equal(t, para1+"\n\n"+para2, got)
}

func TestRelatedURLs(t *testing.T) {
	html := `<div class="related-news">
<a href="/noticias/a">A</a>
<a href="/noticias/a">A again</a>
<a href="/login/economia/">login</a>
<a href="https://twitter.com/x">tw</a>
</div>
<div class="read-more"><a href="https://www.df.cl/mercados/b">B</a></div>`

	got := newTestExtractor().RelatedURLs(mustParse(t, html))
	assert.Equal(t, []string{"https://www.df.cl/noticias/a", "https://www.df.cl/mercados/b"}, got)
}

func TestListingLinks(t *testing.T) {
	html := `<body>
<div class="featured-article">
  <a href="/empresas/retail/nota-1"><h2> Nota   destacada </h2></a>
  <img data-src="/img/1.jpg">
</div>
<article>
  <a href="/mercados/nota-2">Nota de mercados</a>
  <div style="background-image: url('/img/2.jpg')"></div>
</article>
<article><a href="/mercados/nota-2"><h3>Duplicada</h3></a></article>
<article><a href="/login/">Ingresar</a></article>
<article><a href="/economia/sin-titulo"><img src="/x.jpg"></a></article>
</body>`

	links := newTestExtractor().ListingLinks(mustParse(t, html))
	require.Len(t, links, 2)

	assert.Equal(t, "https://www.df.cl/empresas/retail/nota-1", links[0].URL)
	assert.Equal(t, "Nota destacada", links[0].Title)
	assert.Equal(t, "https://www.df.cl/img/1.jpg", links[0].ImageURL)

	assert.Equal(t, "https://www.df.cl/mercados/nota-2", links[1].URL)
	assert.Equal(t, "Nota de mercados", links[1].Title)
	assert.Equal(t, "https://www.df.cl/img/2.jpg", links[1].ImageURL)
}

func TestListingLinksFollowDocumentOrder(t *testing.T) {
	html := `<body>
<article><a href="/mercados/primera"><h3>Primera</h3></a></article>
<div class="featured-article"><a href="/empresas/segunda"><h2>Segunda</h2></a></div>
<article><a href="/noticias/tercera"><h3>Tercera</h3></a></article>
<div class="news-item"><a href="/economia/cuarta">Cuarta</a></div>
</body>`

	links := newTestExtractor().ListingLinks(mustParse(t, html))
	var titles []string
	for _, l := range links {
		titles = append(titles, l.Title)
	}
	assert.Equal(t, []string{"Primera", "Segunda", "Tercera", "Cuarta"}, titles)
}

func TestParseNeverFailsOnGarbage(t *testing.T) {
	doc, err := Parse("u", strings.Repeat("<div><<<>>", 50))
	require.NoError(t, err)
	f := newTestExtractor().Extract(doc)
	assert.True(t, f.Category.Valid())
}

func TestJSONLDFallbacks(t *testing.T) {
	html := `<html><head>
<script type="application/ld+json">{"@context":"https://schema.org","@type":"WebSite","name":"DF"}</script>
<script type="application/ld+json">{"@graph":[
  {"@type":"BreadcrumbList"},
  {"@type":["NewsArticle"],"headline":"Titular LD","description":"Bajada LD",
   "datePublished":"2024-04-02T08:30:00-04:00","articleSection":"Tecnología",
   "image":{"@type":"ImageObject","url":"https://cdn.df.cl/ld.jpg"}}
]}</script>
</head><body><span>x</span></body></html>`

	e := newTestExtractor()
	doc := mustParse(t, html)
	assert.Equal(t, "Titular LD", e.Title(doc))
	assert.Equal(t, "Bajada LD", e.Description(doc))
	assert.Equal(t, "2024-04-02T08:30:00-04:00", e.PublishedAt(doc))
	assert.Equal(t, category.Tecnologia, e.Category(doc))
	assert.Equal(t, "https://cdn.df.cl/ld.jpg", doc.article().Image)
}

func TestJSONLDTextIsStripped(t *testing.T) {
	html := `<html><head>
<script type="application/ld+json">{"@type":"NewsArticle",
 "headline":"Alza del <b>IPSA</b> &amp; dólar",
 "description":"<p>Primer   párrafo</p>"}</script>
</head><body></body></html>`

	e := newTestExtractor()
	doc := mustParse(t, html)
	assert.Equal(t, "Alza del IPSA & dólar", e.Title(doc))
	assert.Equal(t, "Primer párrafo", e.Description(doc))
}

func TestJSONLDIgnoredWhenEarlierStepsMatch(t *testing.T) {
	html := `<html><head><title>Desde title</title>
<script type="application/ld+json">{"@type":"NewsArticle","headline":"Titular LD"}</script>
<script type="application/ld+json">not json</script>
</head><body></body></html>`

	assert.Equal(t, "Desde title", newTestExtractor().Title(mustParse(t, html)))
}
