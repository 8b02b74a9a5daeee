// Package site describes the scraped news site: its base URL, the URL
// validator that separates article pages from everything else, and
// resolution of relative links.
package site

import (
	"net/url"
	"strings"
)

const (
	DefaultBaseURL  = "https://www.df.cl"
	DefaultProvider = "DF.cl"
	DefaultMarker   = "df.cl"
)

// denied path fragments; checked before allowed.
var denied = []string{
	"/login", "/registro", "/suscripcion", "/contacto", "/quienes-somos",
	"/privacidad", "/terminos", "/newsletters", "/pdf", "/perfil",
	"/editar", "/users", "/p/",
	"twitter.com", "facebook.com", "linkedin.com",
}

var allowed = []string{
	"/noticias/", "/economia/", "/empresas/", "/mercados/", "/opinion/",
	"/internacional/", "/tecnologia/", "/dflab/", "/negocios/", "/mundo/",
	"/columnistas/",
}

// Site binds the validator and resolver to one base URL.
type Site struct {
	BaseURL  string
	Provider string
	Marker   string

	base *url.URL
}

// New creates a Site. Empty arguments fall back to the DF.cl defaults.
func New(baseURL, provider, marker string) *Site {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if provider == "" {
		provider = DefaultProvider
	}
	if marker == "" {
		marker = DefaultMarker
	}
	baseURL = strings.TrimRight(baseURL, "/")
	base, _ := url.Parse(baseURL)
	return &Site{BaseURL: baseURL, Provider: provider, Marker: marker, base: base}
}

// Default returns the production DF.cl site.
func Default() *Site {
	return New(DefaultBaseURL, DefaultProvider, DefaultMarker)
}

// IsValidNewsURL reports whether rawURL looks like an article page on this
// site. A URL carrying both a denied and an allowed fragment is rejected.
func (s *Site) IsValidNewsURL(rawURL string) bool {
	if rawURL == "" || !strings.Contains(rawURL, s.Marker) {
		return false
	}
	for _, d := range denied {
		if strings.Contains(rawURL, d) {
			return false
		}
	}
	for _, a := range allowed {
		if strings.Contains(rawURL, a) {
			return true
		}
	}
	return false
}

// Resolve turns a site-relative href into an absolute URL. Absolute URLs
// are returned unchanged; empty input stays empty.
func (s *Site) Resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		scheme := "https"
		if s.base != nil && s.base.Scheme != "" {
			scheme = s.base.Scheme
		}
		return scheme + ":" + href
	}
	if s.base != nil {
		ref, err := url.Parse(href)
		if err == nil {
			return s.base.ResolveReference(ref).String()
		}
	}
	if strings.HasPrefix(href, "/") {
		return s.BaseURL + href
	}
	return s.BaseURL + "/" + href
}
