package types

import (
	"net/http"
	"time"
)

// Page represents the result of fetching a single URL.
type Page struct {
	// URL is the URL that was requested.
	URL string

	// FinalURL is the URL after any redirects.
	FinalURL string

	// StatusCode is the HTTP status code.
	StatusCode int

	// Headers are the response HTTP headers.
	Headers http.Header

	// Body is the decoded response body.
	Body []byte

	// ContentType is the MIME type of the response.
	ContentType string

	// FetchDuration is how long the fetch took.
	FetchDuration time.Duration

	// FetchedAt is when this page was received.
	FetchedAt time.Time
}

// NewPage creates a Page from an http.Response and its decoded body.
func NewPage(rawURL string, httpResp *http.Response, body []byte, duration time.Duration) *Page {
	finalURL := rawURL
	if httpResp.Request != nil && httpResp.Request.URL != nil {
		finalURL = httpResp.Request.URL.String()
	}
	return &Page{
		URL:           rawURL,
		FinalURL:      finalURL,
		StatusCode:    httpResp.StatusCode,
		Headers:       httpResp.Header,
		Body:          body,
		ContentType:   httpResp.Header.Get("Content-Type"),
		FetchDuration: duration,
		FetchedAt:     time.Now(),
	}
}

// NewBrowserPage creates a Page from headless browser output.
func NewBrowserPage(rawURL string, statusCode int, body []byte, finalURL string, duration time.Duration) *Page {
	return &Page{
		URL:           rawURL,
		FinalURL:      finalURL,
		StatusCode:    statusCode,
		Headers:       make(http.Header),
		Body:          body,
		ContentType:   "text/html",
		FetchDuration: duration,
		FetchedAt:     time.Now(),
	}
}

// HTML returns the body as a string.
func (p *Page) HTML() string {
	return string(p.Body)
}

// IsSuccess returns true if the page status is 2xx.
func (p *Page) IsSuccess() bool {
	return p.StatusCode >= 200 && p.StatusCode < 300
}
