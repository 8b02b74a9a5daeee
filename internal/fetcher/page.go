package fetcher

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/IshaanNene/newsgoat/internal/cache"
)

// PageFetcher returns page HTML, serving repeated URLs from the page cache.
// Only successful fetches are cached. Concurrent misses for the same URL
// share one network fetch, which is not cancelled with the caller that
// started it.
type PageFetcher struct {
	fetcher Fetcher
	cache   *cache.Store[string]
	group   singleflight.Group
	logger  *slog.Logger
}

// NewPageFetcher wraps f with the given page cache.
func NewPageFetcher(f Fetcher, pages *cache.Store[string], logger *slog.Logger) *PageFetcher {
	return &PageFetcher{
		fetcher: f,
		cache:   pages,
		logger:  logger.With("component", "page_fetcher"),
	}
}

// Get returns the HTML at rawURL. Errors are *types.FetchError.
func (p *PageFetcher) Get(ctx context.Context, rawURL string) (string, error) {
	if html, ok := p.cache.Get(rawURL); ok {
		p.logger.Debug("page cache hit", "url", rawURL)
		return html, nil
	}

	v, err, shared := p.group.Do(rawURL, func() (any, error) {
		page, err := p.fetcher.Fetch(context.WithoutCancel(ctx), rawURL)
		if err != nil {
			return "", err
		}
		html := page.HTML()
		if page.IsSuccess() {
			p.cache.Set(rawURL, html)
		}
		return html, nil
	})
	if err != nil {
		p.logger.Warn("page fetch failed", "url", rawURL, "error", err)
		return "", err
	}
	if shared {
		p.logger.Debug("shared in-flight fetch", "url", rawURL)
	}
	return v.(string), nil
}

// Close closes the underlying fetcher.
func (p *PageFetcher) Close() error {
	return p.fetcher.Close()
}
