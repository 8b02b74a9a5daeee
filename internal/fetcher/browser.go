package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/newsgoat/internal/config"
	"github.com/IshaanNene/newsgoat/internal/observability"
	"github.com/IshaanNene/newsgoat/internal/types"
)

// BrowserFetcher renders pages in headless Chromium via Rod, for index
// pages whose article blocks are injected by script.
type BrowserFetcher struct {
	browser  *rod.Browser
	cfg      *config.FetcherConfig
	metrics  *observability.Metrics
	logger   *slog.Logger
	pagePool chan *rod.Page
}

const browserMaxPages = 4

// NewBrowserFetcher launches a headless browser and connects to it.
func NewBrowserFetcher(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*BrowserFetcher, error) {
	bf := &BrowserFetcher{
		cfg:      &cfg.Fetcher,
		metrics:  metrics,
		logger:   logger.With("component", "browser_fetcher"),
		pagePool: make(chan *rod.Page, browserMaxPages),
	}

	l := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled")

	if cfg.Proxy.Enabled && len(cfg.Proxy.URLs) > 0 {
		if proxyURL := NewProxyManager(&cfg.Proxy, logger, metrics).Next(); proxyURL != nil {
			l = l.Proxy(proxyURL.String())
		}
	}

	launchURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	bf.browser = browser

	bf.logger.Info("browser fetcher ready", "max_pages", browserMaxPages)
	return bf, nil
}

// Fetch navigates to rawURL and returns the rendered HTML.
func (bf *BrowserFetcher) Fetch(ctx context.Context, rawURL string) (*types.Page, error) {
	start := time.Now()

	page, err := bf.getPage()
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err, Retryable: true}
	}
	defer bf.putPage(page)

	page = page.Context(ctx)

	if len(bf.cfg.UserAgents) > 0 {
		err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      bf.cfg.UserAgents[0],
			AcceptLanguage: bf.cfg.AcceptLanguage,
		})
		if err != nil {
			bf.logger.Warn("failed to set user agent", "error", err)
		}
	}

	timeout := bf.cfg.RequestTimeout
	if err := page.Timeout(timeout).Navigate(rawURL); err != nil {
		bf.metrics.ObserveFetch(bf.Type(), 0, time.Since(start), 0)
		return nil, &types.FetchError{URL: rawURL, Err: err, Retryable: true}
	}
	if err := page.Timeout(timeout).WaitStable(300 * time.Millisecond); err != nil {
		bf.logger.Warn("page stability timeout, continuing", "url", rawURL, "error", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err, Retryable: true}
	}
	if html == "" {
		return nil, &types.FetchError{URL: rawURL, Err: types.ErrEmptyResponse}
	}

	finalURL := rawURL
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	// Rod does not expose the navigation status code; a rendered page counts as 200.
	result := types.NewBrowserPage(rawURL, 200, []byte(html), finalURL, time.Since(start))
	bf.metrics.ObserveFetch(bf.Type(), result.StatusCode, result.FetchDuration, len(html))

	bf.logger.Debug("browser fetch complete",
		"url", rawURL,
		"final_url", finalURL,
		"size", len(html),
		"duration", result.FetchDuration,
	)
	return result, nil
}

// Close shuts down the browser and releases resources.
func (bf *BrowserFetcher) Close() error {
	close(bf.pagePool)
	for page := range bf.pagePool {
		_ = page.Close()
	}
	if bf.browser != nil {
		return bf.browser.Close()
	}
	return nil
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}

// getPage takes a pooled page or opens a new stealth page.
func (bf *BrowserFetcher) getPage() (*rod.Page, error) {
	select {
	case page := <-bf.pagePool:
		return page, nil
	default:
		return stealth.Page(bf.browser)
	}
}

// putPage returns a page to the pool, closing it if the pool is full.
func (bf *BrowserFetcher) putPage(page *rod.Page) {
	_ = page.Navigate("about:blank")

	select {
	case bf.pagePool <- page:
	default:
		_ = page.Close()
	}
}
