package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/newsgoat/internal/config"
	"github.com/IshaanNene/newsgoat/internal/observability"
	"github.com/IshaanNene/newsgoat/internal/types"
)

// HTTPFetcher implements Fetcher using net/http. It sends browser-like
// headers, decodes gzip/deflate/br bodies and treats every non-2xx status
// as a FetchError.
type HTTPFetcher struct {
	client     *http.Client
	cfg        *config.FetcherConfig
	proxyMgr   *ProxyManager
	session    *Session
	robots     *RobotsGate
	limiter    *HostLimiter
	metrics    *observability.Metrics
	logger     *slog.Logger
	userAgents []string
	uaIndex    atomic.Int64
}

// NewHTTPFetcher creates a new HTTP fetcher.
func NewHTTPFetcher(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*HTTPFetcher, error) {
	session := NewSession(logger)

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   cfg.Fetcher.RequestTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.Fetcher.MaxIdleConns,
		MaxIdleConnsPerHost: max(cfg.Fetcher.MaxIdleConns/2, 1),
		IdleConnTimeout:     cfg.Fetcher.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.Fetcher.TLSInsecure,
		},
		DisableCompression: true, // decoded below, including brotli
	}

	var proxyMgr *ProxyManager
	if cfg.Proxy.Enabled && len(cfg.Proxy.URLs) > 0 {
		proxyMgr = NewProxyManager(&cfg.Proxy, logger, metrics)
		transport.Proxy = proxyMgr.ProxyFunc()
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if !cfg.Fetcher.FollowRedirects {
			return http.ErrUseLastResponse
		}
		if len(via) >= cfg.Fetcher.MaxRedirects {
			return fmt.Errorf("max redirects (%d) reached", cfg.Fetcher.MaxRedirects)
		}
		return nil
	}

	client := &http.Client{
		Transport:     transport,
		Jar:           session,
		Timeout:       cfg.Fetcher.RequestTimeout,
		CheckRedirect: redirectPolicy,
	}

	f := &HTTPFetcher{
		client:     client,
		cfg:        &cfg.Fetcher,
		proxyMgr:   proxyMgr,
		session:    session,
		metrics:    metrics,
		logger:     logger.With("component", "http_fetcher"),
		userAgents: cfg.Fetcher.UserAgents,
	}
	if cfg.Fetcher.RespectRobotsTxt {
		f.robots = NewRobotsGate(client, f.nextUserAgent(), logger)
	}
	if cfg.Fetcher.PolitenessDelay > 0 {
		f.limiter = NewHostLimiter(cfg.Fetcher.PolitenessDelay)
	}
	return f, nil
}

// Fetch issues a GET for rawURL and returns the decoded page.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*types.Page, error) {
	if f.robots != nil && !f.robots.IsAllowed(ctx, rawURL) {
		return nil, &types.FetchError{URL: rawURL, Err: types.ErrBlocked}
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, &types.FetchError{URL: rawURL, Err: err}
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err}
	}
	httpReq.Header.Set("User-Agent", f.nextUserAgent())
	httpReq.Header.Set("Accept", f.cfg.Accept)
	httpReq.Header.Set("Accept-Language", f.cfg.AcceptLanguage)
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")

	start := time.Now()
	httpResp, err := f.client.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		f.metrics.ObserveFetch(f.Type(), 0, duration, 0)
		return nil, &types.FetchError{URL: rawURL, Err: err, Retryable: isRetryableError(err)}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		f.metrics.ObserveFetch(f.Type(), httpResp.StatusCode, duration, 0)
		_, _ = io.Copy(io.Discard, io.LimitReader(httpResp.Body, 4096))
		return nil, &types.FetchError{
			URL:        rawURL,
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("HTTP %d", httpResp.StatusCode),
			Retryable:  httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500,
		}
	}

	reader, err := decompressReader(httpResp, httpResp.Body)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, StatusCode: httpResp.StatusCode, Err: err}
	}
	// Read one byte past the limit to detect oversized bodies.
	body, err := io.ReadAll(io.LimitReader(reader, f.cfg.MaxBodySize+1))
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, StatusCode: httpResp.StatusCode, Err: err, Retryable: true}
	}
	if int64(len(body)) > f.cfg.MaxBodySize {
		return nil, &types.FetchError{URL: rawURL, StatusCode: httpResp.StatusCode, Err: types.ErrBodyTooLarge}
	}
	if len(body) == 0 {
		return nil, &types.FetchError{URL: rawURL, StatusCode: httpResp.StatusCode, Err: types.ErrEmptyResponse}
	}

	page := types.NewPage(rawURL, httpResp, body, time.Since(start))
	f.metrics.ObserveFetch(f.Type(), page.StatusCode, page.FetchDuration, len(body))

	f.logger.Debug("fetch complete",
		"url", rawURL,
		"status", page.StatusCode,
		"size", len(body),
		"duration", page.FetchDuration,
	)

	return page, nil
}

// Session returns the cookie state shared by this fetcher's requests.
func (f *HTTPFetcher) Session() *Session {
	return f.session
}

// Close releases resources.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// Type returns the fetcher type identifier.
func (f *HTTPFetcher) Type() string {
	return "http"
}

// nextUserAgent returns the next User-Agent in rotation.
func (f *HTTPFetcher) nextUserAgent() string {
	if len(f.userAgents) == 0 {
		return "NewsGoat/" + config.Version
	}
	idx := f.uaIndex.Add(1) % int64(len(f.userAgents))
	return f.userAgents[idx]
}

// decompressReader wraps a reader with the decoder for the response's
// Content-Encoding: gzip, deflate or brotli.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

// isRetryableError reports whether a transport error is transient. The
// pipelines never retry; the flag is informational for callers.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNRESET) ||
			errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return true
		}
	}
	return false
}
