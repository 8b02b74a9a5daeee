package fetcher

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/newsgoat/internal/cache"
	"github.com/IshaanNene/newsgoat/internal/config"
	"github.com/IshaanNene/newsgoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestFetcher(t *testing.T, mutate func(*config.Config)) *HTTPFetcher {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	f, err := NewHTTPFetcher(cfg, testLogger, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestHTTPFetcherSendsBrowserHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, nil)
	page, err := f.Fetch(context.Background(), srv.URL+"/noticias/a")
	require.NoError(t, err)

	assert.Equal(t, 200, page.StatusCode)
	assert.Contains(t, page.HTML(), "ok")
	assert.Contains(t, got.Get("User-Agent"), "Mozilla/5.0")
	assert.Contains(t, got.Get("Accept"), "text/html")
	assert.Equal(t, "es-ES,es;q=0.8,en-US;q=0.5,en;q=0.3", got.Get("Accept-Language"))
}

func TestHTTPFetcherDecodesBrotli(t *testing.T) {
	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	_, _ = bw.Write([]byte("<h1>Comprimido</h1>"))
	require.NoError(t, bw.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "br")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	f := newTestFetcher(t, nil)
	page, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<h1>Comprimido</h1>", page.HTML())
}

func TestHTTPFetcherNon2xxIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := newTestFetcher(t, nil)
	_, err := f.Fetch(context.Background(), srv.URL+"/missing")
	require.Error(t, err)

	var fe *types.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 404, fe.StatusCode)
	assert.Equal(t, srv.URL+"/missing", fe.URL)
	assert.False(t, fe.IsRetryable())
}

func TestHTTPFetcherTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	f := newTestFetcher(t, func(c *config.Config) { c.Fetcher.RequestTimeout = 50 * time.Millisecond })
	_, err := f.Fetch(context.Background(), srv.URL)
	var fe *types.FetchError
	require.True(t, errors.As(err, &fe))
}

func TestHTTPFetcherEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	f := newTestFetcher(t, nil)
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, types.ErrEmptyResponse)
}

func TestHTTPFetcherBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer srv.Close()

	f := newTestFetcher(t, func(c *config.Config) { c.Fetcher.MaxBodySize = 10 })
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, types.ErrBodyTooLarge)
}

func TestHTTPFetcherRespectsRobots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /privado/\n"))
			return
		}
		_, _ = w.Write([]byte("<p>hola</p>"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, func(c *config.Config) { c.Fetcher.RespectRobotsTxt = true })

	_, err := f.Fetch(context.Background(), srv.URL+"/privado/nota")
	assert.ErrorIs(t, err, types.ErrBlocked)

	_, err = f.Fetch(context.Background(), srv.URL+"/noticias/nota")
	assert.NoError(t, err)
}

func TestRobotsGroupRules(t *testing.T) {
	group := parseRobotsTxt([]byte(`
# comment
User-agent: googlebot
Disallow: /noticias/

User-agent: *
Disallow: /admin/
Allow: /admin/publico
Disallow: /*.pdf$
Disallow: /borradores/*$
`))
	require.NotNil(t, group)

	assert.True(t, group.Test("/noticias/nota"))
	assert.False(t, group.Test("/admin/panel"))
	assert.True(t, group.Test("/admin/publico"))
	assert.False(t, group.Test("/docs/a.pdf"))
	assert.True(t, group.Test("/docs/a.pdf?x=1"))
	assert.False(t, group.Test("/borradores/nota"))
}

func TestRobotsGroupForNewsgoat(t *testing.T) {
	group := parseRobotsTxt([]byte("User-agent: *\nDisallow: /\n\nUser-agent: NewsGoat\nDisallow: /privado/\n"))
	require.NotNil(t, group)
	assert.True(t, group.Test("/noticias/nota"))
	assert.False(t, group.Test("/privado/nota"))
}

func TestHostLimiterSpacesRequests(t *testing.T) {
	l := NewHostLimiter(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://www.df.cl/a"))
	require.NoError(t, l.Wait(ctx, "https://www.df.cl/b"))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)

	// A different host has its own budget.
	start = time.Now()
	require.NoError(t, l.Wait(ctx, "https://other.cl/a"))
	assert.Less(t, time.Since(start), 40*time.Millisecond)
}

func TestProxyManagerRoundRobin(t *testing.T) {
	pm := NewProxyManager(&config.ProxyConfig{
		Enabled:  true,
		Rotation: "round_robin",
		URLs:     []string{"http://p1:8080", "http://p2:8080", "::bad"},
	}, testLogger, nil)

	require.Equal(t, 2, pm.Count())
	assert.Equal(t, "p1:8080", pm.Next().Host)
	assert.Equal(t, "p2:8080", pm.Next().Host)
	assert.Equal(t, "p1:8080", pm.Next().Host)
}

// countingFetcher counts calls and serves a fixed body.
type countingFetcher struct {
	calls atomic.Int32
	body  string
	err   error
}

func (c *countingFetcher) Fetch(ctx context.Context, rawURL string) (*types.Page, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return types.NewBrowserPage(rawURL, 200, []byte(c.body), rawURL, 0), nil
}
func (c *countingFetcher) Close() error { return nil }
func (c *countingFetcher) Type() string { return "counting" }

func TestPageFetcherCachesSuccess(t *testing.T) {
	cf := &countingFetcher{body: "<html>cached</html>"}
	pages := cache.New[string]("pages", 20, 30*time.Minute, testLogger)
	pf := NewPageFetcher(cf, pages, testLogger)

	for i := 0; i < 3; i++ {
		html, err := pf.Get(context.Background(), "https://www.df.cl/noticias/a")
		require.NoError(t, err)
		assert.Equal(t, "<html>cached</html>", html)
	}
	assert.Equal(t, int32(1), cf.calls.Load())
}

func TestPageFetcherDoesNotCacheFailures(t *testing.T) {
	cf := &countingFetcher{err: &types.FetchError{URL: "u", StatusCode: 500, Err: errors.New("boom")}}
	pages := cache.New[string]("pages", 20, 30*time.Minute, testLogger)
	pf := NewPageFetcher(cf, pages, testLogger)

	_, err := pf.Get(context.Background(), "u")
	require.Error(t, err)
	_, err = pf.Get(context.Background(), "u")
	require.Error(t, err)
	assert.Equal(t, int32(2), cf.calls.Load())
	assert.Equal(t, 0, pages.Len())
}

func TestHTTPFetcherKeepsSessionCookies(t *testing.T) {
	var sawCookie atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("consent"); err == nil && c.Value == "yes" {
			sawCookie.Store(true)
		}
		http.SetCookie(w, &http.Cookie{Name: "consent", Value: "yes", Path: "/"})
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, nil)
	_, err := f.Fetch(context.Background(), srv.URL+"/noticias/a")
	require.NoError(t, err)
	assert.False(t, sawCookie.Load())
	assert.True(t, f.Session().HasCookies(srv.URL))

	_, err = f.Fetch(context.Background(), srv.URL+"/noticias/b")
	require.NoError(t, err)
	assert.True(t, sawCookie.Load())

	f.Session().Reset()
	assert.False(t, f.Session().HasCookies(srv.URL))
}
