package fetcher

import (
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"golang.org/x/net/publicsuffix"
)

// Session is the cookie state shared by every fetch. Cookie scope follows
// the public suffix list, so a cookie set for df.cl reaches www.df.cl.
// Session implements http.CookieJar.
type Session struct {
	mu     sync.RWMutex
	jar    *cookiejar.Jar
	logger *slog.Logger
}

// NewSession creates an empty Session.
func NewSession(logger *slog.Logger) *Session {
	return &Session{
		jar:    newJar(),
		logger: logger.With("component", "session"),
	}
}

func newJar() *cookiejar.Jar {
	// cookiejar.New never returns an error.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return jar
}

func (s *Session) SetCookies(u *url.URL, cookies []*http.Cookie) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.jar.SetCookies(u, cookies)
	if len(cookies) > 0 {
		s.logger.Debug("cookies stored", "host", u.Host, "count", len(cookies))
	}
}

func (s *Session) Cookies(u *url.URL) []*http.Cookie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jar.Cookies(u)
}

// Reset drops every stored cookie.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jar = newJar()
	s.logger.Debug("session reset")
}

// HasCookies reports whether any cookie would be sent to rawURL.
func (s *Session) HasCookies(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return len(s.Cookies(u)) > 0
}
