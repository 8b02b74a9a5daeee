package fetcher

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// robotsAgent is the user-agent token matched against robots.txt groups.
const robotsAgent = "newsgoat"

// RobotsGate fetches, caches and enforces robots.txt per origin. An origin
// whose robots.txt cannot be fetched is treated as allowing everything.
type RobotsGate struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger

	mu     sync.RWMutex
	groups map[string]*robotstxt.Group
}

// NewRobotsGate creates a gate that fetches robots.txt with client.
func NewRobotsGate(client *http.Client, userAgent string, logger *slog.Logger) *RobotsGate {
	return &RobotsGate{
		client:    client,
		userAgent: userAgent,
		logger:    logger.With("component", "robots"),
		groups:    make(map[string]*robotstxt.Group),
	}
}

// IsAllowed checks rawURL against its origin's robots.txt.
func (g *RobotsGate) IsAllowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}
	group := g.groupFor(ctx, u.Scheme+"://"+u.Host)
	if group == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	if !group.Test(path) {
		g.logger.Debug("blocked by robots.txt", "url", rawURL)
		return false
	}
	return true
}

func (g *RobotsGate) groupFor(ctx context.Context, origin string) *robotstxt.Group {
	g.mu.RLock()
	group, ok := g.groups[origin]
	g.mu.RUnlock()
	if ok {
		return group
	}

	group = g.fetch(ctx, origin)

	g.mu.Lock()
	g.groups[origin] = group
	g.mu.Unlock()
	return group
}

func (g *RobotsGate) fetch(ctx context.Context, origin string) *robotstxt.Group {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Debug("robots.txt unavailable", "origin", origin, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil
	}
	return parseRobotsTxt(body)
}

// parseRobotsTxt returns the group that applies to newsgoat, falling back
// to the "*" group. Unparseable files yield nil.
func parseRobotsTxt(body []byte) *robotstxt.Group {
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil
	}
	return data.FindGroup(robotsAgent)
}
