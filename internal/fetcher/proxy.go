package fetcher

import (
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/IshaanNene/newsgoat/internal/config"
	"github.com/IshaanNene/newsgoat/internal/observability"
)

// ProxyManager rotates outbound requests across configured proxies.
type ProxyManager struct {
	proxies  []*url.URL
	rotation string
	index    atomic.Int64
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewProxyManager creates a ProxyManager from configuration. Unparseable
// URLs are logged and skipped.
func NewProxyManager(cfg *config.ProxyConfig, logger *slog.Logger, metrics *observability.Metrics) *ProxyManager {
	pm := &ProxyManager{
		proxies:  make([]*url.URL, 0, len(cfg.URLs)),
		rotation: cfg.Rotation,
		metrics:  metrics,
		logger:   logger.With("component", "proxy_manager"),
	}

	for _, rawURL := range cfg.URLs {
		u, err := url.Parse(rawURL)
		if err != nil || u.Host == "" {
			pm.logger.Warn("invalid proxy URL", "url", rawURL, "error", err)
			continue
		}
		pm.proxies = append(pm.proxies, u)
	}

	pm.logger.Info("proxy manager initialized", "count", len(pm.proxies), "rotation", cfg.Rotation)
	return pm
}

// ProxyFunc returns an http.Transport-compatible proxy function.
func (pm *ProxyManager) ProxyFunc() func(*http.Request) (*url.URL, error) {
	return func(*http.Request) (*url.URL, error) {
		return pm.Next(), nil
	}
}

// Next returns the next proxy URL, or nil for a direct connection.
func (pm *ProxyManager) Next() *url.URL {
	if len(pm.proxies) == 0 {
		return nil
	}
	pm.metrics.ProxyRotation()

	if pm.rotation == "random" {
		return pm.proxies[rand.Intn(len(pm.proxies))]
	}
	idx := (pm.index.Add(1) - 1) % int64(len(pm.proxies))
	return pm.proxies[idx]
}

// Count returns the number of usable proxies.
func (pm *ProxyManager) Count() int {
	return len(pm.proxies)
}
