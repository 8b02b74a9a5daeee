package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := ValidateURL(cfg.Site.BaseURL); err != nil {
		return fmt.Errorf("site.base_url: %w", err)
	}
	if strings.TrimSpace(cfg.Site.DomainMarker) == "" {
		return fmt.Errorf("site.domain_marker must not be empty")
	}

	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}
	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if len(cfg.Fetcher.UserAgents) == 0 {
		return fmt.Errorf("fetcher.user_agents must contain at least one entry")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}
	if cfg.Fetcher.PolitenessDelay < 0 {
		return fmt.Errorf("fetcher.politeness_delay must be >= 0")
	}

	if cfg.Proxy.Enabled {
		if cfg.Proxy.Rotation != "round_robin" && cfg.Proxy.Rotation != "random" {
			return fmt.Errorf("proxy.rotation must be 'round_robin' or 'random', got %q", cfg.Proxy.Rotation)
		}
		for _, proxyURL := range cfg.Proxy.URLs {
			if _, err := url.Parse(proxyURL); err != nil {
				return fmt.Errorf("invalid proxy URL %q: %w", proxyURL, err)
			}
		}
	}

	if cfg.Cache.PageMaxEntries < 1 || cfg.Cache.NewsMaxEntries < 1 {
		return fmt.Errorf("cache max entries must be >= 1 (page=%d, news=%d)",
			cfg.Cache.PageMaxEntries, cfg.Cache.NewsMaxEntries)
	}
	if cfg.Cache.PageTTL <= 0 || cfg.Cache.NewsTTL <= 0 {
		return fmt.Errorf("cache TTLs must be > 0")
	}

	if cfg.Listing.PerCategory < 1 {
		return fmt.Errorf("listing.per_category must be >= 1, got %d", cfg.Listing.PerCategory)
	}
	if cfg.Listing.Concurrency < 1 || cfg.Listing.Concurrency > 32 {
		return fmt.Errorf("listing.concurrency must be 1-32, got %d", cfg.Listing.Concurrency)
	}

	validStorageTypes := map[string]bool{
		"json": true, "jsonl": true, "csv": true,
	}
	if !validStorageTypes[cfg.Storage.Type] {
		return fmt.Errorf("storage.type %q is not supported (valid: json, jsonl, csv)", cfg.Storage.Type)
	}
	if cfg.Storage.Archive.Enabled && cfg.Storage.Archive.URI == "" {
		return fmt.Errorf("storage.archive.uri is required when the archive is enabled")
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", cfg.Server.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	return nil
}

// ValidateURL checks if a URL string is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
