package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for NewsGoat.
type Config struct {
	Site    SiteConfig    `mapstructure:"site"    yaml:"site"`
	Fetcher FetcherConfig `mapstructure:"fetcher" yaml:"fetcher"`
	Proxy   ProxyConfig   `mapstructure:"proxy"   yaml:"proxy"`
	Cache   CacheConfig   `mapstructure:"cache"   yaml:"cache"`
	Listing ListingConfig `mapstructure:"listing" yaml:"listing"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Server  ServerConfig  `mapstructure:"server"  yaml:"server"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// SiteConfig identifies the scraped news site.
type SiteConfig struct {
	BaseURL      string `mapstructure:"base_url"      yaml:"base_url"`
	Provider     string `mapstructure:"provider"      yaml:"provider"`
	DomainMarker string `mapstructure:"domain_marker" yaml:"domain_marker"`
}

// FetcherConfig controls the page fetcher.
type FetcherConfig struct {
	Type             string        `mapstructure:"type"               yaml:"type"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"    yaml:"request_timeout"`
	UserAgents       []string      `mapstructure:"user_agents"        yaml:"user_agents"`
	Accept           string        `mapstructure:"accept"             yaml:"accept"`
	AcceptLanguage   string        `mapstructure:"accept_language"    yaml:"accept_language"`
	FollowRedirects  bool          `mapstructure:"follow_redirects"   yaml:"follow_redirects"`
	MaxRedirects     int           `mapstructure:"max_redirects"      yaml:"max_redirects"`
	MaxBodySize      int64         `mapstructure:"max_body_size"      yaml:"max_body_size"`
	TLSInsecure      bool          `mapstructure:"tls_insecure"       yaml:"tls_insecure"`
	IdleConnTimeout  time.Duration `mapstructure:"idle_conn_timeout"  yaml:"idle_conn_timeout"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"     yaml:"max_idle_conns"`
	PolitenessDelay  time.Duration `mapstructure:"politeness_delay"   yaml:"politeness_delay"`
	RespectRobotsTxt bool          `mapstructure:"respect_robots_txt" yaml:"respect_robots_txt"`
}

// ProxyConfig controls proxy rotation.
type ProxyConfig struct {
	Enabled  bool     `mapstructure:"enabled"  yaml:"enabled"`
	Rotation string   `mapstructure:"rotation" yaml:"rotation"`
	URLs     []string `mapstructure:"urls"     yaml:"urls"`
}

// CacheConfig sizes the page and news caches.
type CacheConfig struct {
	PageMaxEntries int           `mapstructure:"page_max_entries" yaml:"page_max_entries"`
	PageTTL        time.Duration `mapstructure:"page_ttl"         yaml:"page_ttl"`
	NewsMaxEntries int           `mapstructure:"news_max_entries" yaml:"news_max_entries"`
	NewsTTL        time.Duration `mapstructure:"news_ttl"         yaml:"news_ttl"`
}

// ListingConfig controls index-page resolution.
type ListingConfig struct {
	PerCategory int `mapstructure:"per_category" yaml:"per_category"`
	Concurrency int `mapstructure:"concurrency"  yaml:"concurrency"`
}

// StorageConfig controls export files and the optional archive.
type StorageConfig struct {
	Type       string        `mapstructure:"type"        yaml:"type"`
	OutputPath string        `mapstructure:"output_path" yaml:"output_path"`
	Archive    ArchiveConfig `mapstructure:"archive"     yaml:"archive"`
}

// ArchiveConfig controls the MongoDB archive of extracted records.
type ArchiveConfig struct {
	Enabled    bool          `mapstructure:"enabled"    yaml:"enabled"`
	URI        string        `mapstructure:"uri"        yaml:"uri"`
	Database   string        `mapstructure:"database"   yaml:"database"`
	Collection string        `mapstructure:"collection" yaml:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"    yaml:"timeout"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Port         int           `mapstructure:"port"          yaml:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"  yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with the DF.cl defaults.
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:      "https://www.df.cl",
			Provider:     "DF.cl",
			DomainMarker: "df.cl",
		},
		Fetcher: FetcherConfig{
			Type:           "http",
			RequestTimeout: 10 * time.Second,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			},
			Accept:          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			AcceptLanguage:  "es-ES,es;q=0.8,en-US;q=0.5,en;q=0.3",
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    20,
		},
		Proxy: ProxyConfig{
			Enabled:  false,
			Rotation: "round_robin",
		},
		Cache: CacheConfig{
			PageMaxEntries: 20,
			PageTTL:        30 * time.Minute,
			NewsMaxEntries: 100,
			NewsTTL:        24 * time.Hour,
		},
		Listing: ListingConfig{
			PerCategory: 5,
			Concurrency: 1,
		},
		Storage: StorageConfig{
			Type:       "json",
			OutputPath: "./output",
			Archive: ArchiveConfig{
				Enabled:    false,
				URI:        "mongodb://localhost:27017",
				Database:   "newsgoat",
				Collection: "news",
				Timeout:    10 * time.Second,
			},
		},
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
