package fetcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/newsgoat/internal/config"
	"github.com/IshaanNene/newsgoat/internal/observability"
	"github.com/IshaanNene/newsgoat/internal/types"
)

// Fetcher is the interface for all page fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the page at rawURL.
	Fetch(ctx context.Context, rawURL string) (*types.Page, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// New builds the fetcher selected by cfg.Fetcher.Type.
func New(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (Fetcher, error) {
	switch cfg.Fetcher.Type {
	case "", "http":
		return NewHTTPFetcher(cfg, logger, metrics)
	case "browser":
		return NewBrowserFetcher(cfg, logger, metrics)
	default:
		return nil, fmt.Errorf("unknown fetcher type %q", cfg.Fetcher.Type)
	}
}
