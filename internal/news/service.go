// Package news implements the article and listing pipelines over a
// scraped news site.
package news

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/IshaanNene/newsgoat/internal/cache"
	"github.com/IshaanNene/newsgoat/internal/config"
	"github.com/IshaanNene/newsgoat/internal/fetcher"
	"github.com/IshaanNene/newsgoat/internal/observability"
	"github.com/IshaanNene/newsgoat/internal/parser"
	"github.com/IshaanNene/newsgoat/internal/pipeline"
	"github.com/IshaanNene/newsgoat/internal/site"
	"github.com/IshaanNene/newsgoat/internal/summary"
	"github.com/IshaanNene/newsgoat/internal/types"
)

// Archive durably stores extracted records. storage.MongoArchive
// implements it.
type Archive interface {
	Save(ctx context.Context, rec *types.Record) error
	FindByID(ctx context.Context, id string) (*types.Record, error)
	Close() error
}

// Service owns the page and news caches and runs the pipelines.
type Service struct {
	site      *site.Site
	pages     *fetcher.PageFetcher
	pageCache *cache.Store[string]
	news      *cache.Store[*types.Record]
	extractor *parser.Extractor
	chain     *pipeline.Pipeline
	archive   Archive
	metrics   *observability.Metrics
	logger    *slog.Logger
	now       func() time.Time

	perCategory int
	concurrency int

	inflight singleflight.Group
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	archive Archive
	metrics *observability.Metrics
	now     func() time.Time
	chain   *pipeline.Pipeline
}

// WithArchive stores every extracted record in a, and consults it in GetByID.
func WithArchive(a Archive) Option {
	return func(o *serviceOptions) { o.archive = a }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *serviceOptions) { o.metrics = m }
}

// WithClock overrides the time source for cache expiry and fallback timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) { o.now = now }
}

// WithPipeline replaces the default record post-processing chain.
func WithPipeline(p *pipeline.Pipeline) Option {
	return func(o *serviceOptions) { o.chain = p }
}

// NewService wires a Service around f using the cache, site and listing
// settings in cfg.
func NewService(cfg *config.Config, f fetcher.Fetcher, logger *slog.Logger, opts ...Option) *Service {
	o := serviceOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.chain == nil {
		o.chain = pipeline.Default(logger)
	}

	cacheOpts := []cache.Option{cache.WithClock(o.now)}
	if o.metrics != nil {
		cacheOpts = append(cacheOpts, cache.WithObserver(o.metrics))
	}
	pageCache := cache.New[string]("pages", cfg.Cache.PageMaxEntries, cfg.Cache.PageTTL, logger, cacheOpts...)
	newsCache := cache.New[*types.Record]("news", cfg.Cache.NewsMaxEntries, cfg.Cache.NewsTTL, logger, cacheOpts...)

	s := site.New(cfg.Site.BaseURL, cfg.Site.Provider, cfg.Site.DomainMarker)

	return &Service{
		site:        s,
		pages:       fetcher.NewPageFetcher(f, pageCache, logger),
		pageCache:   pageCache,
		news:        newsCache,
		extractor:   parser.NewExtractor(s, logger, o.metrics),
		chain:       o.chain,
		archive:     o.archive,
		metrics:     o.metrics,
		logger:      logger.With("component", "news_service"),
		now:         o.now,
		perCategory: max(cfg.Listing.PerCategory, 1),
		concurrency: max(cfg.Listing.Concurrency, 1),
	}
}

// Site returns the site this service scrapes.
func (s *Service) Site() *site.Site { return s.site }

// GetArticle returns the record for an article URL, or nil when the URL
// is not an article or cannot be retrieved. It never fails.
func (s *Service) GetArticle(ctx context.Context, rawURL string) *types.Record {
	rec, err := s.FetchArticle(ctx, rawURL)
	if err != nil {
		if !errors.Is(err, types.ErrInvalidURL) {
			s.logger.Error("article unavailable", "url", rawURL, "error", err)
		}
		return nil
	}
	return rec
}

// FetchArticle is GetArticle with the failure reason: types.ErrInvalidURL
// for rejected URLs, otherwise a *types.FetchError. Concurrent calls for
// the same URL share one extraction, and cached records are returned
// as is. The shared extraction is not cancelled with the caller that
// started it; the fetcher timeout bounds it.
func (s *Service) FetchArticle(ctx context.Context, rawURL string) (*types.Record, error) {
	if !s.site.IsValidNewsURL(rawURL) {
		s.metrics.ArticleOutcome("rejected")
		s.logger.Debug("url rejected", "url", rawURL)
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidURL, rawURL)
	}

	if rec, ok := s.news.Get(rawURL); ok {
		s.metrics.ArticleOutcome("cached")
		return rec, nil
	}

	v, err, _ := s.inflight.Do(rawURL, func() (any, error) {
		if rec, ok := s.news.Get(rawURL); ok {
			return rec, nil
		}
		return s.extract(context.WithoutCancel(ctx), rawURL)
	})
	if err != nil {
		s.metrics.ArticleOutcome("failed")
		return nil, err
	}
	return v.(*types.Record), nil
}

func (s *Service) extract(ctx context.Context, rawURL string) (*types.Record, error) {
	html, err := s.pages.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	doc, err := parser.Parse(rawURL, html)
	if err != nil {
		s.logger.Warn("document parse failed, using defaults", "url", rawURL, "error", err)
	}
	f := s.extractor.Extract(doc)

	rec := &types.Record{
		ID:          types.RecordID(rawURL),
		Title:       f.Title,
		Description: f.Description,
		Content:     f.Content,
		URL:         rawURL,
		ImageURL:    f.ImageURL,
		Provider:    s.site.Provider,
		Category:    f.Category,
		CreatedAt:   f.CreatedAt,
		RelatedURLs: f.RelatedURLs,
	}

	if processed, err := s.chain.Process(rec.Clone()); err != nil {
		s.logger.Warn("record post-processing failed, keeping raw record", "url", rawURL, "error", err)
	} else {
		rec = processed
	}
	rec.Summary = summary.Summarize(rec.Content, rec.Title)

	s.news.Set(rawURL, rec)
	s.metrics.ArticleOutcome("extracted")
	s.logger.Debug("article extracted",
		"url", rawURL,
		"id", rec.ID,
		"category", rec.Category,
		"content_len", len(rec.Content),
	)

	if s.archive != nil {
		if err := s.archive.Save(ctx, rec); err != nil {
			s.logger.Warn("archive save failed", "url", rawURL, "error", err)
		}
	}
	return rec, nil
}

// GetByID finds a record by id in the news cache, then the archive, then
// the current listing.
func (s *Service) GetByID(ctx context.Context, id string) (*types.Record, error) {
	for _, rec := range s.news.Values() {
		if rec.ID == id {
			return rec, nil
		}
	}

	if s.archive != nil {
		rec, err := s.archive.FindByID(ctx, id)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, types.ErrNotFound) {
			s.logger.Warn("archive lookup failed", "id", id, "error", err)
		}
	}

	latest, err := s.GetLatestNews(ctx)
	if err != nil {
		s.logger.Warn("listing unavailable during id lookup", "id", id, "error", err)
	}
	for _, rec := range flatten(latest) {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", types.ErrNotFound, id)
}

// ClearCache empties both the page cache and the news cache.
func (s *Service) ClearCache() {
	s.pageCache.Clear()
	s.news.Clear()
	s.logger.Info("caches cleared")
}

// CacheStats reports current entry counts.
func (s *Service) CacheStats() map[string]int {
	return map[string]int{
		s.pageCache.Name(): s.pageCache.Len(),
		s.news.Name():      s.news.Len(),
	}
}

// Close releases the fetcher and the archive connection.
func (s *Service) Close() error {
	err := s.pages.Close()
	if s.archive != nil {
		err = errors.Join(err, s.archive.Close())
	}
	return err
}
