package news

import (
	"context"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/newsgoat/internal/category"
	"github.com/IshaanNene/newsgoat/internal/parser"
	"github.com/IshaanNene/newsgoat/internal/types"
)

// Listing maps every category to its resolved records.
type Listing map[category.Category][]*types.Record

func emptyListing() Listing {
	l := make(Listing, len(category.All()))
	for _, c := range category.All() {
		l[c] = []*types.Record{}
	}
	return l
}

// GetLatestNews reads the site's index page and resolves up to the
// per-category cap of its article links. The result always holds every
// category key. Candidates that cannot be resolved are kept as
// lightweight records built from the listing itself. An index page fetch
// failure yields the empty listing together with the error.
func (s *Service) GetLatestNews(ctx context.Context) (Listing, error) {
	listing := emptyListing()

	html, err := s.pages.Get(ctx, s.site.BaseURL)
	if err != nil {
		s.logger.Error("index page unavailable", "url", s.site.BaseURL, "error", err)
		return listing, err
	}

	doc, err := parser.Parse(s.site.BaseURL, html)
	if err != nil {
		s.logger.Warn("index page parse failed", "error", err)
	}

	grouped := make(map[category.Category][]types.ListingLink)
	for _, link := range s.extractor.ListingLinks(doc) {
		c := category.Classify(link.URL)
		grouped[c] = append(grouped[c], link)
	}

	for _, c := range category.All() {
		candidates := grouped[c]
		if len(candidates) > s.perCategory {
			candidates = candidates[:s.perCategory]
		}
		listing[c] = s.resolve(ctx, c, candidates)
	}

	s.logger.Info("latest news resolved", "links", countLinks(grouped), "records", len(flatten(listing)))
	return listing, nil
}

// resolve runs each candidate through the article pipeline, keeping
// discovery order. With concurrency above one, candidates of a category
// are fetched in parallel up to that bound.
func (s *Service) resolve(ctx context.Context, c category.Category, links []types.ListingLink) []*types.Record {
	out := make([]*types.Record, len(links))

	one := func(i int) {
		rec, err := s.FetchArticle(ctx, links[i].URL)
		if err != nil {
			s.logger.Warn("listing candidate fell back to listing data", "url", links[i].URL, "error", err)
			s.metrics.ListingFallback(string(c))
			rec = s.lightweight(c, links[i])
		}
		out[i] = rec
	}

	if s.concurrency <= 1 {
		for i := range links {
			one(i)
		}
		return out
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range links {
		g.Go(func() error {
			one(i)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// lightweight builds a record from listing data alone.
func (s *Service) lightweight(c category.Category, link types.ListingLink) *types.Record {
	return &types.Record{
		ID:        types.RecordID(link.URL),
		Title:     link.Title,
		URL:       link.URL,
		ImageURL:  link.ImageURL,
		Provider:  s.site.Provider,
		Category:  c,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}
}

// GetNewsByCategory returns up to limit records of the named category.
// An unknown name returns the newest records across all categories.
// A limit of zero or less means no limit.
func (s *Service) GetNewsByCategory(ctx context.Context, name string, limit int) ([]*types.Record, error) {
	latest, err := s.GetLatestNews(ctx)
	if err != nil {
		return []*types.Record{}, err
	}

	if c, ok := category.Parse(name); ok {
		return head(latest[c], limit), nil
	}

	merged := flatten(latest)
	slices.SortStableFunc(merged, newestFirst)
	return head(merged, limit), nil
}

// SearchNews returns records whose title, description or content contains
// term, case-insensitively. Title matches rank first, then newer records.
func (s *Service) SearchNews(ctx context.Context, term string, limit int) ([]*types.Record, error) {
	latest, err := s.GetLatestNews(ctx)
	if err != nil {
		return []*types.Record{}, err
	}

	needle := strings.ToLower(term)
	type hit struct {
		rec     *types.Record
		inTitle bool
	}
	var hits []hit
	for _, rec := range flatten(latest) {
		inTitle := strings.Contains(strings.ToLower(rec.Title), needle)
		if inTitle ||
			strings.Contains(strings.ToLower(rec.Description), needle) ||
			strings.Contains(strings.ToLower(rec.Content), needle) {
			hits = append(hits, hit{rec: rec, inTitle: inTitle})
		}
	}

	slices.SortStableFunc(hits, func(a, b hit) int {
		if a.inTitle != b.inTitle {
			if a.inTitle {
				return -1
			}
			return 1
		}
		return newestFirst(a.rec, b.rec)
	})

	out := make([]*types.Record, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.rec)
	}
	return head(out, limit), nil
}

// flatten concatenates the listing in category priority order.
func flatten(l Listing) []*types.Record {
	var out []*types.Record
	for _, c := range category.All() {
		out = append(out, l[c]...)
	}
	return out
}

func newestFirst(a, b *types.Record) int {
	return b.Published().Compare(a.Published())
}

func head(recs []*types.Record, limit int) []*types.Record {
	if limit > 0 && len(recs) > limit {
		return recs[:limit]
	}
	return recs
}

func countLinks(grouped map[category.Category][]types.ListingLink) int {
	n := 0
	for _, links := range grouped {
		n += len(links)
	}
	return n
}
