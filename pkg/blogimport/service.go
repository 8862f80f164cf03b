// Package blogimport pulls articles from another blog (sitemap, RSS/Atom or
// a local URL list) into the blogposts collection.
package blogimport

import (
	"context"
	"fmt"

	"altiora-site/pkg/domain"
	"altiora-site/pkg/logging"
	"altiora-site/pkg/pipeline"
	"altiora-site/pkg/urls"
)

// Store is the subset of the Mongo client the importer uses.
type Store interface {
	GetAllBlogSourceURLs(ctx context.Context) (map[string]bool, error)
	SaveBlogPost(ctx context.Context, post *domain.BlogPost) error
}

// Config holds configuration for the service
type Config struct {
	Store       Store
	WorkerCount int
	// PathFilter, when set, keeps only URLs containing it (e.g. "/blog/").
	PathFilter string
	// Discovery overrides the default file → sitemap → RSS chain.
	Discovery urls.URLsFetcher
}

// Service imports blog posts.
type Service struct {
	store     Store
	workers   int
	pathOnly  string
	discovery urls.URLsFetcher
}

func NewService(cfg Config) *Service {
	discovery := cfg.Discovery
	if discovery == nil {
		discovery = urls.FirstSuccessful{
			urls.NewFileParser(),
			urls.NewSitemapParser(),
			urls.NewRSSParser(),
		}
	}
	workers := cfg.WorkerCount
	if workers <= 0 {
		workers = 4
	}
	return &Service{
		store:     cfg.Store,
		workers:   workers,
		pathOnly:  cfg.PathFilter,
		discovery: discovery,
	}
}

// Import discovers posts at source, skips root URLs and everything already
// imported, and imports at most maxEntries (0 = all) of the rest.
func (s *Service) Import(ctx context.Context, source string, maxEntries int) (pipeline.Stats, error) {
	filters, err := s.filters(ctx)
	if err != nil {
		return pipeline.Stats{}, err
	}
	p := pipeline.FeedPipelineBuilder(s.store, s.discovery, maxEntries, s.workers, filters...)
	return s.run(ctx, p, source)
}

// ImportPages walks numbered listing pages (pagePattern contains %d, e.g.
// "/page/%d") until one is missing or maxPages is reached, and imports the
// article links found on them.
func (s *Service) ImportPages(ctx context.Context, source, pagePattern string, maxPages int) (pipeline.Stats, error) {
	filters, err := s.filters(ctx)
	if err != nil {
		return pipeline.Stats{}, err
	}
	p := pipeline.PaginationPipelineBuilder(s.store, source, pagePattern, maxPages, 2, s.workers, filters...)
	return s.run(ctx, p, source)
}

func (s *Service) filters(ctx context.Context) ([]urls.UrlFilter, error) {
	existing, err := s.store.GetAllBlogSourceURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get imported URLs: %w", err)
	}
	logging.Ctx(ctx).Info().Int("already_imported", len(existing)).Msg("loaded imported URLs")

	filters := []urls.UrlFilter{
		urls.NewBaseURLFilter(),
		urls.NewAlreadyFetchedFilter(existing),
	}
	if s.pathOnly != "" {
		filters = append(filters, urls.NewContainsPathFilter(s.pathOnly))
	}
	return filters, nil
}

func (s *Service) run(ctx context.Context, p *pipeline.Pipeline, source string) (pipeline.Stats, error) {
	log := logging.Ctx(ctx).With().Str("source", source).Logger()
	log.Info().Int("workers", s.workers).Msg("starting blog import")

	stats, err := p.Run(ctx, source)
	if err != nil {
		return stats, err
	}

	log.Info().
		Int64("discovered", stats.Discovered).
		Int64("saved", stats.Saved).
		Int64("failed", stats.Failed).
		Msg("blog import finished")
	return stats, nil
}
