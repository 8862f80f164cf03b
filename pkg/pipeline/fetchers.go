package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"altiora-site/pkg/httpclient"
	"altiora-site/pkg/logging"
	"altiora-site/pkg/urls"
)

// BasicUrlFetcher adapts a urls.URLsFetcher (feed, sitemap, listing page)
// to a pipeline step and applies filters to what it finds.
type BasicUrlFetcher struct {
	fetcher urls.URLsFetcher
	filters []urls.UrlFilter
	limit   int
}

func NewBasicURLFetcher(fetcher urls.URLsFetcher, filters ...urls.UrlFilter) *BasicUrlFetcher {
	return &BasicUrlFetcher{fetcher: fetcher, filters: filters}
}

// WithLimit caps how many filtered URLs a single Fetch returns. 0 means no cap.
func (f *BasicUrlFetcher) WithLimit(n int) *BasicUrlFetcher {
	f.limit = n
	return f
}

func (f *BasicUrlFetcher) Fetch(ctx context.Context, baseURL string) ([]string, error) {
	found, err := f.fetcher.Fetch(ctx, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URLs: %w", err)
	}

	locations := urls.Locations(found)
	kept, err := urls.ApplyFilters(ctx, locations, f.filters...)
	if err != nil {
		return nil, err
	}
	if f.limit > 0 && len(kept) > f.limit {
		kept = kept[:f.limit]
	}

	logging.Ctx(ctx).Info().
		Str("source", baseURL).
		Int("found", len(locations)).
		Int("kept", len(kept)).
		Msg("discovered urls")
	return kept, nil
}

// PageRangeGenerator produces listing page URLs (baseURL + fmt pattern) until
// a page is missing or shows one of the empty-content markers.
type PageRangeGenerator struct {
	baseURL             string
	pagePattern         string
	maxPages            int
	httpClient          *httpclient.HTTPClient
	emptyContentMarkers []string
}

// NewPageRangeGenerator builds a generator for e.g. ("https://site.com/blog", "/page/%d").
// maxPages bounds the walk; 0 means 500.
func NewPageRangeGenerator(baseURL, pagePattern string, maxPages int) *PageRangeGenerator {
	if maxPages <= 0 {
		maxPages = 500
	}
	return &PageRangeGenerator{
		baseURL:             strings.TrimRight(baseURL, "/"),
		pagePattern:         pagePattern,
		maxPages:            maxPages,
		httpClient:          httpclient.NewClient(httpclient.CloudflareClient),
		emptyContentMarkers: []string{"no posts found", "nothing found"},
	}
}

func (g *PageRangeGenerator) Generate(ctx context.Context) ([]string, error) {
	var pages []string
	for page := 1; page <= g.maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return pages, err
		}

		pageURL := g.baseURL + fmt.Sprintf(g.pagePattern, page)
		stop, err := g.shouldStop(ctx, page, pageURL)
		if err != nil {
			logging.Ctx(ctx).Debug().Err(err).Int("page", page).Msg("stopping pagination")
			break
		}
		if stop {
			break
		}
		pages = append(pages, pageURL)
	}
	return pages, nil
}

func (g *PageRangeGenerator) shouldStop(ctx context.Context, page int, pageURL string) (bool, error) {
	resp, err := g.httpClient.Head(ctx, pageURL)
	if err != nil {
		return true, err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return true, nil
	}

	// HEAD is cheap; sample the body every tenth page for "no posts" pages
	// served with 200.
	if page%10 != 0 {
		return false, nil
	}
	hasContent, err := g.hasContent(ctx, pageURL)
	if err != nil {
		return false, nil
	}
	return !hasContent, nil
}

func (g *PageRangeGenerator) hasContent(ctx context.Context, pageURL string) (bool, error) {
	body, err := g.httpClient.GetBody(ctx, pageURL, maxPageSize)
	if err != nil {
		return false, fmt.Errorf("failed to fetch page: %w", err)
	}

	lower := strings.ToLower(string(body))
	for _, marker := range g.emptyContentMarkers {
		if strings.Contains(lower, marker) {
			return false, nil
		}
	}
	return true, nil
}
