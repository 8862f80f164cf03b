package urls

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// UrlFilter decides whether a discovered URL should be imported.
type UrlFilter interface {
	ShouldKeep(ctx context.Context, url string) (bool, error)
}

// BaseURLFilter filters out base/root URLs
type BaseURLFilter struct{}

func NewBaseURLFilter() *BaseURLFilter {
	return &BaseURLFilter{}
}

// ShouldKeep returns false if the URL has no path beyond "/".
func (f *BaseURLFilter) ShouldKeep(_ context.Context, urlStr string) (bool, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		// Unparseable URLs fail later, at fetch time.
		return true, nil
	}
	return strings.Trim(parsed.Path, "/") != "", nil
}

// AlreadyFetchedFilter filters out URLs that already exist in the provided set
type AlreadyFetchedFilter struct {
	fetchedURLs map[string]bool
}

func NewAlreadyFetchedFilter(fetchedURLs map[string]bool) *AlreadyFetchedFilter {
	return &AlreadyFetchedFilter{fetchedURLs: fetchedURLs}
}

func (f *AlreadyFetchedFilter) ShouldKeep(_ context.Context, urlStr string) (bool, error) {
	return !f.fetchedURLs[urlStr], nil
}

// ContainsPathFilter keeps only URLs containing a path segment, e.g. "/blog/".
type ContainsPathFilter struct {
	pathSegment string
}

func NewContainsPathFilter(pathSegment string) *ContainsPathFilter {
	return &ContainsPathFilter{pathSegment: pathSegment}
}

func (f *ContainsPathFilter) ShouldKeep(_ context.Context, urlStr string) (bool, error) {
	return strings.Contains(urlStr, f.pathSegment), nil
}

// ApplyFilters keeps the URLs every filter accepts, preserving order.
func ApplyFilters(ctx context.Context, in []string, filters ...UrlFilter) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, u := range in {
		keep := true
		for _, f := range filters {
			ok, err := f.ShouldKeep(ctx, u)
			if err != nil {
				return nil, fmt.Errorf("filter error for URL %s: %w", u, err)
			}
			if !ok {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, u)
		}
	}
	return out, nil
}
