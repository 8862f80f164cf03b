package urls

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// URL is a candidate article discovered in a feed, sitemap or listing page.
type URL struct {
	Location  string
	Title     string
	Summary   string
	Author    string
	Published time.Time
}

// URLsFetcher discovers article URLs from a source (feed URL, sitemap URL, file path).
type URLsFetcher interface {
	Fetch(ctx context.Context, source string) ([]URL, error)
}

// ErrNoURLs is returned when a source parsed fine but listed nothing.
var ErrNoURLs = errors.New("no URLs found")

// FirstSuccessful tries each fetcher in order and returns the first non-empty result.
type FirstSuccessful []URLsFetcher

func (f FirstSuccessful) Fetch(ctx context.Context, source string) ([]URL, error) {
	var errs []error
	for _, fetcher := range f {
		found, err := fetcher.Fetch(ctx, source)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(found) > 0 {
			return found, nil
		}
	}
	if len(errs) == 0 {
		return nil, ErrNoURLs
	}
	return nil, fmt.Errorf("all fetchers failed: %w", errors.Join(errs...))
}

// Locations flattens URLs into their locations, dropping empties and duplicates.
func Locations(found []URL) []string {
	seen := make(map[string]bool, len(found))
	out := make([]string, 0, len(found))
	for _, u := range found {
		if u.Location == "" || seen[u.Location] {
			continue
		}
		seen[u.Location] = true
		out = append(out, u.Location)
	}
	return out
}
