package urls

import (
	"context"
	"time"

	"altiora-site/pkg/sitemap"
)

// SitemapParser discovers articles from a sitemap or sitemap index.
type SitemapParser struct {
	parser *sitemap.Parser
}

func NewSitemapParser() *SitemapParser {
	return &SitemapParser{parser: sitemap.NewParser()}
}

func (p *SitemapParser) Fetch(ctx context.Context, sitemapURL string) ([]URL, error) {
	entries, err := p.parser.ParseFromURL(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}

	out := make([]URL, 0, len(entries))
	for _, e := range entries {
		u := URL{Location: e.Location}
		if e.LastMod != "" {
			u.Published = parseLastMod(e.LastMod)
		}
		out = append(out, u)
	}
	return out, nil
}

func parseLastMod(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z0700", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
