package urls

import (
	"context"
	"fmt"
	"strings"

	"altiora-site/pkg/httpclient"

	"github.com/mmcdole/gofeed"
)

// RSSParser discovers articles from RSS and Atom feeds.
type RSSParser struct {
	feedParser *gofeed.Parser
}

func NewRSSParser() *RSSParser {
	fp := gofeed.NewParser()
	fp.Client = httpclient.NewClient(httpclient.BrowserClient).Client()
	return &RSSParser{feedParser: fp}
}

func (p *RSSParser) Fetch(ctx context.Context, feedURL string) ([]URL, error) {
	feed, err := p.feedParser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed: %w", err)
	}
	if feed == nil || len(feed.Items) == 0 {
		return nil, fmt.Errorf("feed contains no items")
	}

	out := make([]URL, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		u := URL{
			Location: item.Link,
			Title:    strings.TrimSpace(item.Title),
			Summary:  strings.TrimSpace(item.Description),
		}
		if item.Author != nil {
			u.Author = item.Author.Name
		}
		switch {
		case item.PublishedParsed != nil:
			u.Published = item.PublishedParsed.UTC()
		case item.UpdatedParsed != nil:
			u.Published = item.UpdatedParsed.UTC()
		}
		out = append(out, u)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no valid URLs found in feed items")
	}
	return out, nil
}
