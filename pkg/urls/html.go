package urls

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"altiora-site/pkg/httpclient"

	"github.com/PuerkitoBio/goquery"
)

// URLExtractor pulls article links out of a listing page. pageURL resolves relative links.
type URLExtractor func(pageURL, html string) ([]URL, error)

// HTMLFetcher fetches a listing page and extracts article links from it.
type HTMLFetcher struct {
	client    *httpclient.HTTPClient
	extractor URLExtractor
}

// NewHTMLFetcher uses the Cloudflare-friendly client.
func NewHTMLFetcher(extractor URLExtractor) *HTMLFetcher {
	return NewHTMLFetcherWithClient(extractor, httpclient.NewClient(httpclient.CloudflareClient))
}

func NewHTMLFetcherWithClient(extractor URLExtractor, client *httpclient.HTTPClient) *HTMLFetcher {
	return &HTMLFetcher{client: client, extractor: extractor}
}

func (f *HTMLFetcher) Fetch(ctx context.Context, pageURL string) ([]URL, error) {
	if f.extractor == nil {
		return nil, fmt.Errorf("extractor function is not set")
	}
	html, err := f.fetchHTML(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch HTML: %w", err)
	}

	found, err := f.extractor(pageURL, html)
	if err != nil {
		return nil, fmt.Errorf("failed to extract URLs: %w", err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%s: %w", pageURL, ErrNoURLs)
	}
	return found, nil
}

func (f *HTMLFetcher) fetchHTML(ctx context.Context, pageURL string) (string, error) {
	body, err := f.client.GetBody(ctx, pageURL, 10<<20)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// articleLinkSelectors cover the common blog themes: <article> cards and
// entry-title headings.
var articleLinkSelectors = []string{
	"article h2 a[href]",
	"article h3 a[href]",
	"h2.entry-title a[href]",
	"article a[href][rel=bookmark]",
}

// ExtractArticleLinks is a generic listing-page extractor. Links are resolved
// against pageURL and kept only when they stay on the same host.
func ExtractArticleLinks(pageURL, html string) ([]URL, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page URL: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	seen := map[string]bool{}
	var out []URL
	doc.Find(strings.Join(articleLinkSelectors, ", ")).Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil || href == "" || strings.HasPrefix(href, "#") {
			return
		}
		abs := base.ResolveReference(ref)
		abs.Fragment = ""
		if abs.Host != base.Host || seen[abs.String()] {
			return
		}
		seen[abs.String()] = true

		title := strings.TrimSpace(link.Text())
		if title == "" {
			title, _ = link.Attr("title")
		}
		out = append(out, URL{Location: abs.String(), Title: title})
	})
	return out, nil
}
