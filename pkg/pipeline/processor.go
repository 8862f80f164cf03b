package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"altiora-site/pkg/content"
	"altiora-site/pkg/domain"
	"altiora-site/pkg/httpclient"
	"altiora-site/pkg/slug"
)

const excerptLength = 200

// maxPageSize bounds every HTML download.
const maxPageSize = 10 << 20

// HTTPContentProcessor fetches an article page and builds a BlogPost from
// its readable text and meta tags.
type HTTPContentProcessor struct {
	client    *httpclient.HTTPClient
	extractor content.Extractor
	now       func() time.Time
}

// NewHTTPContentProcessor uses the Cloudflare-friendly client.
func NewHTTPContentProcessor() *HTTPContentProcessor {
	return NewHTTPContentProcessorWithClient(httpclient.NewClient(httpclient.CloudflareClient))
}

func NewHTTPContentProcessorWithClient(client *httpclient.HTTPClient) *HTTPContentProcessor {
	return &HTTPContentProcessor{
		client:    client,
		extractor: content.NewDefaultExtractor(),
		now:       time.Now,
	}
}

// SetExtractor sets a custom extractor for the processor
func (p *HTTPContentProcessor) SetExtractor(extractor content.Extractor) {
	p.extractor = extractor
}

func (p *HTTPContentProcessor) ProcessContent(ctx context.Context, pageURL string) (*domain.BlogPost, error) {
	html, err := p.fetchHTML(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch HTML: %w", err)
	}

	text, err := p.extractor.ExtractText(html)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}
	if text == "" {
		return nil, fmt.Errorf("no readable text in %s", pageURL)
	}
	title, err := p.extractor.ExtractTitle(html)
	if err != nil {
		return nil, fmt.Errorf("failed to extract title: %w", err)
	}
	md, err := content.ExtractMetadata(html)
	if err != nil {
		return nil, err
	}

	now := p.now().UTC()
	post := &domain.BlogPost{
		Slug:        postSlug(pageURL, title),
		Title:       title,
		Excerpt:     md.Description,
		Content:     text,
		Author:      md.Author,
		Tags:        md.Keywords,
		CoverImage:  md.Image,
		SourceURL:   pageURL,
		PublishedAt: md.Published,
		ImportedAt:  now,
	}
	if post.Excerpt == "" {
		post.Excerpt = content.Excerpt(text, excerptLength)
	}
	if post.PublishedAt.IsZero() {
		post.PublishedAt = now
	}
	return post, nil
}

func (p *HTTPContentProcessor) fetchHTML(ctx context.Context, pageURL string) (string, error) {
	body, err := p.client.GetBody(ctx, pageURL, maxPageSize)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}

	s := string(body)
	// Some hosts answer 200 with a "Not Acceptable" page to bots.
	if strings.TrimSpace(s) == "" || strings.Contains(s, "Not Acceptable") {
		return "", fmt.Errorf("server returned an empty or error page")
	}
	return s, nil
}

// postSlug prefers the last path segment of the source URL and falls back to the title.
func postSlug(pageURL, title string) string {
	if u, err := url.Parse(pageURL); err == nil {
		last := path.Base(strings.TrimRight(u.Path, "/"))
		last = strings.TrimSuffix(last, path.Ext(last))
		if s := slug.Make(last, 96, ""); s != "" {
			return s
		}
	}
	return slug.Make(title, 96, "post")
}

// BlogPostStore is the persistence the importer needs.
type BlogPostStore interface {
	SaveBlogPost(ctx context.Context, post *domain.BlogPost) error
}

// DBContentSaver saves posts through a BlogPostStore (the Mongo client in production).
type DBContentSaver struct {
	store BlogPostStore
}

func NewDBContentSaver(store BlogPostStore) *DBContentSaver {
	return &DBContentSaver{store: store}
}

func (s *DBContentSaver) SaveBlogPost(ctx context.Context, post *domain.BlogPost) error {
	return s.store.SaveBlogPost(ctx, post)
}
