package urls

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
	<channel>
		<title>Altiora Blog</title>
		<link>https://example.com</link>
		<item>
			<title>Shipping a DeFi audit checklist</title>
			<link>https://example.com/blog/defi-audit-checklist</link>
			<description>What we check before mainnet.</description>
			<pubDate>Thu, 11 Dec 2025 00:00:00 GMT</pubDate>
		</item>
		<item>
			<title>RAG in production</title>
			<link>https://example.com/blog/rag-in-production</link>
		</item>
		<item>
			<title>No link</title>
		</item>
	</channel>
</rss>`

func TestRSSParser_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssXML))
	}))
	defer server.Close()

	found, err := NewRSSParser().Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.Len(t, found, 2)

	assert.Equal(t, "https://example.com/blog/defi-audit-checklist", found[0].Location)
	assert.Equal(t, "Shipping a DeFi audit checklist", found[0].Title)
	assert.Equal(t, "What we check before mainnet.", found[0].Summary)
	assert.Equal(t, time.Date(2025, 12, 11, 0, 0, 0, 0, time.UTC), found[0].Published)
	assert.True(t, found[1].Published.IsZero())
}

func TestRSSParser_AtomFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(`<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
	<title>Atom</title>
	<entry><title>One</title><link href="https://example.com/one"/></entry>
	<entry><title>Two</title><link href="https://example.com/two"/></entry>
</feed>`))
	}))
	defer server.Close()

	found, err := NewRSSParser().Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/one", "https://example.com/two"}, Locations(found))
}

func TestRSSParser_EmptyFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<rss version="2.0"><channel><title>Empty</title></channel></rss>`))
	}))
	defer server.Close()

	_, err := NewRSSParser().Fetch(context.Background(), server.URL)
	assert.Error(t, err)
}

func TestSitemapParser_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<url><loc>https://example.com/blog/a</loc><lastmod>2024-01-15</lastmod></url>
	<url><loc>https://example.com/blog/b</loc><lastmod>2024-02-01T10:00:00+00:00</lastmod></url>
</urlset>`))
	}))
	defer server.Close()

	found, err := NewSitemapParser().Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), found[0].Published)
	assert.Equal(t, time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC), found[1].Published)
}

func TestFileParser_Fetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte("# seeds\nhttps://example.com/a\n\nhttps://example.com/b\n"), 0o600))

	found, err := NewFileParser().Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, Locations(found))

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, err = NewFileParser().Fetch(context.Background(), empty)
	assert.ErrorIs(t, err, ErrNoURLs)

	_, err = NewFileParser().Fetch(context.Background(), "https://example.com/feed")
	assert.Error(t, err)
}

func TestExtractArticleLinks(t *testing.T) {
	html := `<html><body>
<article><h2><a href="/blog/first-post">First post</a></h2></article>
<article><h2><a href="https://example.com/blog/second#comments">Second</a></h2></article>
<article><h2><a href="https://other.com/blog/offsite">Offsite</a></h2></article>
<h2 class="entry-title"><a href="/blog/first-post">Duplicate</a></h2>
</body></html>`

	found, err := ExtractArticleLinks("https://example.com/blog/page/2", html)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, URL{Location: "https://example.com/blog/first-post", Title: "First post"}, found[0])
	assert.Equal(t, "https://example.com/blog/second", found[1].Location)
}

func TestHTMLFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty" {
			w.Write([]byte("<html></html>"))
			return
		}
		w.Write([]byte(`<article><h2><a href="/blog/x">X</a></h2></article>`))
	}))
	defer server.Close()

	f := NewHTMLFetcher(ExtractArticleLinks)
	found, err := f.Fetch(context.Background(), server.URL+"/blog")
	require.NoError(t, err)
	assert.Equal(t, []string{server.URL + "/blog/x"}, Locations(found))

	_, err = f.Fetch(context.Background(), server.URL+"/empty")
	assert.ErrorIs(t, err, ErrNoURLs)
}

type stubFetcher struct {
	found []URL
	err   error
	calls int
}

func (s *stubFetcher) Fetch(context.Context, string) ([]URL, error) {
	s.calls++
	return s.found, s.err
}

func TestFirstSuccessful(t *testing.T) {
	failing := &stubFetcher{err: errors.New("not a sitemap")}
	empty := &stubFetcher{}
	good := &stubFetcher{found: []URL{{Location: "https://example.com/a"}}}
	unused := &stubFetcher{found: []URL{{Location: "https://example.com/b"}}}

	found, err := FirstSuccessful{failing, empty, good, unused}.Fetch(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", found[0].Location)
	assert.Zero(t, unused.calls)

	_, err = FirstSuccessful{failing}.Fetch(context.Background(), "x")
	assert.ErrorContains(t, err, "not a sitemap")

	_, err = FirstSuccessful{empty}.Fetch(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoURLs)
}

func TestFilters(t *testing.T) {
	ctx := context.Background()
	in := []string{
		"https://example.com/",
		"https://example.com",
		"https://example.com/blog/new",
		"https://example.com/blog/imported",
		"https://example.com/careers/engineer",
	}

	out, err := ApplyFilters(ctx, in,
		NewBaseURLFilter(),
		NewAlreadyFetchedFilter(map[string]bool{"https://example.com/blog/imported": true}),
		NewContainsPathFilter("/blog/"),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/blog/new"}, out)
}

func TestLocationsDedupes(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Locations([]URL{{Location: "a"}, {}, {Location: "b"}, {Location: "a"}}))
}
