package sitemap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSitemap(t *testing.T) {
	xmlData := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<url>
		<loc>https://example.com/blog/post1</loc>
		<lastmod>2024-01-15</lastmod>
		<priority>0.8</priority>
		<changefreq>monthly</changefreq>
	</url>
	<url>
		<loc> https://example.com/blog/post2 </loc>
	</url>
	<url><loc></loc></url>
</urlset>`

	entries, err := NewParser().parseSitemap(strings.NewReader(xmlData))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, Entry{
		Location:   "https://example.com/blog/post1",
		LastMod:    "2024-01-15",
		Priority:   "0.8",
		ChangeFreq: "monthly",
	}, entries[0])
	assert.Equal(t, "https://example.com/blog/post2", entries[1].Location)
}

func TestParseSitemapInvalidXML(t *testing.T) {
	_, err := NewParser().parseSitemap(strings.NewReader(`<?xml version="1.0"?><invalid>`))
	assert.Error(t, err)
}

func TestParseFromURL_SitemapIndex(t *testing.T) {
	var serverURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		switch r.URL.Path {
		case "/sitemap-index.xml":
			w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<sitemap><loc>` + serverURL + `/posts.xml</loc></sitemap>
	<sitemap><loc>` + serverURL + `/missing.xml</loc></sitemap>
</sitemapindex>`))
		case "/posts.xml":
			w.Write([]byte(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<url><loc>https://example.com/a</loc></url>
	<url><loc>https://example.com/b</loc></url>
</urlset>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()
	serverURL = server.URL

	entries, err := NewParser().ParseFromURL(context.Background(), server.URL+"/sitemap-index.xml")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "https://example.com/a", entries[0].Location)
}

func TestParseFromURL_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := NewParser().ParseFromURL(context.Background(), server.URL)
	assert.ErrorContains(t, err, "unexpected status code: 404")
}

func TestBuilder(t *testing.T) {
	b := NewBuilder("https://altiorainfotech.com/")
	day := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	b.Add("/", time.Time{}, "weekly", "1.0")
	b.Add("services/web3/defi-development", day, "monthly", "0.8")
	b.Add("/services/web3/defi-development", day.AddDate(0, 0, -3), "monthly", "0.8")

	assert.Equal(t, 2, b.Len())

	out, err := b.Bytes()
	require.NoError(t, err)
	s := string(out)

	assert.True(t, strings.HasPrefix(s, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, s, `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	assert.Contains(t, s, "<loc>https://altiorainfotech.com/</loc>")
	assert.Contains(t, s, "<loc>https://altiorainfotech.com/services/web3/defi-development</loc>")
	assert.Contains(t, s, "<lastmod>2025-03-01</lastmod>", "later lastmod wins")
	assert.Less(t, strings.Index(s, "altiorainfotech.com/</loc>"), strings.Index(s, "defi-development"))
}
