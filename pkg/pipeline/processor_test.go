package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const postHTML = `<html><head>
<title>Building a RAG service on Postgres</title>
<meta name="author" content="Arjun Mehta">
<meta property="article:published_time" content="2025-02-10T08:00:00Z">
<meta property="article:tag" content="ai">
</head><body><article>
<h1>Building a RAG service on Postgres</h1>
<p>Retrieval augmented generation pairs a language model with a search index so answers can cite
internal documents. Most teams already run Postgres, and pgvector makes it a reasonable first store.</p>
<p>We chunk documents into passages of a few hundred tokens, embed each chunk, and store the vectors
beside the source text so a single query returns both the match and the citation.</p>
<p>Re-ranking the top candidates with a cross-encoder recovered most of the precision we lost by
keeping the index small, and it kept latency under our budget for interactive use.</p>
</article></body></html>`

func TestHTTPContentProcessor_ProcessContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(postHTML))
	}))
	defer server.Close()

	p := NewHTTPContentProcessor()
	fixed := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	post, err := p.ProcessContent(context.Background(), server.URL+"/blog/rag-on-postgres/")
	if err != nil {
		t.Fatalf("ProcessContent failed: %v", err)
	}

	if post.Slug != "rag-on-postgres" {
		t.Errorf("Expected slug from URL path, got %q", post.Slug)
	}
	if !strings.Contains(post.Title, "RAG service") {
		t.Errorf("Unexpected title %q", post.Title)
	}
	if !strings.Contains(post.Content, "pgvector") {
		t.Error("Expected readable text in content")
	}
	if post.Excerpt == "" || len([]rune(post.Excerpt)) > excerptLength+1 {
		t.Errorf("Unexpected excerpt %q", post.Excerpt)
	}
	if post.Author != "Arjun Mehta" || len(post.Tags) != 1 {
		t.Errorf("Unexpected metadata: author=%q tags=%v", post.Author, post.Tags)
	}
	if !post.PublishedAt.Equal(time.Date(2025, 2, 10, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected publishedAt %v", post.PublishedAt)
	}
	if !post.ImportedAt.Equal(fixed) {
		t.Errorf("Unexpected importedAt %v", post.ImportedAt)
	}
	if post.SourceURL != server.URL+"/blog/rag-on-postgres/" {
		t.Errorf("Unexpected source URL %q", post.SourceURL)
	}
}

func TestHTTPContentProcessor_ProcessContent_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	post, err := NewHTTPContentProcessor().ProcessContent(context.Background(), server.URL)
	if err == nil || !strings.Contains(err.Error(), "unexpected status code") {
		t.Fatalf("Expected status code error, got: %v", err)
	}
	if post != nil {
		t.Fatal("Expected nil post on error")
	}
}

func TestHTTPContentProcessor_ProcessContent_NotAcceptable(t *testing.T) {
	for _, body := range []string{"", "   ", "<html><body>Not Acceptable</body></html>"} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		_, err := NewHTTPContentProcessor().ProcessContent(context.Background(), server.URL)
		server.Close()
		if err == nil {
			t.Errorf("Expected error for body %q", body)
		}
	}
}

func TestPostSlug(t *testing.T) {
	cases := map[[2]string]string{
		{"https://example.com/blog/hello-world/", "Ignored"}:     "hello-world",
		{"https://example.com/2025/01/Why_Rust.html", "Ignored"}: "why-rust",
		{"https://example.com/", "Fallback Title"}:               "fallback-title",
		{"https://example.com/", ""}:                             "post",
	}
	for in, want := range cases {
		if got := postSlug(in[0], in[1]); got != want {
			t.Errorf("postSlug(%q, %q) = %q, want %q", in[0], in[1], got, want)
		}
	}
}
