package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"altiora-site/pkg/urls"
)

type mockURLsFetcher struct {
	urls []urls.URL
	err  error
}

func (m *mockURLsFetcher) Fetch(ctx context.Context, source string) ([]urls.URL, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.urls, nil
}

type mockUrlFilter struct {
	shouldKeep bool
	err        error
}

func (m *mockUrlFilter) ShouldKeep(ctx context.Context, url string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.shouldKeep, nil
}

func TestBasicUrlFetcher_Fetch(t *testing.T) {
	source := &mockURLsFetcher{urls: []urls.URL{
		{Location: "https://example.com/"},
		{Location: "https://example.com/blog/a"},
		{Location: "https://example.com/blog/b"},
		{Location: "https://example.com/blog/c"},
		{Location: ""},
	}}
	imported := map[string]bool{"https://example.com/blog/b": true}

	f := NewBasicURLFetcher(source, urls.NewBaseURLFilter(), urls.NewAlreadyFetchedFilter(imported)).WithLimit(1)
	got, err := f.Fetch(context.Background(), "https://example.com/feed")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"https://example.com/blog/a"}) {
		t.Errorf("Unexpected URLs: %v", got)
	}

	got, _ = NewBasicURLFetcher(source, urls.NewAlreadyFetchedFilter(imported)).Fetch(context.Background(), "x")
	if len(got) != 3 {
		t.Errorf("Expected 3 URLs without a limit, got %v", got)
	}
}

func TestBasicUrlFetcher_Fetch_Errors(t *testing.T) {
	expected := errors.New("sitemap unreachable")
	_, err := NewBasicURLFetcher(&mockURLsFetcher{err: expected}).Fetch(context.Background(), "x")
	if !errors.Is(err, expected) {
		t.Errorf("Expected wrapped fetch error, got: %v", err)
	}

	source := &mockURLsFetcher{urls: []urls.URL{{Location: "https://example.com/blog/a"}}}
	_, err = NewBasicURLFetcher(source, &mockUrlFilter{err: errors.New("boom")}).Fetch(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("Expected filter error, got: %v", err)
	}
}

func TestPageRangeGenerator_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/blog/page/1", "/blog/page/2", "/blog/page/3":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	got, err := NewPageRangeGenerator(server.URL+"/blog/", "/page/%d", 0).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	want := []string{server.URL + "/blog/page/1", server.URL + "/blog/page/2", server.URL + "/blog/page/3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestPageRangeGenerator_StopsOnEmptyMarker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/page/10" {
			w.Write([]byte("<p>No posts found.</p>"))
			return
		}
		w.Write([]byte("<article>post</article>"))
	}))
	defer server.Close()

	got, err := NewPageRangeGenerator(server.URL, "/page/%d", 0).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(got) != 9 {
		t.Errorf("Expected 9 pages before the empty marker, got %d", len(got))
	}
}

func TestPageRangeGenerator_MaxPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	got, _ := NewPageRangeGenerator(server.URL, "/page/%d", 4).Generate(context.Background())
	if len(got) != 4 {
		t.Errorf("Expected 4 pages, got %d", len(got))
	}
}

func TestPageRangeGenerator_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := NewPageRangeGenerator(server.URL, "/page/%d", 0).Generate(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no pages, got %d", len(got))
	}
}
