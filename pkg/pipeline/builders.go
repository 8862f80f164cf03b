package pipeline

import (
	"altiora-site/pkg/urls"
)

// FeedPipelineBuilder builds BaseURL → [feed/sitemap discovery] → [content workers].
// maxPosts caps the number of posts imported; 0 means all.
func FeedPipelineBuilder(store BlogPostStore, discovery urls.URLsFetcher, maxPosts, contentWorkers int, filters ...urls.UrlFilter) *Pipeline {
	step := PipelineStep{
		Name:        "Feed Discovery",
		WorkerCount: 1,
		Fetcher:     NewBasicURLFetcher(discovery, filters...).WithLimit(maxPosts),
	}
	consumer := ContentConsumer{
		WorkerCount:      contentWorkers,
		ContentProcessor: NewHTTPContentProcessor(),
		ContentSaver:     NewDBContentSaver(store),
	}
	return NewPipeline([]PipelineStep{step}, consumer)
}

// PaginationPipelineBuilder builds [listing pages] → [article links] → [content workers]
// for blogs that publish neither a feed nor a sitemap.
func PaginationPipelineBuilder(store BlogPostStore, baseURL, pagePattern string, maxPages, htmlWorkers, contentWorkers int, filters ...urls.UrlFilter) *Pipeline {
	pages := PipelineStep{
		Name:        "Page Range Generator",
		WorkerCount: 1,
		Generator:   NewPageRangeGenerator(baseURL, pagePattern, maxPages),
	}
	links := PipelineStep{
		Name:        "Listing Page Links",
		WorkerCount: htmlWorkers,
		Fetcher:     NewBasicURLFetcher(urls.NewHTMLFetcher(urls.ExtractArticleLinks), filters...),
	}
	consumer := ContentConsumer{
		WorkerCount:      contentWorkers,
		ContentProcessor: NewHTTPContentProcessor(),
		ContentSaver:     NewDBContentSaver(store),
	}
	return NewPipeline([]PipelineStep{pages, links}, consumer)
}
