// Package pipeline imports blog posts: URL discovery steps feed a pool of
// content workers that extract readable text and persist each post.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"altiora-site/pkg/domain"
	"altiora-site/pkg/logging"
)

// URLGenerator generates initial URLs (used for the first step only),
// e.g. paginated listing pages.
type URLGenerator interface {
	Generate(ctx context.Context) ([]string, error)
}

// URLFetcher extracts URLs from a given URL. The first step calls it once
// with the base URL; later steps call it for every URL the previous step emitted.
type URLFetcher interface {
	Fetch(ctx context.Context, url string) ([]string, error)
}

// ContentProcessor fetches a URL and turns it into a blog post.
type ContentProcessor interface {
	ProcessContent(ctx context.Context, url string) (*domain.BlogPost, error)
}

// ContentSaver persists a blog post.
type ContentSaver interface {
	SaveBlogPost(ctx context.Context, post *domain.BlogPost) error
}

// PipelineStep represents a step in the pipeline that extracts URLs.
// The first step uses Generator when set, otherwise Fetcher with the base URL.
type PipelineStep struct {
	Name        string
	WorkerCount int
	Generator   URLGenerator
	Fetcher     URLFetcher
}

// ContentConsumer is the final step that fetches content and saves to storage
type ContentConsumer struct {
	WorkerCount      int
	ContentProcessor ContentProcessor
	ContentSaver     ContentSaver
}

// Stats counts what a run did.
type Stats struct {
	Discovered int64
	Saved      int64
	Failed     int64
}

// Pipeline orchestrates multiple steps and a final content consumer
type Pipeline struct {
	steps           []PipelineStep
	contentConsumer ContentConsumer

	discovered atomic.Int64
	saved      atomic.Int64
	failed     atomic.Int64
}

func NewPipeline(steps []PipelineStep, consumer ContentConsumer) *Pipeline {
	return &Pipeline{
		steps:           steps,
		contentConsumer: consumer,
	}
}

// Run executes the pipeline and blocks until every worker is done. Errors on
// individual URLs are logged and counted; only a failing first step aborts.
func (p *Pipeline) Run(ctx context.Context, baseURL string) (Stats, error) {
	if len(p.steps) == 0 {
		return Stats{}, fmt.Errorf("pipeline has no steps")
	}
	if p.contentConsumer.ContentProcessor == nil || p.contentConsumer.ContentSaver == nil {
		return Stats{}, fmt.Errorf("content consumer needs a processor and a saver")
	}

	channels, contentChan := p.createChannels()
	var wg sync.WaitGroup
	firstErr := make(chan error, 1)

	p.startContentConsumer(ctx, contentChan, &wg)
	for i := 1; i < len(p.steps); i++ {
		p.startStepWorkers(ctx, p.steps[i], channels[i-1], p.outputFor(i, channels, contentChan), &wg)
	}
	p.startFirstStep(ctx, p.steps[0], baseURL, p.outputFor(0, channels, contentChan), firstErr, &wg)

	wg.Wait()

	stats := Stats{
		Discovered: p.discovered.Load(),
		Saved:      p.saved.Load(),
		Failed:     p.failed.Load(),
	}
	select {
	case err := <-firstErr:
		return stats, err
	default:
	}
	return stats, ctx.Err()
}

func (p *Pipeline) createChannels() ([]chan string, chan string) {
	channels := make([]chan string, len(p.steps))
	for i := range channels {
		size := p.steps[i].WorkerCount * 2
		if i == 0 {
			size = 100
		}
		channels[i] = make(chan string, size)
	}
	return channels, make(chan string, max(1, p.contentConsumer.WorkerCount*2))
}

func (p *Pipeline) outputFor(stepIndex int, channels []chan string, contentChan chan string) chan string {
	if stepIndex == len(p.steps)-1 {
		return contentChan
	}
	return channels[stepIndex]
}

func (p *Pipeline) startFirstStep(ctx context.Context, step PipelineStep, baseURL string, out chan<- string, firstErr chan<- error, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(out)

		found, err := p.generateOrFetchURLs(ctx, step, baseURL)
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("step", step.Name).Str("url", baseURL).Msg("first step failed")
			firstErr <- fmt.Errorf("%s: %w", step.Name, err)
			return
		}
		p.send(ctx, step.Name, found, out)
	}()
}

func (p *Pipeline) generateOrFetchURLs(ctx context.Context, step PipelineStep, baseURL string) ([]string, error) {
	switch {
	case step.Generator != nil:
		return step.Generator.Generate(ctx)
	case step.Fetcher != nil:
		return step.Fetcher.Fetch(ctx, baseURL)
	default:
		return nil, fmt.Errorf("neither generator nor fetcher is set")
	}
}

func (p *Pipeline) send(ctx context.Context, stepName string, found []string, out chan<- string) {
	logging.Ctx(ctx).Debug().Str("step", stepName).Int("count", len(found)).Msg("emitting urls")
	for _, u := range found {
		select {
		case out <- u:
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pipeline) startStepWorkers(ctx context.Context, step PipelineStep, in <-chan string, out chan<- string, wg *sync.WaitGroup) {
	if step.Fetcher == nil {
		logging.Ctx(ctx).Error().Str("step", step.Name).Msg("step has no fetcher")
		go func() {
			for range in {
			}
			close(out)
		}()
		return
	}

	var stepWg sync.WaitGroup
	for i := 0; i < max(1, step.WorkerCount); i++ {
		stepWg.Add(1)
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			defer stepWg.Done()
			for {
				select {
				case u, ok := <-in:
					if !ok {
						return
					}
					found, err := step.Fetcher.Fetch(ctx, u)
					if err != nil {
						logging.Ctx(ctx).Warn().Err(err).Str("step", step.Name).Int("worker", workerID).Str("url", u).Msg("fetch failed")
						continue
					}
					p.send(ctx, step.Name, found, out)
				case <-ctx.Done():
					return
				}
			}
		}(i)
	}

	go func() {
		stepWg.Wait()
		close(out)
	}()
}

func (p *Pipeline) startContentConsumer(ctx context.Context, in <-chan string, wg *sync.WaitGroup) {
	for i := 0; i < max(1, p.contentConsumer.WorkerCount); i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case u, ok := <-in:
					if !ok {
						return
					}
					p.discovered.Add(1)
					if err := p.processContentURL(ctx, u); err != nil {
						p.failed.Add(1)
						logging.Ctx(ctx).Warn().Err(err).Int("worker", workerID).Str("url", u).Msg("import failed")
						continue
					}
					p.saved.Add(1)
				case <-ctx.Done():
					return
				}
			}
		}(i)
	}
}

func (p *Pipeline) processContentURL(ctx context.Context, u string) error {
	post, err := p.contentConsumer.ContentProcessor.ProcessContent(ctx, u)
	if err != nil {
		return fmt.Errorf("failed to process content: %w", err)
	}
	if err := p.contentConsumer.ContentSaver.SaveBlogPost(ctx, post); err != nil {
		return fmt.Errorf("failed to save post: %w", err)
	}
	logging.Ctx(ctx).Info().Str("url", u).Str("slug", post.Slug).Msg("imported post")
	return nil
}
