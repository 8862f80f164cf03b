package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"altiora-site/pkg/logging"
	"altiora-site/pkg/metrics"
	"altiora-site/pkg/worker"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxAssetSize bounds a single download.
const DefaultMaxAssetSize int64 = 100 << 20

// Downloader fetches an asset body of at most limit bytes.
type Downloader interface {
	GetBody(ctx context.Context, url string, limit int64) ([]byte, error)
}

// Uploader stores an asset and tells where it is served from.
type Uploader interface {
	PutObject(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	PublicURL(key string) string
}

// Options configures a migration run.
type Options struct {
	Prefix       string
	Workers      int
	DryRun       bool
	MaxAssetSize int64
}

// Report summarizes a run. Migrated and Planned map old URL to new URL;
// Failed maps old URL to the reason it was left in place.
type Report struct {
	FilesScanned   int
	FilesReferring int
	FilesRewritten []string
	URLsFound      int
	Migrated       map[string]string
	Planned        map[string]string
	Failed         map[string]string
	DryRun         bool
}

// Migrator copies Cloudinary assets to R2 and rewrites references. There is
// no retry and no rollback: a URL that fails is reported and left as is.
type Migrator struct {
	scanner    *Scanner
	downloader Downloader
	uploader   Uploader
	opts       Options
}

// NewMigrator creates a migrator. uploader and downloader may be nil for dry runs.
func NewMigrator(scanner *Scanner, downloader Downloader, uploader Uploader, opts Options) *Migrator {
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	if opts.MaxAssetSize <= 0 {
		opts.MaxAssetSize = DefaultMaxAssetSize
	}
	if opts.Prefix == "" {
		opts.Prefix = "migrated"
	}
	return &Migrator{scanner: scanner, downloader: downloader, uploader: uploader, opts: opts}
}

// assetGroup is every URL that resolves to the same object key. src is the
// URL that gets downloaded; an untransformed one is preferred so the
// original bytes are copied.
type assetGroup struct {
	urls []string
	src  Asset
}

// Run scans roots, transfers every asset and rewrites the files.
func (m *Migrator) Run(ctx context.Context, roots ...string) (*Report, error) {
	log := logging.Ctx(ctx)

	scan, err := m.scanner.Scan(roots...)
	if err != nil {
		return nil, err
	}
	urls := scan.URLs()
	rep := &Report{
		FilesScanned:   scan.FilesScanned,
		FilesReferring: len(scan.Files),
		URLsFound:      len(urls),
		Migrated:       map[string]string{},
		Planned:        map[string]string{},
		Failed:         map[string]string{},
		DryRun:         m.opts.DryRun,
	}
	log.Info().Int("files", scan.FilesScanned).Int("referring", len(scan.Files)).Int("urls", len(urls)).Msg("scan complete")

	groups := m.group(urls, rep)

	if m.opts.DryRun {
		for _, g := range groups {
			for _, u := range g.urls {
				rep.Planned[u] = m.publicURL(g.src.Key(m.opts.Prefix, ""))
			}
		}
		return rep, nil
	}
	if m.uploader == nil || m.downloader == nil {
		return nil, errors.New("uploader and downloader are required unless dry-running")
	}

	pool := worker.NewManager(m.opts.Workers).WithProgress(func(done, total int, _ error) {
		if done%25 == 0 || done == total {
			log.Info().Int("done", done).Int("total", total).Msg("transfer progress")
		}
	})
	results, sum := worker.Process(ctx, pool, groups, m.transfer)

	for _, res := range results {
		if res.Err != nil {
			metrics.AssetsMigrated.WithLabelValues("failed").Add(float64(len(res.Job.urls)))
			for _, u := range res.Job.urls {
				rep.Failed[u] = res.Err.Error()
			}
			log.Warn().Err(res.Err).Str("url", res.Job.src.URL).Msg("asset not migrated")
			continue
		}
		metrics.AssetsMigrated.WithLabelValues("migrated").Add(float64(len(res.Job.urls)))
		for _, u := range res.Job.urls {
			rep.Migrated[u] = res.Value
		}
	}
	log.Info().Int("migrated", sum.Succeeded).Int("failed", sum.Failed).Msg("transfers finished")

	rewritten, err := rewriteFiles(scan.Files, rep.Migrated)
	rep.FilesRewritten = rewritten
	if err != nil {
		return rep, err
	}
	return rep, nil
}

// group parses urls and merges those that share a key stem. Unparseable
// URLs are recorded as failures.
func (m *Migrator) group(urls []string, rep *Report) []assetGroup {
	byStem := map[string]*assetGroup{}
	var order []string
	for _, u := range urls {
		a, err := ParseURL(u)
		if err != nil {
			rep.Failed[u] = err.Error()
			continue
		}
		stem := a.ResourceType + "/" + a.PublicID
		g, ok := byStem[stem]
		if !ok {
			g = &assetGroup{src: a}
			byStem[stem] = g
			order = append(order, stem)
		} else if g.src.Transformed && !a.Transformed {
			g.src = a
		}
		g.urls = append(g.urls, u)
	}
	out := make([]assetGroup, 0, len(order))
	for _, s := range order {
		out = append(out, *byStem[s])
	}
	return out
}

func (m *Migrator) publicURL(key string) string {
	if m.uploader == nil {
		return key
	}
	return m.uploader.PublicURL(key)
}

// transfer downloads one asset and uploads it, returning the new public URL.
func (m *Migrator) transfer(ctx context.Context, g assetGroup) (string, error) {
	src := g.src

	data, err := m.downloader.GetBody(ctx, src.URL, m.opts.MaxAssetSize)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	if len(data) == 0 {
		return "", errors.New("empty asset")
	}

	mt := mimetype.Detect(data)
	key := src.Key(m.opts.Prefix, mt.Extension())
	if err := m.uploader.PutObject(ctx, key, mt.String(), bytes.NewReader(data), int64(len(data))); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return m.uploader.PublicURL(key), nil
}

// rewriteFiles replaces migrated URLs in place, keeping each file's mode.
// Files whose content does not change are not written.
func rewriteFiles(files map[string][]string, migrated map[string]string) ([]string, error) {
	if len(migrated) == 0 {
		return nil, nil
	}

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var rewritten []string
	var errs []error
	for _, p := range paths {
		var pairs []string
		for _, u := range sortedByLength(files[p]) {
			if to, ok := migrated[u]; ok {
				pairs = append(pairs, u, to)
			}
		}
		if len(pairs) == 0 {
			continue
		}
		changed, err := rewriteFile(p, strings.NewReplacer(pairs...))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if changed {
			rewritten = append(rewritten, p)
		}
	}
	return rewritten, errors.Join(errs...)
}

func rewriteFile(path string, r *strings.Replacer) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	updated := r.Replace(string(data))
	if updated == string(data) {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(updated), info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

// sortedByLength puts longer URLs first so a URL that is a prefix of
// another never wins the match.
func sortedByLength(urls []string) []string {
	out := append([]string(nil), urls...)
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}
