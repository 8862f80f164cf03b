package assets

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"altiora-site/pkg/httpclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func TestParseURLAndKey(t *testing.T) {
	tests := []struct {
		url  string
		key  string
		tr   bool
		kind string
	}{
		{"https://res.cloudinary.com/altiora/image/upload/v1712345678/web3/smart-contracts-hero.webp", "migrated/web3/smart-contracts-hero.webp", false, "image"},
		{"https://res.cloudinary.com/altiora/image/upload/c_fill,w_1200,h_630/v1712345690/web3/defi-hero.png", "migrated/web3/defi-hero.png", true, "image"},
		{"https://res.cloudinary.com/altiora/image/upload/q_auto/f_auto/logo.PNG", "migrated/logo.png", true, "image"},
		{"https://res.cloudinary.com/altiora/video/upload/v1/intro.mp4", "migrated/intro.mp4", false, "video"},
		{"https://res.cloudinary.com/altiora/raw/upload/docs/ai_ml/brochure.pdf", "migrated/docs/ai_ml/brochure.pdf", false, "raw"},
		{"https://res.cloudinary.com/altiora/image/upload/ai_ml/hero.jpg", "migrated/ai_ml/hero.jpg", false, "image"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			a, err := ParseURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.key, a.Key("migrated", ".bin"))
			assert.Equal(t, tt.tr, a.Transformed)
			assert.Equal(t, tt.kind, a.ResourceType)
		})
	}

	a, err := ParseURL("https://res.cloudinary.com/altiora/image/upload/v2/folder/no-extension")
	require.NoError(t, err)
	assert.Equal(t, "assets/folder/no-extension.png", a.Key("/assets/", ".png"))

	_, err = ParseURL("https://example.com/altiora/image/upload/x.png")
	assert.Error(t, err)
	_, err = ParseURL("https://res.cloudinary.com/altiora/image/fetch/x.png")
	assert.Error(t, err)
}

func TestFindURLs(t *testing.T) {
	s := NewScanner("altiora")
	text := `
		<img src="https://res.cloudinary.com/altiora/image/upload/v1/a.png">
		background: url(https://res.cloudinary.com/altiora/image/upload/c_fill,w_10/b.jpg);
		See https://res.cloudinary.com/altiora/image/upload/v1/a.png.
		Other cloud: https://res.cloudinary.com/someoneelse/image/upload/c.png
		{"img": "https://res.cloudinary.com/altiora/video/upload/d.mp4"}
	`
	assert.Equal(t, []string{
		"https://res.cloudinary.com/altiora/image/upload/v1/a.png",
		"https://res.cloudinary.com/altiora/image/upload/c_fill,w_10/b.jpg",
		"https://res.cloudinary.com/altiora/video/upload/d.mp4",
	}, s.FindURLs(text))
}

func writeFile(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	require.NoError(t, os.Chmod(path, mode))
}

func TestScanSkipsDirsAndExtensions(t *testing.T) {
	dir := t.TempDir()
	u := "https://res.cloudinary.com/altiora/image/upload/a.png"
	writeFile(t, filepath.Join(dir, "app", "page.tsx"), u, 0o644)
	writeFile(t, filepath.Join(dir, "node_modules", "lib", "index.js"), u, 0o644)
	writeFile(t, filepath.Join(dir, ".git", "config.json"), u, 0o644)
	writeFile(t, filepath.Join(dir, "image.png"), u, 0o644)

	res, err := NewScanner("altiora").Scan(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesScanned)
	assert.Equal(t, []string{u}, res.URLs())
	assert.Contains(t, res.Files, filepath.Join(dir, "app", "page.tsx"))
}

type fakeDownloader struct {
	bodies map[string][]byte
	mu     sync.Mutex
	calls  []string
}

func (f *fakeDownloader) GetBody(_ context.Context, url string, _ int64) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	body, ok := f.bodies[url]
	if !ok {
		return nil, &httpclient.StatusError{URL: url, Code: 404}
	}
	return body, nil
}

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string]string
}

func (f *fakeUploader) PutObject(_ context.Context, key, contentType string, body io.Reader, _ int64) error {
	if _, err := io.ReadAll(body); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string]string{}
	}
	f.objects[key] = contentType
	return nil
}

func (f *fakeUploader) PublicURL(key string) string { return "https://cdn.altiorainfotech.com/" + key }

const (
	heroURL     = "https://res.cloudinary.com/altiora/image/upload/v1712345678/web3/hero.png"
	heroCropURL = "https://res.cloudinary.com/altiora/image/upload/c_fill,w_600/v1712345678/web3/hero.png"
	logoURL     = "https://res.cloudinary.com/altiora/image/upload/v1/brand/logo"
	missingURL  = "https://res.cloudinary.com/altiora/image/upload/v1/gone.jpg"
)

func migrationTree(t *testing.T) (string, string, string) {
	t.Helper()
	dir := t.TempDir()
	page := filepath.Join(dir, "app", "page.tsx")
	data := filepath.Join(dir, "data", "home.json")
	writeFile(t, page, `<Image src="`+heroURL+`" /> <Image src="`+heroCropURL+`" /> <Image src="`+missingURL+`" />`, 0o640)
	writeFile(t, data, `{"logo":"`+logoURL+`","hero":"`+heroURL+`"}`, 0o600)
	return dir, page, data
}

func TestMigratorRun(t *testing.T) {
	dir, page, data := migrationTree(t)
	down := &fakeDownloader{bodies: map[string][]byte{heroURL: pngBytes, heroCropURL: pngBytes, logoURL: pngBytes}}
	up := &fakeUploader{}

	rep, err := NewMigrator(NewScanner("altiora"), down, up, Options{Prefix: "migrated", Workers: 2}).Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 4, rep.URLsFound)
	assert.Equal(t, map[string]string{
		"migrated/web3/hero.png":  "image/png",
		"migrated/brand/logo.png": "image/png",
	}, up.objects)
	assert.NotContains(t, down.calls, heroCropURL, "the untransformed original is downloaded")
	assert.Equal(t, "https://cdn.altiorainfotech.com/migrated/web3/hero.png", rep.Migrated[heroCropURL])
	assert.Contains(t, rep.Failed, missingURL)
	assert.ElementsMatch(t, []string{page, data}, rep.FilesRewritten)

	pageBody, err := os.ReadFile(page)
	require.NoError(t, err)
	assert.NotContains(t, string(pageBody), heroURL)
	assert.NotContains(t, string(pageBody), heroCropURL)
	assert.Contains(t, string(pageBody), missingURL, "failed URLs stay untouched")
	assert.Equal(t, 2, strings.Count(string(pageBody), "https://cdn.altiorainfotech.com/migrated/web3/hero.png"))

	dataBody, err := os.ReadFile(data)
	require.NoError(t, err)
	assert.Equal(t, `{"logo":"https://cdn.altiorainfotech.com/migrated/brand/logo.png","hero":"https://cdn.altiorainfotech.com/migrated/web3/hero.png"}`, string(dataBody))

	info, err := os.Stat(page)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestMigratorDryRunWritesNothing(t *testing.T) {
	dir, page, _ := migrationTree(t)
	before, err := os.ReadFile(page)
	require.NoError(t, err)

	down := &fakeDownloader{}
	up := &fakeUploader{}
	rep, err := NewMigrator(NewScanner("altiora"), down, up, Options{DryRun: true}).Run(context.Background(), dir)
	require.NoError(t, err)

	assert.True(t, rep.DryRun)
	assert.Empty(t, down.calls)
	assert.Empty(t, up.objects)
	assert.Empty(t, rep.FilesRewritten)
	assert.Equal(t, "https://cdn.altiorainfotech.com/migrated/web3/hero.png", rep.Planned[heroCropURL])

	after, err := os.ReadFile(page)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestMigratorRequiresBackendsOutsideDryRun(t *testing.T) {
	dir, _, _ := migrationTree(t)
	_, err := NewMigrator(NewScanner("altiora"), nil, nil, Options{}).Run(context.Background(), dir)
	assert.Error(t, err)
}
