// Package assets moves Cloudinary-hosted media to R2 and rewrites every
// reference to it in the source tree.
package assets

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// DefaultExtensions are the text files scanned for asset URLs.
var DefaultExtensions = []string{
	".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs",
	".json", ".md", ".mdx", ".html", ".htm", ".css", ".scss",
	".yaml", ".yml", ".go", ".txt",
}

// DefaultSkipDirs are never descended into.
var DefaultSkipDirs = []string{"node_modules", ".git", ".next", "vendor", "_examples", "dist", "build"}

// maxScanFileSize keeps generated bundles out of the scan.
const maxScanFileSize = 5 << 20

// Scanner finds Cloudinary URLs for one cloud in text files.
type Scanner struct {
	cloudName  string
	pattern    *regexp.Regexp
	extensions map[string]bool
	skipDirs   map[string]bool
}

// NewScanner creates a scanner for cloudName with the default file filters.
func NewScanner(cloudName string) *Scanner {
	s := &Scanner{
		cloudName:  cloudName,
		pattern:    urlPattern(cloudName),
		extensions: map[string]bool{},
		skipDirs:   map[string]bool{},
	}
	for _, e := range DefaultExtensions {
		s.extensions[e] = true
	}
	for _, d := range DefaultSkipDirs {
		s.skipDirs[d] = true
	}
	return s
}

func urlPattern(cloudName string) *regexp.Regexp {
	return regexp.MustCompile(`https?://res\.cloudinary\.com/` + regexp.QuoteMeta(cloudName) +
		"/(?:image|video|raw)/upload/[^\\s\"'<>()\\[\\]{}`\\\\]+")
}

// FindURLs returns the distinct asset URLs in text, in order of appearance.
func (s *Scanner) FindURLs(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range s.pattern.FindAllString(text, -1) {
		m = strings.TrimRight(m, ".,;:!?")
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// ScanResult maps files to the asset URLs they reference.
type ScanResult struct {
	// Files holds only files with at least one match.
	Files        map[string][]string
	FilesScanned int
}

// URLs returns every distinct URL found, sorted.
func (r *ScanResult) URLs() []string {
	seen := map[string]bool{}
	var out []string
	for _, urls := range r.Files {
		for _, u := range urls {
			if !seen[u] {
				seen[u] = true
				out = append(out, u)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Scan walks roots and collects asset URLs from matching text files.
func (s *Scanner) Scan(roots ...string) (*ScanResult, error) {
	res := &ScanResult{Files: map[string][]string{}}
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && s.skipDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || !s.extensions[strings.ToLower(filepath.Ext(path))] {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			if info.Size() > maxScanFileSize {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			res.FilesScanned++
			if urls := s.FindURLs(string(data)); len(urls) > 0 {
				res.Files[path] = urls
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", root, err)
		}
	}
	return res, nil
}
