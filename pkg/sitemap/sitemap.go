// Package sitemap reads sitemaps published by other sites (for blog import)
// and writes the site's own sitemap.xml.
package sitemap

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"

	"altiora-site/pkg/httpclient"
	"altiora-site/pkg/logging"
)

// Entry represents a single URL entry from a sitemap
type Entry struct {
	Location   string
	LastMod    string
	Priority   string
	ChangeFreq string
}

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Location   string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	Priority   string `xml:"priority,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
}

type sitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Sitemaps []sitemapRef `xml:"sitemap"`
}

type sitemapRef struct {
	Location string `xml:"loc"`
	LastMod  string `xml:"lastmod,omitempty"`
}

// maxIndexDepth stops runaway recursion through nested sitemap indexes.
const maxIndexDepth = 3

// Parser handles sitemap parsing operations
type Parser struct {
	client *httpclient.HTTPClient
}

func NewParser() *Parser {
	return &Parser{client: httpclient.NewClient(httpclient.BrowserClient)}
}

// NewParserWithClient uses the given client for fetches.
func NewParserWithClient(client *httpclient.HTTPClient) *Parser {
	return &Parser{client: client}
}

// ParseFromURL fetches and parses a sitemap or sitemap index. Child sitemaps
// of an index that fail to load are skipped.
func (p *Parser) ParseFromURL(ctx context.Context, sitemapURL string) ([]Entry, error) {
	return p.parseFromURL(ctx, sitemapURL, 0)
}

func (p *Parser) parseFromURL(ctx context.Context, sitemapURL string, depth int) ([]Entry, error) {
	resp, err := p.client.Get(ctx, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sitemap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	// Peek to tell an index from a plain urlset.
	peek := make([]byte, 512)
	n, err := io.ReadFull(resp.Body, peek)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("failed to read sitemap: %w", err)
	}
	head := string(peek[:n])
	reader := io.MultiReader(strings.NewReader(head), resp.Body)

	if !strings.Contains(head, "sitemapindex") {
		return p.parseSitemap(reader)
	}

	if depth >= maxIndexDepth {
		return nil, fmt.Errorf("sitemap index nested deeper than %d levels", maxIndexDepth)
	}

	children, err := p.parseSitemapIndex(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sitemap index: %w", err)
	}
	if len(children) == 0 {
		return nil, fmt.Errorf("sitemap index contained no sitemap URLs")
	}

	var all []Entry
	for _, child := range children {
		entries, err := p.parseFromURL(ctx, child, depth+1)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("sitemap", child).Msg("skipping child sitemap")
			continue
		}
		all = append(all, entries...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no entries found in any sitemap from index")
	}
	return all, nil
}

func (p *Parser) parseSitemapIndex(reader io.Reader) ([]string, error) {
	var index sitemapIndex
	if err := xml.NewDecoder(reader).Decode(&index); err != nil {
		return nil, fmt.Errorf("failed to decode sitemap index XML: %w", err)
	}

	urls := make([]string, 0, len(index.Sitemaps))
	for _, ref := range index.Sitemaps {
		if loc := strings.TrimSpace(ref.Location); loc != "" {
			urls = append(urls, loc)
		}
	}
	return urls, nil
}

func (p *Parser) parseSitemap(reader io.Reader) ([]Entry, error) {
	var set urlSet
	if err := xml.NewDecoder(reader).Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to decode sitemap XML: %w", err)
	}

	entries := make([]Entry, 0, len(set.URLs))
	for _, u := range set.URLs {
		loc := strings.TrimSpace(u.Location)
		if loc == "" {
			continue
		}
		entries = append(entries, Entry{
			Location:   loc,
			LastMod:    u.LastMod,
			Priority:   u.Priority,
			ChangeFreq: u.ChangeFreq,
		})
	}
	return entries, nil
}
