package sitemap

import (
	"bytes"
	"encoding/xml"
	"sort"
	"strings"
	"time"
)

const xmlns = "http://www.sitemaps.org/schemas/sitemap/0.9"

// Builder accumulates site paths and renders a urlset document.
type Builder struct {
	baseURL string
	entries map[string]urlEntry
}

// NewBuilder returns a builder that prefixes every path with baseURL.
func NewBuilder(baseURL string) *Builder {
	return &Builder{
		baseURL: strings.TrimRight(baseURL, "/"),
		entries: map[string]urlEntry{},
	}
}

// Add registers path. A zero lastMod is omitted. Adding the same path twice
// keeps the later modification time.
func (b *Builder) Add(path string, lastMod time.Time, changeFreq, priority string) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	loc := b.baseURL + path
	if path == "/" {
		loc = b.baseURL + "/"
	}

	e := urlEntry{Location: loc, ChangeFreq: changeFreq, Priority: priority}
	if !lastMod.IsZero() {
		e.LastMod = lastMod.UTC().Format("2006-01-02")
	}
	if prev, ok := b.entries[loc]; ok && prev.LastMod > e.LastMod {
		e.LastMod = prev.LastMod
	}
	b.entries[loc] = e
}

// Len is the number of distinct locations.
func (b *Builder) Len() int { return len(b.entries) }

// Bytes renders the sitemap with entries sorted by location.
func (b *Builder) Bytes() ([]byte, error) {
	set := struct {
		XMLName xml.Name   `xml:"urlset"`
		Xmlns   string     `xml:"xmlns,attr"`
		URLs    []urlEntry `xml:"url"`
	}{Xmlns: xmlns}

	for _, e := range b.entries {
		set.URLs = append(set.URLs, e)
	}
	sort.Slice(set.URLs, func(i, j int) bool { return set.URLs[i].Location < set.URLs[j].Location })

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
