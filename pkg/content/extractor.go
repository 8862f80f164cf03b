package content

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// Extractor defines an interface for extracting title and text from HTML content
type Extractor interface {
	ExtractTitle(htmlContent string) (string, error)
	ExtractText(htmlContent string) (string, error)
}

// DefaultExtractor uses readability with goquery fallbacks.
type DefaultExtractor struct{}

func NewDefaultExtractor() *DefaultExtractor {
	return &DefaultExtractor{}
}

func (e *DefaultExtractor) ExtractTitle(htmlContent string) (string, error) {
	return ExtractTitle(htmlContent)
}

func (e *DefaultExtractor) ExtractText(htmlContent string) (string, error) {
	return ExtractText(htmlContent)
}

// ExtractText extracts the main article text from HTML content
func ExtractText(htmlContent string) (string, error) {
	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}
	return strings.TrimSpace(article.TextContent), nil
}

// ExtractTitle extracts the article title from HTML content with fallback mechanisms
func ExtractTitle(htmlContent string) (string, error) {
	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err == nil {
		if title := strings.TrimSpace(article.Title); title != "" {
			return title, nil
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title, nil
	}
	if title := strings.TrimSpace(doc.Find("h1").First().Text()); title != "" {
		return title, nil
	}
	if title := metaContent(doc, "meta[property='og:title']", "meta[name='title']"); title != "" {
		return title, nil
	}

	return "", fmt.Errorf("title not found in HTML")
}

// Metadata is what a page declares about itself in <meta> tags.
type Metadata struct {
	Description string
	Image       string
	Author      string
	Published   time.Time
	Keywords    []string
}

// ExtractMetadata reads OpenGraph, article and plain meta tags.
func ExtractMetadata(htmlContent string) (Metadata, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	md := Metadata{
		Description: metaContent(doc, "meta[property='og:description']", "meta[name='description']"),
		Image:       metaContent(doc, "meta[property='og:image']", "meta[name='twitter:image']"),
		Author:      metaContent(doc, "meta[name='author']", "meta[property='article:author']"),
	}

	if ts := metaContent(doc, "meta[property='article:published_time']", "time[datetime]"); ts != "" {
		md.Published = parseTime(ts)
	}
	if md.Published.IsZero() {
		if dt, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
			md.Published = parseTime(dt)
		}
	}

	doc.Find("meta[property='article:tag']").Each(func(_ int, s *goquery.Selection) {
		if v := strings.TrimSpace(s.AttrOr("content", "")); v != "" {
			md.Keywords = append(md.Keywords, v)
		}
	})
	if len(md.Keywords) == 0 {
		for _, k := range strings.Split(metaContent(doc, "meta[name='keywords']"), ",") {
			if k = strings.TrimSpace(k); k != "" {
				md.Keywords = append(md.Keywords, k)
			}
		}
	}
	return md, nil
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z0700", "2006-01-02"} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// Excerpt returns the first maxRunes runes of text, cut back to a word
// boundary and suffixed with an ellipsis when shortened.
func Excerpt(text string, maxRunes int) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)[:maxRunes]
	cut := string(runes)
	if i := strings.LastIndexByte(cut, ' '); i > maxRunes/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
