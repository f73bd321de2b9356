// Package webtext turns a web page into plain episode text.
package webtext

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxBodyBytes   = 512 * 1024
	maxContentRune = 20000
	userAgent      = "Mozilla/5.0 (compatible; graphmind/1.0)"
)

var whitespace = regexp.MustCompile(`\s+`)

// Page is the extracted plain-text form of a web page
type Page struct {
	URL     string
	Title   string
	Content string
}

// Fetcher downloads pages and strips them to plain text
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher with a bounded request timeout
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch downloads the page and returns its title and visible text.
// Script, style, and chrome elements are dropped before text extraction.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	if !strings.HasPrefix(pageURL, "http://") && !strings.HasPrefix(pageURL, "https://") {
		pageURL = "https://" + pageURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	doc.Find("script, style, noscript, nav, header, footer, iframe, form").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	content := doc.Find("body").Text()
	content = strings.TrimSpace(whitespace.ReplaceAllString(content, " "))
	if runes := []rune(content); len(runes) > maxContentRune {
		content = string(runes[:maxContentRune])
	}
	if content == "" {
		return nil, fmt.Errorf("no text content at %s", pageURL)
	}

	return &Page{
		URL:     pageURL,
		Title:   title,
		Content: content,
	}, nil
}
