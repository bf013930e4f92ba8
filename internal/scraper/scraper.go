// Package scraper fetches web pages and extracts readable text for the
// fetch_url tool.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// chromeless elements stripped before text extraction.
const strippedSelectors = "script, style, nav, header, footer, aside, form"

const truncationMarker = "\n\n[Content truncated...]"

// Page is the extracted content of one fetched URL.
type Page struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Scraper fetches and extracts page content over a shared HTTP client.
type Scraper struct {
	client    *http.Client
	userAgent string
	maxLen    int
}

// New creates a Scraper. maxContentLength bounds the extracted text in bytes;
// zero or negative means no bound.
func New(timeout time.Duration, userAgent string, maxContentLength int) *Scraper {
	return &Scraper{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		maxLen:    maxContentLength,
	}
}

// Fetch retrieves the URL and extracts its title and readable text. Content
// is taken from the main or article element when present, otherwise the
// whole body, with non-content elements stripped.
func (s *Scraper) Fetch(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("scraper: build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scraper: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scraper: fetch %s: status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("scraper: parse %s: %w", url, err)
	}

	doc.Find(strippedSelectors).Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())

	content := doc.Find("main")
	if content.Length() == 0 {
		content = doc.Find("article")
	}
	if content.Length() == 0 {
		content = doc.Find("body")
	}

	text := collapse(content.Text())
	if s.maxLen > 0 && len(text) > s.maxLen {
		cut := s.maxLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + truncationMarker
	}

	return &Page{URL: url, Title: title, Text: text}, nil
}

// collapse trims every line and squeezes runs of blank lines down to one.
func collapse(text string) string {
	var out []string
	blank := true
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
