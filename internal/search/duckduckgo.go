package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const duckduckgoBaseURL = "https://html.duckduckgo.com/html/"

// DuckDuckGoProvider scrapes the HTML search endpoint. It needs no
// credentials, making it the always-available tail of the chain.
type DuckDuckGoProvider struct {
	maxResults int
	httpClient *http.Client
}

func NewDuckDuckGoProvider(maxResults, timeoutSec int) *DuckDuckGoProvider {
	if maxResults == 0 {
		maxResults = 3
	}
	timeout := time.Duration(timeoutSec) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &DuckDuckGoProvider{
		maxResults: maxResults,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (d *DuckDuckGoProvider) Name() string {
	return "duckduckgo"
}

func (d *DuckDuckGoProvider) Available() bool {
	return true
}

func (d *DuckDuckGoProvider) Search(ctx context.Context, query string) ([]Result, error) {
	searchQuery := fmt.Sprintf("mathematics %s step by step solution", query)
	searchURL := fmt.Sprintf("%s?q=%s", duckduckgoBaseURL, url.QueryEscape(searchQuery))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	results := make([]Result, 0, d.maxResults)
	doc.Find("div.result").Each(func(i int, s *goquery.Selection) {
		if len(results) >= d.maxResults {
			return
		}

		title := strings.TrimSpace(s.Find("a.result__a").Text())
		link, _ := s.Find("a.result__a").Attr("href")
		snippet := strings.TrimSpace(s.Find("a.result__snippet").Text())

		if title == "" {
			return
		}
		if snippet == "" {
			snippet = "No content available"
		}

		results = append(results, Result{
			Title:   title,
			URL:     link,
			Content: snippet,
		})
	})

	if len(results) == 0 {
		return nil, fmt.Errorf("no duckduckgo results found")
	}

	return results, nil
}
