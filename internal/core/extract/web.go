package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/eric-nichols-nyc/recall-api/internal/core"
)

// FirecrawlScraper fetches a page through the Firecrawl scrape API and
// returns its markdown rendering.
type FirecrawlScraper struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewFirecrawlScraper(apiKey, baseURL string) *FirecrawlScraper {
	if baseURL == "" {
		baseURL = "https://api.firecrawl.dev"
	}
	return &FirecrawlScraper{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type firecrawlRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

type firecrawlResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Markdown string `json:"markdown"`
	} `json:"data"`
	Error string `json:"error"`
}

func (s *FirecrawlScraper) ScrapeMarkdown(ctx context.Context, url string) (string, error) {
	if s.apiKey == "" {
		return "", core.Errf(core.KindExtraction, nil,
			"FireCrawl API key is not configured. Please set FIRECRAWL_API_KEY environment variable.")
	}

	body, err := json.Marshal(firecrawlRequest{URL: url, Formats: []string{"markdown"}})
	if err != nil {
		return "", core.Errf(core.KindExtraction, err, "Failed to scrape website. Please try again later.")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/scrape", bytes.NewReader(body))
	if err != nil {
		return "", core.Errf(core.KindExtraction, err, "Failed to scrape website. Please try again later.")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return "", core.Errf(core.KindExtraction, err,
				"Request timed out. The website may be slow or unreachable.")
		}
		return "", core.Errf(core.KindExtraction, err, "Failed to scrape website. Please try again later.")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", core.Errf(core.KindExtraction, nil, "FireCrawl API key is invalid or missing.")
	case resp.StatusCode == http.StatusNotFound:
		return "", core.Errf(core.KindExtraction, nil, "Website not found. Please check the URL.")
	case resp.StatusCode == http.StatusRequestTimeout:
		return "", core.Errf(core.KindExtraction, nil,
			"Request timed out. The website may be slow or unreachable.")
	case resp.StatusCode != http.StatusOK:
		return "", core.Errf(core.KindExtraction, fmt.Errorf("firecrawl status %d", resp.StatusCode),
			"Failed to scrape website. Please try again later.")
	}

	var out firecrawlResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", core.Errf(core.KindExtraction, err, "Failed to scrape website. Please try again later.")
	}
	if !out.Success && out.Error != "" {
		return "", core.Errf(core.KindExtraction, fmt.Errorf("firecrawl: %s", out.Error),
			"Failed to scrape website: %s", out.Error)
	}
	if strings.TrimSpace(out.Data.Markdown) == "" {
		return "", core.Errf(core.KindExtraction, nil,
			"Failed to extract content from the website. The page may be empty or inaccessible.")
	}

	return out.Data.Markdown, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

var _ core.Scraper = (*FirecrawlScraper)(nil)
