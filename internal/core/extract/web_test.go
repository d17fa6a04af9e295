package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eric-nichols-nyc/recall-api/internal/core"
)

func TestFirecrawlScraper_Success(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		assert.Equal(t, "/v1/scrape", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]string{"markdown": "# Scraped Page\nbody"},
		})
	}))
	defer srv.Close()

	s := NewFirecrawlScraper("fc-key", srv.URL)
	md, err := s.ScrapeMarkdown(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "# Scraped Page\nbody", md)
	assert.Equal(t, "Bearer fc-key", gotAuth)
	assert.Equal(t, "https://example.com", gotBody["url"])
	assert.Equal(t, []any{"markdown"}, gotBody["formats"])
}

func TestFirecrawlScraper_NoKey(t *testing.T) {
	s := NewFirecrawlScraper("", "")
	_, err := s.ScrapeMarkdown(context.Background(), "https://example.com")
	require.Error(t, err)
	assert.Equal(t, core.KindExtraction, core.KindOf(err))
	assert.Equal(t,
		"FireCrawl API key is not configured. Please set FIRECRAWL_API_KEY environment variable.",
		core.Message(err))
}

func TestFirecrawlScraper_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusUnauthorized, "FireCrawl API key is invalid or missing."},
		{http.StatusForbidden, "FireCrawl API key is invalid or missing."},
		{http.StatusNotFound, "Website not found. Please check the URL."},
		{http.StatusRequestTimeout, "Request timed out. The website may be slow or unreachable."},
		{http.StatusBadGateway, "Failed to scrape website. Please try again later."},
	}
	for _, tc := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
		}))
		s := NewFirecrawlScraper("fc-key", srv.URL)
		_, err := s.ScrapeMarkdown(context.Background(), "https://example.com")
		srv.Close()

		require.Error(t, err, tc.status)
		assert.Equal(t, tc.want, core.Message(err), tc.status)
	}
}

func TestFirecrawlScraper_EmptyMarkdown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]string{"markdown": "   "},
		})
	}))
	defer srv.Close()

	s := NewFirecrawlScraper("fc-key", srv.URL)
	_, err := s.ScrapeMarkdown(context.Background(), "https://example.com")
	require.Error(t, err)
	assert.Equal(t,
		"Failed to extract content from the website. The page may be empty or inaccessible.",
		core.Message(err))
}
