// Package tools holds the HTTP clients for the external search and
// scrape providers. Both clients convert every provider failure into the
// gateway's success=false shape instead of returning an error.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mikeboe/shopping-agent/pkg/shopping"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// TavilyClient implements the search gateway against the Tavily API.
type TavilyClient struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func NewTavilyClient(apiKey string, logger *slog.Logger) *TavilyClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &TavilyClient{
		APIKey:     apiKey,
		BaseURL:    tavilyEndpoint,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     logger,
	}
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

// Search runs one keyword query. Depth is "basic" or "advanced";
// maxResults is clamped to the provider's 1..20 range.
func (c *TavilyClient) Search(ctx context.Context, query, depth string, maxResults int) shopping.SearchResponse {
	if depth != "advanced" {
		depth = "basic"
	}
	if maxResults < 1 {
		maxResults = 1
	}
	if maxResults > 20 {
		maxResults = 20
	}

	reqBody, err := json.Marshal(tavilyRequest{
		APIKey:      c.APIKey,
		Query:       query,
		SearchDepth: depth,
		MaxResults:  maxResults,
	})
	if err != nil {
		return searchFailure(fmt.Sprintf("failed to marshal request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return searchFailure(fmt.Sprintf("failed to create request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Error("Tavily request failed", "query", query, "error", err)
		return searchFailure(fmt.Sprintf("search request failed: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return searchFailure(fmt.Sprintf("failed to read response: %v", err))
	}
	if resp.StatusCode != http.StatusOK {
		c.Logger.Error("Tavily returned non-200 status", "status", resp.StatusCode, "body", string(body))
		return searchFailure(fmt.Sprintf("search API returned status %d", resp.StatusCode))
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return searchFailure(fmt.Sprintf("failed to parse search response: %v", err))
	}

	items := make([]shopping.SearchItem, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		items = append(items, shopping.SearchItem{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   r.Score,
		})
	}

	c.Logger.Info("Search completed", "query", query, "depth", depth, "count", len(items))
	return shopping.SearchResponse{
		Results:      items,
		ResultsCount: len(items),
		Success:      true,
	}
}

func searchFailure(message string) shopping.SearchResponse {
	return shopping.SearchResponse{Success: false, Error: message}
}
