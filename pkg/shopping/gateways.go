package shopping

import "context"

// SearchItem is one raw result from the external search provider.
type SearchItem struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// SearchResponse is the uniform search gateway result shape. Provider
// failures arrive as Success=false, never as a raised error.
type SearchResponse struct {
	Results      []SearchItem `json:"results"`
	ResultsCount int          `json:"results_count"`
	Success      bool         `json:"success"`
	Error        string       `json:"error,omitempty"`
}

// ScrapeResponse is the uniform scrape gateway result shape.
type ScrapeResponse struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	ContentLength int    `json:"content_length"`
	Truncated     bool   `json:"truncated"`
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
}

// SearchGateway wraps a third-party keyword search capability.
type SearchGateway interface {
	Search(ctx context.Context, query, depth string, maxResults int) SearchResponse
}

// ScrapeGateway wraps a third-party URL-to-text capability. Transient
// failure retries are the gateway's responsibility.
type ScrapeGateway interface {
	Scrape(ctx context.Context, url string, maxLength int) ScrapeResponse
}
