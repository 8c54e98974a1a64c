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
	"github.com/mikeboe/shopping-agent/pkg/textproc"
)

const (
	firecrawlEndpoint = "https://api.firecrawl.dev/v1/scrape"

	scrapeMaxRetries = 2
	scrapeRetryDelay = time.Second
)

// FirecrawlClient implements the scrape gateway against the Firecrawl
// API. Transient failures are retried a bounded number of times with a
// fixed delay before reporting final failure.
type FirecrawlClient struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func NewFirecrawlClient(apiKey string, logger *slog.Logger) *FirecrawlClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &FirecrawlClient{
		APIKey:     apiKey,
		BaseURL:    firecrawlEndpoint,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		Logger:     logger,
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
		Metadata struct {
			Title string `json:"title"`
		} `json:"metadata"`
	} `json:"data"`
	Error string `json:"error"`
}

// Scrape fetches one URL's content, capped at maxLength runes. Callers
// see only the final outcome; retries happen inside.
func (c *FirecrawlClient) Scrape(ctx context.Context, url string, maxLength int) shopping.ScrapeResponse {
	var lastErr string

	for attempt := 0; attempt <= scrapeMaxRetries; attempt++ {
		if attempt > 0 {
			c.Logger.Warn("Retrying scrape", "url", url, "attempt", attempt+1, "last_error", lastErr)
			select {
			case <-ctx.Done():
				return scrapeFailure(fmt.Sprintf("scrape cancelled: %v", ctx.Err()))
			case <-time.After(scrapeRetryDelay):
			}
		}

		resp, retryable, errMsg := c.scrapeOnce(ctx, url, maxLength)
		if errMsg == "" {
			return resp
		}
		lastErr = errMsg
		if !retryable {
			break
		}
	}

	c.Logger.Error("Scrape failed", "url", url, "error", lastErr)
	return scrapeFailure(lastErr)
}

// scrapeOnce performs a single attempt. The second return value reports
// whether the failure is worth retrying.
func (c *FirecrawlClient) scrapeOnce(ctx context.Context, url string, maxLength int) (shopping.ScrapeResponse, bool, string) {
	reqBody, err := json.Marshal(firecrawlRequest{
		URL:     url,
		Formats: []string{"markdown"},
	})
	if err != nil {
		return shopping.ScrapeResponse{}, false, fmt.Sprintf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return shopping.ScrapeResponse{}, false, fmt.Sprintf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return shopping.ScrapeResponse{}, true, fmt.Sprintf("scrape request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return shopping.ScrapeResponse{}, true, fmt.Sprintf("failed to read response: %v", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return shopping.ScrapeResponse{}, true, fmt.Sprintf("scrape API returned status %d", resp.StatusCode)
	default:
		return shopping.ScrapeResponse{}, false, fmt.Sprintf("scrape API returned status %d", resp.StatusCode)
	}

	var parsed firecrawlResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return shopping.ScrapeResponse{}, false, fmt.Sprintf("failed to parse scrape response: %v", err)
	}
	if !parsed.Success {
		return shopping.ScrapeResponse{}, false, fmt.Sprintf("scrape provider error: %s", parsed.Error)
	}

	content := parsed.Data.Markdown
	originalLength := len([]rune(content))
	truncated := false
	if maxLength > 0 && originalLength > maxLength {
		content = textproc.CleanAndLimit(content, maxLength)
		truncated = true
	}

	title := parsed.Data.Metadata.Title
	if title == "" {
		title = textproc.ExtractTitle(content)
	}

	c.Logger.Info("Scrape completed", "url", url, "length", originalLength, "truncated", truncated)
	return shopping.ScrapeResponse{
		Title:         title,
		Content:       content,
		ContentLength: originalLength,
		Truncated:     truncated,
		Success:       true,
	}, false, ""
}

func scrapeFailure(message string) shopping.ScrapeResponse {
	return shopping.ScrapeResponse{Success: false, Error: message}
}
