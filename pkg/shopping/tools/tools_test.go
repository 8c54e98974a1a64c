package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTavilySearchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req tavilyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if req.Query != "버즈 가격" || req.SearchDepth != "basic" || req.MaxResults != 5 {
			t.Errorf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(tavilyResponse{Results: []tavilyResult{
			{Title: "갤럭시 버즈 최저가", URL: "https://shopping.naver.com/1", Content: "가격 비교", Score: 0.9},
		}})
	}))
	defer srv.Close()

	c := NewTavilyClient("key", nil)
	c.BaseURL = srv.URL

	resp := c.Search(context.Background(), "버즈 가격", "basic", 5)
	if !resp.Success {
		t.Fatalf("Search failed: %s", resp.Error)
	}
	if resp.ResultsCount != 1 || resp.Results[0].Title != "갤럭시 버즈 최저가" {
		t.Errorf("unexpected results: %+v", resp)
	}
}

func TestTavilySearchProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	c := NewTavilyClient("key", nil)
	c.BaseURL = srv.URL

	resp := c.Search(context.Background(), "query", "basic", 3)
	if resp.Success {
		t.Error("expected failure shape")
	}
	if resp.Error == "" {
		t.Error("missing error message")
	}
}

func TestTavilyClampsMaxResults(t *testing.T) {
	var got int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req tavilyRequest
		json.NewDecoder(r.Body).Decode(&req)
		got = req.MaxResults
		json.NewEncoder(w).Encode(tavilyResponse{})
	}))
	defer srv.Close()

	c := NewTavilyClient("key", nil)
	c.BaseURL = srv.URL
	c.Search(context.Background(), "q", "basic", 50)
	if got != 20 {
		t.Errorf("max_results = %d, want 20", got)
	}
}

func TestFirecrawlScrapeRetriesTransientFailure(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "upstream busy", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"markdown": "# 상품 페이지\n가격 30,000원",
				"metadata": map[string]any{"title": "상품 페이지"},
			},
		})
	}))
	defer srv.Close()

	c := NewFirecrawlClient("key", nil)
	c.BaseURL = srv.URL

	resp := c.Scrape(context.Background(), "https://example.com/item", 1000)
	if !resp.Success {
		t.Fatalf("Scrape failed: %s", resp.Error)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if resp.Title != "상품 페이지" {
		t.Errorf("Title = %q", resp.Title)
	}
}

func TestFirecrawlScrapeGivesUpOnPermanentFailure(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewFirecrawlClient("key", nil)
	c.BaseURL = srv.URL

	resp := c.Scrape(context.Background(), "https://example.com/missing", 1000)
	if resp.Success {
		t.Error("expected failure shape")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, permanent failures should not retry", attempts)
	}
}

func TestFirecrawlScrapeTruncatesContent(t *testing.T) {
	long := ""
	for i := 0; i < 200; i++ {
		long += "word "
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"markdown": long,
				"metadata": map[string]any{"title": "t"},
			},
		})
	}))
	defer srv.Close()

	c := NewFirecrawlClient("key", nil)
	c.BaseURL = srv.URL

	resp := c.Scrape(context.Background(), "https://example.com", 100)
	if !resp.Truncated {
		t.Error("Truncated flag not set")
	}
	if len([]rune(resp.Content)) > 110 {
		t.Errorf("content not capped: %d runes", len([]rune(resp.Content)))
	}
	if resp.ContentLength != len([]rune(long)) {
		t.Errorf("ContentLength = %d, want original length", resp.ContentLength)
	}
}
