package shopping

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/mikeboe/shopping-agent/pkg/config"
)

// fakeSearch maps queries to canned responses; unmatched queries get an
// empty success.
type fakeSearch struct {
	responses map[string]SearchResponse
	calls     []string
}

func (f *fakeSearch) Search(_ context.Context, query, depth string, maxResults int) SearchResponse {
	f.calls = append(f.calls, query)
	if resp, ok := f.responses[query]; ok {
		return resp
	}
	return SearchResponse{Success: true}
}

// fakeScrape maps URLs to canned responses.
type fakeScrape struct {
	responses map[string]ScrapeResponse
	calls     []string
}

func (f *fakeScrape) Scrape(_ context.Context, url string, maxLength int) ScrapeResponse {
	f.calls = append(f.calls, url)
	if resp, ok := f.responses[url]; ok {
		return resp
	}
	return ScrapeResponse{Success: false, Error: "unknown url"}
}

func okSearch(items ...SearchItem) SearchResponse {
	return SearchResponse{Results: items, ResultsCount: len(items), Success: true}
}

func newTestStrategist(search SearchGateway, scrape ScrapeGateway) *Strategist {
	tracker, _ := newTestTracker()
	return NewStrategist(search, scrape, testProfiles(), tracker, nil)
}

func testProfiles() config.StrategyProfiles {
	return config.StrategyProfiles{
		Simple: config.StrategyBudget{
			Search: config.SearchBudget{MaxKeywords: 1, MaxResultsPerKeyword: 5, TotalMaxResults: 5, Depth: "basic"},
		},
		Detailed: config.StrategyBudget{
			Search: config.SearchBudget{MaxKeywords: 2, MaxResultsPerKeyword: 2, TotalMaxResults: 3, Depth: "basic", AddShoppingKeywords: true},
			Scrape: config.ScrapeBudget{MaxURLs: 1, ContentMaxLength: 1500},
		},
		Comprehensive: config.StrategyBudget{
			Search: config.SearchBudget{MaxKeywords: 3, MaxResultsPerKeyword: 8, TotalMaxResults: 24, Depth: "advanced", AddShoppingKeywords: true},
			Scrape: config.ScrapeBudget{MaxURLs: 8, ContentMaxLength: 3000},
		},
	}
}

func TestSimpleStrategySearchesOnceNeverScrapes(t *testing.T) {
	search := &fakeSearch{responses: map[string]SearchResponse{
		"버즈 이어폰 가격": okSearch(
			SearchItem{Title: "버즈 최저가", URL: "https://shopping.naver.com/1", Content: "버즈 가격 비교", Score: 0.8},
		),
	}}
	scrape := &fakeScrape{}
	st := newTestStrategist(search, scrape)

	state := NewPipelineState("버즈 이어폰 가격")
	state.RoutingDecision = RouteSimple
	state.Analysis = &AnalysisRecord{PrimarySearchQuery: "버즈 이어폰 가격"}

	st.Execute(context.Background(), state)

	if len(search.calls) != 1 {
		t.Errorf("search calls = %d, want 1", len(search.calls))
	}
	if len(scrape.calls) != 0 {
		t.Errorf("scrape calls = %d, want 0", len(scrape.calls))
	}
	if len(state.SearchResults) != 1 {
		t.Errorf("results = %d", len(state.SearchResults))
	}
	if len(state.ProductData) != 0 || len(state.ScrapedContent) != 0 {
		t.Error("simple strategy must not populate scrape outputs")
	}
}

func TestDetailedStrategyAddsShoppingKeywords(t *testing.T) {
	search := &fakeSearch{responses: map[string]SearchResponse{}}
	scrape := &fakeScrape{}
	st := newTestStrategist(search, scrape)

	state := NewPipelineState("노트북 추천")
	state.RoutingDecision = RouteDetailed
	state.SearchKeywords = []string{"게이밍 노트북", "노트북 추천"}

	st.Execute(context.Background(), state)

	if len(search.calls) != 2 {
		t.Fatalf("search calls = %d, want 2", len(search.calls))
	}
	for _, call := range search.calls {
		if !strings.Contains(call, shoppingKeywordSuffix) {
			t.Errorf("query %q missing shopping suffix", call)
		}
	}
}

func TestSearchPhaseGlobalCap(t *testing.T) {
	many := make([]SearchItem, 5)
	for i := range many {
		many[i] = SearchItem{Title: fmt.Sprintf("r%d", i), URL: fmt.Sprintf("https://e.com/%d", i), Score: 0.5}
	}
	q1 := "a " + shoppingKeywordSuffix
	q2 := "b " + shoppingKeywordSuffix
	search := &fakeSearch{responses: map[string]SearchResponse{
		q1: okSearch(many...),
		q2: okSearch(many...),
	}}
	st := newTestStrategist(search, &fakeScrape{})

	state := NewPipelineState("q")
	state.RoutingDecision = RouteDetailed
	state.SearchKeywords = []string{"a", "b"}

	st.Execute(context.Background(), state)

	if len(state.SearchResults) > 3 {
		t.Errorf("global cap not enforced: %d results", len(state.SearchResults))
	}
}

func TestSearchResultsSortedByRelevance(t *testing.T) {
	search := &fakeSearch{responses: map[string]SearchResponse{
		"버즈": okSearch(
			SearchItem{Title: "unrelated page", URL: "https://a.com", Score: 0.1},
			SearchItem{Title: "버즈 가격 할인", URL: "https://shopping.naver.com/1", Score: 0.1},
		),
	}}
	st := newTestStrategist(search, &fakeScrape{})

	state := NewPipelineState("버즈")
	state.RoutingDecision = RouteSimple
	state.Analysis = &AnalysisRecord{PrimarySearchQuery: "버즈"}

	st.Execute(context.Background(), state)

	if len(state.SearchResults) != 2 {
		t.Fatalf("results = %d", len(state.SearchResults))
	}
	if state.SearchResults[0].Title != "버즈 가격 할인" {
		t.Errorf("results not sorted by relevance: %q first", state.SearchResults[0].Title)
	}
	if state.SearchResults[0].RelevanceScore <= state.SearchResults[1].RelevanceScore {
		t.Error("scores not descending")
	}
}

func TestSearchFailureDegradesWithoutAborting(t *testing.T) {
	q1 := "a " + shoppingKeywordSuffix
	q2 := "b " + shoppingKeywordSuffix
	search := &fakeSearch{responses: map[string]SearchResponse{
		q1: {Success: false, Error: "quota exhausted"},
		q2: okSearch(SearchItem{Title: "b result", URL: "https://e.com/b", Score: 0.5}),
	}}
	st := newTestStrategist(search, &fakeScrape{responses: map[string]ScrapeResponse{
		"https://e.com/b": {Title: "b", Content: "본문", Success: true},
	}})

	state := NewPipelineState("q")
	state.RoutingDecision = RouteDetailed
	state.SearchKeywords = []string{"a", "b"}

	st.Execute(context.Background(), state)

	if state.ErrorInfo == "" {
		t.Error("search failure not recorded")
	}
	if len(state.SearchResults) != 1 {
		t.Errorf("second query results lost: %d", len(state.SearchResults))
	}
}

func TestScrapeFailureIsolation(t *testing.T) {
	items := []SearchItem{
		{Title: "첫번째 상품", URL: "https://shop.com/1", Score: 0.9},
		{Title: "두번째 상품", URL: "https://shop.com/2", Score: 0.8},
		{Title: "세번째 상품", URL: "https://shop.com/3", Score: 0.7},
	}
	search := &fakeSearch{responses: map[string]SearchResponse{"전자레인지 추천": okSearch(items...)}}
	scrape := &fakeScrape{responses: map[string]ScrapeResponse{
		"https://shop.com/1": {Title: "첫번째", Content: "# 첫번째 상품\n가격 50,000원", Success: true},
		"https://shop.com/2": {Success: false, Error: "connection reset"},
		"https://shop.com/3": {Title: "세번째", Content: "# 세번째 상품\n가격 70,000원", Success: true},
	}}
	st := newTestStrategist(search, scrape)

	state := NewPipelineState("전자레인지 추천")
	state.RoutingDecision = RouteComprehensive
	state.Analysis = &AnalysisRecord{PrimarySearchQuery: "전자레인지 추천"}

	st.Execute(context.Background(), state)

	if len(state.ScrapedContent) != 3 {
		t.Fatalf("scraped_content entries = %d, want 3", len(state.ScrapedContent))
	}
	failed := state.ScrapedContent["https://shop.com/2"]
	if failed == nil || !failed.Error {
		t.Error("failed URL not recorded with error flag")
	}
	if len(state.ProductData) != 2 {
		t.Fatalf("product_data = %d, want 2", len(state.ProductData))
	}
	for _, p := range state.ProductData {
		if p.SourceURL == "https://shop.com/2" {
			t.Error("product extracted from failed scrape")
		}
	}
}

func TestSelectScrapeURLsDomainBonus(t *testing.T) {
	state := NewPipelineState("q")
	state.SearchResults = []SearchResult{
		{URL: "https://blog.example.org/review", RelevanceScore: 0.5},
		{URL: "https://www.coupang.com/item", RelevanceScore: 0.3},
	}
	state.RelevantURLs = []string{"https://blog.example.org/review", "https://www.coupang.com/item"}

	urls := selectScrapeURLs(state, 1)
	if len(urls) != 1 {
		t.Fatalf("urls = %v", urls)
	}
	// 0.3 + 0.3 domain bonus beats 0.5
	if urls[0] != "https://www.coupang.com/item" {
		t.Errorf("shopping domain not preferred: %v", urls)
	}
}

func TestSelectScrapeURLsUnknownURLScoresZero(t *testing.T) {
	state := NewPipelineState("q")
	state.SearchResults = []SearchResult{
		{URL: "https://a.org", RelevanceScore: 0.2},
	}
	state.RelevantURLs = []string{"https://a.org", "https://b.org"}

	urls := selectScrapeURLs(state, 2)
	if len(urls) != 2 || urls[0] != "https://a.org" {
		t.Errorf("ordering wrong: %v", urls)
	}
}

func TestComprehensiveUsesSecondaryQueries(t *testing.T) {
	search := &fakeSearch{responses: map[string]SearchResponse{}}
	st := newTestStrategist(search, &fakeScrape{})

	state := NewPipelineState("4인 가족 캠핑 텐트")
	state.RoutingDecision = RouteComprehensive
	state.Analysis = &AnalysisRecord{
		PrimarySearchQuery:     "4인용 텐트 추천",
		SecondarySearchQueries: []string{"캠핑 텐트 비교", "텐트 구매 가이드", "extra"},
	}

	st.Execute(context.Background(), state)

	if len(search.calls) != 3 {
		t.Fatalf("search calls = %d, want 3 (primary + 2 secondary)", len(search.calls))
	}
	if search.calls[0] != "4인용 텐트 추천" {
		t.Errorf("primary query = %q", search.calls[0])
	}
}

func TestStrategyTrackerObservesCalls(t *testing.T) {
	search := &fakeSearch{responses: map[string]SearchResponse{
		"q": okSearch(SearchItem{Title: "t", URL: "https://e.com", Score: 0.5}),
	}}
	tracker, _ := newTestTracker()
	st := NewStrategist(search, &fakeScrape{}, testProfiles(), tracker, nil)

	state := NewPipelineState("q")
	state.RoutingDecision = RouteSimple
	state.Analysis = &AnalysisRecord{PrimarySearchQuery: "q"}

	st.Execute(context.Background(), state)

	events := tracker.Events()
	if len(events) != 2 {
		t.Fatalf("events = %d, want start + end", len(events))
	}
	if events[0].GroupID != searchGroup {
		t.Errorf("group = %q", events[0].GroupID)
	}
}
