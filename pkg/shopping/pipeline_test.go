package shopping

import (
	"context"
	"errors"
	"testing"
)

func newTestEngine(gen StructuredGenerator, search SearchGateway, scrape ScrapeGateway, llmResponse string) *Engine {
	tracker, _ := newTestTracker()
	return &Engine{
		Analyzer:    NewAnalyzer(gen, nil),
		Strategist:  NewStrategist(search, scrape, testProfiles(), tracker, nil),
		Synthesizer: NewSynthesizer(&fakeLLM{response: llmResponse}, nil),
		Tracker:     tracker,
	}
}

func TestPipelineSimpleScenario(t *testing.T) {
	gen := &fakeGenerator{response: `{
		"main_product": "버즈 이어폰",
		"search_keywords": ["버즈 이어폰 가격"],
		"search_intent": "purchase",
		"complexity_level": "simple",
		"primary_search_query": "버즈 이어폰 가격",
		"routing_decision": "simple_search"
	}`}
	search := &fakeSearch{responses: map[string]SearchResponse{
		"버즈 이어폰 가격": okSearch(
			SearchItem{Title: "버즈 최저가 비교", URL: "https://shopping.naver.com/1", Content: "가격 정보", Score: 0.9},
		),
	}}
	scrape := &fakeScrape{}
	e := newTestEngine(gen, search, scrape, "버즈3를 추천합니다.")

	state := e.Run(context.Background(), "버즈 이어폰 가격")

	if state.RoutingDecision != RouteSimple {
		t.Errorf("routing = %q", state.RoutingDecision)
	}
	if len(search.calls) != 1 {
		t.Errorf("search calls = %d, want exactly 1", len(search.calls))
	}
	if len(scrape.calls) != 0 {
		t.Errorf("scrape calls = %d, want 0", len(scrape.calls))
	}
	if len(state.ProductData) != 0 {
		t.Errorf("product_data = %d, want empty", len(state.ProductData))
	}
	if state.FinalAnswer == "" || state.FinalAnswer == ApologySentinel {
		t.Errorf("FinalAnswer = %q", state.FinalAnswer)
	}
	if state.ProcessingStatus != StatusDone {
		t.Errorf("ProcessingStatus = %q", state.ProcessingStatus)
	}
}

func TestPipelineDegradedAnalysisStillAnswers(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("analysis model down")}
	searchQuery := "세탁기 추천 " + shoppingKeywordSuffix
	search := &fakeSearch{responses: map[string]SearchResponse{
		searchQuery: okSearch(
			SearchItem{Title: "드럼 세탁기 추천", URL: "https://www.coupang.com/1", Content: "추천 목록", Score: 0.7},
		),
	}}
	scrape := &fakeScrape{responses: map[string]ScrapeResponse{
		"https://www.coupang.com/1": {Title: "드럼 세탁기", Content: "# 드럼 세탁기\n가격 600,000원", Success: true},
	}}
	e := newTestEngine(gen, search, scrape, "LG 드럼 세탁기를 추천합니다.")

	state := e.Run(context.Background(), "세탁기 추천")

	if state.RoutingDecision != RouteDetailed {
		t.Errorf("fallback routing = %q, want detailed", state.RoutingDecision)
	}
	if state.ErrorInfo == "" {
		t.Error("analysis failure not recorded")
	}
	if len(state.SearchKeywords) != 1 || state.SearchKeywords[0] != "세탁기 추천" {
		t.Errorf("fallback keywords = %v", state.SearchKeywords)
	}
	if len(state.SearchResults) == 0 {
		t.Error("detailed strategy did not run after degraded analysis")
	}
	if len(state.ProductData) != 1 {
		t.Errorf("product_data = %d, want 1", len(state.ProductData))
	}
	if state.FinalAnswer != "LG 드럼 세탁기를 추천합니다." {
		t.Errorf("FinalAnswer = %q, want real answer despite degradation", state.FinalAnswer)
	}
}

func TestPipelineNeverShortCircuits(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("analysis down")}
	search := &fakeSearch{responses: map[string]SearchResponse{}} // every query empty
	scrape := &fakeScrape{}
	e := newTestEngine(gen, search, scrape, "정보가 부족하지만 일반적인 추천을 드립니다.")

	state := e.Run(context.Background(), "아무거나 추천")

	if len(search.calls) == 0 {
		t.Error("strategy skipped after analysis failure")
	}
	if state.FinalAnswer == "" {
		t.Error("synthesis skipped on sparse context")
	}
	if state.ProcessingStatus != StatusDone {
		t.Errorf("pipeline did not finish: %q", state.ProcessingStatus)
	}
}

func TestPipelineStatusProgression(t *testing.T) {
	gen := &fakeGenerator{response: `{"main_product":"x","search_keywords":["x"],"search_intent":"purchase","complexity_level":"simple","routing_decision":"simple_search"}`}
	e := newTestEngine(gen, &fakeSearch{responses: map[string]SearchResponse{}}, &fakeScrape{}, "답변")

	var statuses []string
	e.OnStateUpdate = func(state PipelineState) {
		statuses = append(statuses, state.ProcessingStatus)
	}

	e.Run(context.Background(), "x")

	if len(statuses) != 5 {
		t.Fatalf("status updates = %d, want 5: %v", len(statuses), statuses)
	}
	if statuses[0] != StatusAnalyzing || statuses[len(statuses)-1] != StatusDone {
		t.Errorf("unexpected progression: %v", statuses)
	}
}

func TestPipelineSweepsTrackerAtEnd(t *testing.T) {
	gen := &fakeGenerator{response: `{"main_product":"x","search_keywords":["x"],"search_intent":"purchase","complexity_level":"simple","routing_decision":"simple_search"}`}
	e := newTestEngine(gen, &fakeSearch{responses: map[string]SearchResponse{}}, &fakeScrape{}, "답변")

	// Leave a dangling call for the sweep to find.
	e.Tracker.Dispatch("dangling", "tavily_search", "", nil)

	e.Run(context.Background(), "x")

	call, _ := e.Tracker.Call("dangling")
	if !call.Finished {
		t.Error("sweep did not finalize dangling call")
	}
}
