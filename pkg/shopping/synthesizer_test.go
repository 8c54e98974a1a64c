package shopping

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"
)

// fakeLLM satisfies llms.Model with canned output.
type fakeLLM struct {
	response string
	err      error
	messages []llms.MessageContent
}

func (f *fakeLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.response}},
	}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	resp, err := f.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}, opts...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func populatedState() *PipelineState {
	state := NewPipelineState("버즈 이어폰 추천해줘")
	state.Analysis = &AnalysisRecord{
		MainProduct:      "무선 이어폰",
		SearchKeywords:   []string{"갤럭시 버즈"},
		PriceRange:       "20만원 이하",
		TargetCategories: []string{"electronics"},
		SearchIntent:     "purchase",
	}
	state.SearchResults = []SearchResult{
		{Title: "버즈 최저가", URL: "https://shopping.naver.com/1", ContentSnippet: "가격 비교", RelevanceScore: 0.9},
	}
	state.ProductData = []*ProductRecord{
		{Name: "갤럭시 버즈3", Price: "189,000원", SourceURL: "https://shopping.naver.com/1"},
	}
	return state
}

func TestSynthesizeProducesAnswer(t *testing.T) {
	llm := &fakeLLM{response: "갤럭시 버즈3을 추천합니다."}
	s := NewSynthesizer(llm, nil)
	state := populatedState()

	s.Synthesize(context.Background(), state)

	if state.FinalAnswer != "갤럭시 버즈3을 추천합니다." {
		t.Errorf("FinalAnswer = %q", state.FinalAnswer)
	}
	if state.EnrichedContext == "" {
		t.Error("EnrichedContext not built")
	}

	if len(llm.messages) != 2 {
		t.Fatalf("messages = %d, want system + human", len(llm.messages))
	}
	if llm.messages[0].Role != llms.ChatMessageTypeSystem {
		t.Errorf("first message role = %v", llm.messages[0].Role)
	}
	system := llm.messages[0].Parts[0].(llms.TextContent).Text
	if strings.Contains(system, "{context}") {
		t.Error("context substitution point left in system prompt")
	}
	if !strings.Contains(system, "갤럭시 버즈3") {
		t.Error("product data missing from system prompt")
	}
	human := llm.messages[1].Parts[0].(llms.TextContent).Text
	if human != "버즈 이어폰 추천해줘" {
		t.Errorf("human message = %q, want raw user query", human)
	}
}

func TestSynthesizeApologyOnFailure(t *testing.T) {
	llm := &fakeLLM{err: errors.New("model overloaded")}
	s := NewSynthesizer(llm, nil)
	state := populatedState()

	s.Synthesize(context.Background(), state)

	if state.FinalAnswer != ApologySentinel {
		t.Errorf("FinalAnswer = %q, want apology sentinel", state.FinalAnswer)
	}
	if !strings.Contains(state.ErrorInfo, "model overloaded") {
		t.Errorf("ErrorInfo = %q", state.ErrorInfo)
	}
}

func TestBuildContextSectionOrder(t *testing.T) {
	state := populatedState()
	ctx := BuildContext(state)

	analysisIdx := strings.Index(ctx, "## 분석 결과")
	resultsIdx := strings.Index(ctx, "## 검색 결과")
	productsIdx := strings.Index(ctx, "## 상품 정보")

	if analysisIdx < 0 || resultsIdx < 0 || productsIdx < 0 {
		t.Fatalf("missing section:\n%s", ctx)
	}
	if !(analysisIdx < resultsIdx && resultsIdx < productsIdx) {
		t.Errorf("sections out of order: %d, %d, %d", analysisIdx, resultsIdx, productsIdx)
	}
}

func TestBuildContextOmitsEmptySections(t *testing.T) {
	state := NewPipelineState("q")
	state.SearchResults = []SearchResult{{Title: "t", URL: "https://e.com"}}

	ctx := BuildContext(state)
	if strings.Contains(ctx, "## 분석 결과") || strings.Contains(ctx, "## 상품 정보") {
		t.Errorf("empty sections rendered:\n%s", ctx)
	}
	if !strings.Contains(ctx, "## 검색 결과") {
		t.Error("search section missing")
	}
}

func TestBuildContextCapsResultsAndProducts(t *testing.T) {
	state := NewPipelineState("q")
	for i := 0; i < 15; i++ {
		state.SearchResults = append(state.SearchResults, SearchResult{Title: "r", URL: "https://e.com"})
		state.ProductData = append(state.ProductData, &ProductRecord{Name: "p", Price: "1,000원"})
	}

	ctx := BuildContext(state)
	if strings.Count(ctx, "(https://e.com)") != maxContextResults {
		t.Errorf("results not capped at %d", maxContextResults)
	}
	if strings.Count(ctx, "- p / 1,000원") != maxContextProducts {
		t.Errorf("products not capped at %d", maxContextProducts)
	}
}

func TestBuildContextEmptyState(t *testing.T) {
	state := NewPipelineState("q")
	if got := BuildContext(state); got != "수집된 정보가 없습니다." {
		t.Errorf("BuildContext() = %q", got)
	}
}
