package shopping

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// ApologySentinel is the only user-visible output of a total synthesis
// failure. Every earlier stage degrades silently instead.
const ApologySentinel = "죄송합니다. 추천을 생성하는 중 문제가 발생했습니다. 잠시 후 다시 시도해 주세요."

// DefaultSynthesisPrompt is the persona template with one substitution
// point for the assembled context.
const DefaultSynthesisPrompt = `You are a helpful Korean shopping advisor.
Using only the gathered information below, recommend the best matching products.
For each recommendation give the product name, price if known, where to buy it, and a one-line reason.
If the information is sparse, say what you found and what the user should verify themselves.
Answer in the language of the user's question.

Gathered information:
{context}`

const (
	maxContextResults  = 10
	maxContextProducts = 5
)

// Synthesizer assembles the gathered state into one textual context and
// runs a single LLM round trip to produce the final recommendation.
type Synthesizer struct {
	LLM            llms.Model
	PromptTemplate string
	Logger         *slog.Logger
}

func NewSynthesizer(model llms.Model, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		LLM:            model,
		PromptTemplate: DefaultSynthesisPrompt,
		Logger:         logger,
	}
}

// Synthesize builds the enriched context, invokes the LLM and stores the
// final answer on the state. It never propagates an error: a failed call
// yields the apology sentinel and a note in error_info.
func (s *Synthesizer) Synthesize(ctx context.Context, state *PipelineState) {
	state.EnrichedContext = BuildContext(state)
	system := strings.ReplaceAll(s.PromptTemplate, "{context}", state.EnrichedContext)

	resp, err := s.LLM.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, state.UserQuery),
	})
	if err != nil {
		s.Logger.Error("Synthesis failed", "error", err)
		state.FinalAnswer = ApologySentinel
		state.ErrorInfo = fmt.Sprintf("synthesis failed: %v", err)
		return
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		s.Logger.Error("Synthesis returned no content")
		state.FinalAnswer = ApologySentinel
		state.ErrorInfo = "synthesis returned no content"
		return
	}

	state.FinalAnswer = resp.Choices[0].Content
	s.Logger.Info("Synthesis complete", "answer_length", len(state.FinalAnswer))
}

// BuildContext assembles the gathered data in fixed order: the analysis
// block, then the top search results, then the top extracted products.
// Empty sections are omitted.
func BuildContext(state *PipelineState) string {
	var sections []string

	if state.Analysis != nil {
		a := state.Analysis
		sections = append(sections, strings.Join([]string{
			"## 분석 결과",
			fmt.Sprintf("- 상품: %s", a.MainProduct),
			fmt.Sprintf("- 검색 키워드: %s", strings.Join(a.SearchKeywords, ", ")),
			fmt.Sprintf("- 가격대: %s", a.PriceRange),
			fmt.Sprintf("- 카테고리: %s", strings.Join(a.TargetCategories, ", ")),
			fmt.Sprintf("- 검색 의도: %s", a.SearchIntent),
		}, "\n"))
	}

	if len(state.SearchResults) > 0 {
		results := state.SearchResults
		if len(results) > maxContextResults {
			results = results[:maxContextResults]
		}
		var lines []string
		lines = append(lines, "## 검색 결과")
		for i, r := range results {
			snippet := r.ContentSnippet
			if runes := []rune(snippet); len(runes) > 150 {
				snippet = string(runes[:150]) + "..."
			}
			lines = append(lines, fmt.Sprintf("%d. %s (%s)\n   %s", i+1, r.Title, r.URL, snippet))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	if len(state.ProductData) > 0 {
		products := state.ProductData
		if len(products) > maxContextProducts {
			products = products[:maxContextProducts]
		}
		var lines []string
		lines = append(lines, "## 상품 정보")
		for _, p := range products {
			lines = append(lines, fmt.Sprintf("- %s / %s / %s", p.Name, p.Price, p.SourceURL))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	if len(sections) == 0 {
		return "수집된 정보가 없습니다."
	}
	return strings.Join(sections, "\n\n")
}
