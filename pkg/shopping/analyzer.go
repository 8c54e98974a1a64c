package shopping

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/mikeboe/shopping-agent/pkg/textproc"
)

// StructuredGenerator produces schema-constrained JSON output from a
// single prompt. The genai client satisfies this through GenaiGenerator.
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
}

// GenaiGenerator backs StructuredGenerator with the Gemini API.
type GenaiGenerator struct {
	Client *genai.Client
	Model  string
}

func (g *GenaiGenerator) GenerateStructured(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	resp, err := g.Client.Models.GenerateContent(ctx, g.Model, []*genai.Content{
		{Parts: []*genai.Part{{Text: prompt}}},
	}, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
	if err != nil {
		return "", fmt.Errorf("structured generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("model returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

// DefaultAnalysisPrompt is used when no template is supplied by the
// prompt store. It carries exactly one substitution point.
const DefaultAnalysisPrompt = `You are a shopping query analyst.
Extract structured shopping intent from the user request below.

Rules:
- search_keywords: up to 5 keywords ranked by importance, most specific first.
- target_categories: product categories the request belongs to (electronics, fashion, beauty, food, home, sports, books, general).
- search_intent: one of purchase, compare, research, recommend.
- complexity_level: one of simple, medium, complex, very_complex.
- information_depth: one of basic, detailed, expert.
- routing_decision: simple_search for unambiguous single-product price checks, detailed_search for typical requests, comprehensive_search for multi-criteria comparisons or vague high-stakes purchases.
- primary_search_query: the single best search query for this request.
- secondary_search_queries: up to 2 alternative angles.
- price_range: the stated or implied budget, or "no price info".

User request: {user_query}`

// analysisSchema constrains the model to emit AnalysisRecord fields
// exactly, so no free-text parsing is involved.
func analysisSchema() *genai.Schema {
	stringArray := func(desc string) *genai.Schema {
		return &genai.Schema{
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: desc,
		}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"main_product":             {Type: genai.TypeString},
			"search_keywords":          stringArray("Up to 5 importance-ranked search keywords"),
			"price_range":              {Type: genai.TypeString},
			"target_categories":        stringArray("Product categories"),
			"search_intent":            {Type: genai.TypeString, Enum: []string{"purchase", "compare", "research", "recommend"}},
			"complexity_level":         {Type: genai.TypeString, Enum: []string{"simple", "medium", "complex", "very_complex"}},
			"information_depth":        {Type: genai.TypeString, Enum: []string{"basic", "detailed", "expert"}},
			"primary_search_query":     {Type: genai.TypeString},
			"secondary_search_queries": stringArray("Up to 2 alternative search queries"),
			"routing_decision":         {Type: genai.TypeString, Enum: []string{"simple_search", "detailed_search", "comprehensive_search"}},
		},
		Required: []string{"main_product", "search_keywords", "search_intent", "complexity_level", "routing_decision"},
	}
}

// Analyzer turns a free-text shopping request into a typed analysis
// record with a routing decision, in one structured-output round trip.
type Analyzer struct {
	Generator      StructuredGenerator
	PromptTemplate string
	Logger         *slog.Logger
}

func NewAnalyzer(gen StructuredGenerator, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		Generator:      gen,
		PromptTemplate: DefaultAnalysisPrompt,
		Logger:         logger,
	}
}

// Analyze runs one LLM round trip and returns the analysis. It never
// fails the pipeline: on any error the returned record is the documented
// fallback and the error describes what went wrong so the caller can
// record it.
func (a *Analyzer) Analyze(ctx context.Context, userQuery string) (*AnalysisRecord, error) {
	prompt := strings.ReplaceAll(a.PromptTemplate, "{user_query}", userQuery)

	content, err := a.Generator.GenerateStructured(ctx, prompt, analysisSchema())
	if err != nil {
		a.Logger.Warn("Query analysis failed, using fallback", "error", err)
		return fallbackAnalysis(userQuery), fmt.Errorf("query analysis failed: %w", err)
	}

	var record AnalysisRecord
	if err := json.Unmarshal([]byte(content), &record); err != nil {
		a.Logger.Warn("Analysis output unparseable, using fallback", "error", err)
		return fallbackAnalysis(userQuery), fmt.Errorf("analysis parse error: %w", err)
	}

	sanitizeAnalysis(&record, userQuery)
	a.Logger.Info("Query analyzed",
		"product", record.MainProduct,
		"keywords", record.SearchKeywords,
		"routing", record.RoutingDecision)
	return &record, nil
}

// fallbackAnalysis is the degraded record used when analysis fails:
// search the raw query on the medium-effort path.
func fallbackAnalysis(userQuery string) *AnalysisRecord {
	return &AnalysisRecord{
		MainProduct:        userQuery,
		SearchKeywords:     []string{userQuery},
		PriceRange:         textproc.NoPriceInfo,
		TargetCategories:   []string{"general"},
		SearchIntent:       "recommend",
		ComplexityLevel:    "medium",
		InformationDepth:   "basic",
		PrimarySearchQuery: userQuery,
		RoutingDecision:    string(RouteDetailed),
	}
}

// sanitizeAnalysis clamps model output the schema cannot fully enforce:
// keyword count, empty fields, and the routing value.
func sanitizeAnalysis(record *AnalysisRecord, userQuery string) {
	if len(record.SearchKeywords) == 0 {
		record.SearchKeywords = []string{userQuery}
	}
	if len(record.SearchKeywords) > 5 {
		record.SearchKeywords = record.SearchKeywords[:5]
	}
	if len(record.TargetCategories) == 0 {
		record.TargetCategories = []string{"general"}
	}
	if record.PrimarySearchQuery == "" {
		record.PrimarySearchQuery = record.SearchKeywords[0]
	}
	if len(record.SecondarySearchQueries) > 2 {
		record.SecondarySearchQueries = record.SecondarySearchQueries[:2]
	}
	if record.PriceRange == "" {
		record.PriceRange = textproc.NoPriceInfo
	}
	record.RoutingDecision = string(NormalizeRouting(record.RoutingDecision))
}
