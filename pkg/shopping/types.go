package shopping

import (
	"time"

	"github.com/mikeboe/shopping-agent/pkg/textproc"
)

// RoutingDecision selects which search strategy runs for a request.
type RoutingDecision string

const (
	RouteSimple        RoutingDecision = "simple_search"
	RouteDetailed      RoutingDecision = "detailed_search"
	RouteComprehensive RoutingDecision = "comprehensive_search"
)

// NormalizeRouting clamps unrecognized values to the medium-effort default
// so malformed model output can never select an invalid strategy.
func NormalizeRouting(raw string) RoutingDecision {
	switch RoutingDecision(raw) {
	case RouteSimple, RouteDetailed, RouteComprehensive:
		return RoutingDecision(raw)
	default:
		return RouteDetailed
	}
}

// AnalysisRecord is the structured output of the query analysis step.
// It is created once per request and never mutated afterward.
type AnalysisRecord struct {
	MainProduct            string   `json:"main_product"`
	SearchKeywords         []string `json:"search_keywords"`
	PriceRange             string   `json:"price_range"`
	TargetCategories       []string `json:"target_categories"`
	SearchIntent           string   `json:"search_intent"`
	ComplexityLevel        string   `json:"complexity_level"`
	InformationDepth       string   `json:"information_depth"`
	PrimarySearchQuery     string   `json:"primary_search_query"`
	SecondarySearchQueries []string `json:"secondary_search_queries"`
	RoutingDecision        string   `json:"routing_decision"`
}

// SearchResult is one externally sourced result scored against the keyword
// that produced it. Never mutated after creation.
type SearchResult struct {
	Keyword        string  `json:"keyword"`
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	ContentSnippet string  `json:"content_snippet"`
	BaseScore      float64 `json:"base_score"`
	RelevanceScore float64 `json:"relevance_score"`
}

// ScrapedPage records one scrape attempt, successful or not. Failed
// attempts are terminal at this layer.
type ScrapedPage struct {
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	OriginalLength int       `json:"original_length"`
	Truncated      bool      `json:"truncated"`
	FetchedAt      time.Time `json:"fetched_at"`
	Error          bool      `json:"error"`
	ErrorMessage   string    `json:"error_message,omitempty"`
}

// ProductRecord is re-exported from textproc so pipeline consumers only
// import this package.
type ProductRecord = textproc.ProductRecord

// PipelineState is the single mutable record threaded through one
// request's execution. It is exclusively owned by one in-flight request.
type PipelineState struct {
	UserQuery        string                  `json:"user_query"`
	Analysis         *AnalysisRecord         `json:"analysis,omitempty"`
	RoutingDecision  RoutingDecision         `json:"routing_decision,omitempty"`
	SearchKeywords   []string                `json:"search_keywords"`
	TargetCategories []string                `json:"target_categories"`
	SearchResults    []SearchResult          `json:"search_results"`
	RelevantURLs     []string                `json:"relevant_urls"`
	ScrapedContent   map[string]*ScrapedPage `json:"scraped_content"`
	ProductData      []*ProductRecord        `json:"product_data"`
	EnrichedContext  string                  `json:"enriched_context,omitempty"`
	FinalAnswer      string                  `json:"final_answer,omitempty"`
	ProcessingStatus string                  `json:"processing_status"`
	ErrorInfo        string                  `json:"error_info,omitempty"`
}

// NewPipelineState returns a fresh state for one user query.
func NewPipelineState(userQuery string) *PipelineState {
	return &PipelineState{
		UserQuery:      userQuery,
		ScrapedContent: make(map[string]*ScrapedPage),
	}
}
