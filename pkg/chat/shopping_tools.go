package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"github.com/mikeboe/shopping-agent/pkg/knowledge"
	"github.com/mikeboe/shopping-agent/pkg/shopping"
)

// ShoppingToolset exposes product search and the indexed page knowledge
// base to the chat agent (and to MCP clients through the same methods).
type ShoppingToolset struct {
	Search    shopping.SearchGateway
	Knowledge *knowledge.Store
}

func NewShoppingToolset(search shopping.SearchGateway, store *knowledge.Store) *ShoppingToolset {
	return &ShoppingToolset{
		Search:    search,
		Knowledge: store,
	}
}

func (t *ShoppingToolset) Name() string {
	return "shopping_tools"
}

func (t *ShoppingToolset) Tools(ctx agent.ReadonlyContext) ([]tool.Tool, error) {
	searchTool, err := functiontool.New[SearchProductsArgs, SearchProductsResp](
		functiontool.Config{
			Name:        "search_products",
			Description: "Search the web for products matching a shopping query.",
		},
		t.searchProductsTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search tool: %w", err)
	}

	pagesTool, err := functiontool.New[SearchPagesArgs, SearchPagesResp](
		functiontool.Config{
			Name:        "search_product_pages",
			Description: "Semantic search over product pages the agent has already scraped and indexed.",
		},
		t.searchPagesTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pages tool: %w", err)
	}

	return []tool.Tool{searchTool, pagesTool}, nil
}

// --- Tool Implementations ---

type SearchProductsArgs struct {
	Query      string `json:"query" description:"The shopping search query"`
	MaxResults int    `json:"maxResults,omitempty" description:"Number of results to return (default 5)"`
}

type SearchProductsResp struct {
	Results string `json:"results"`
}

// Wrapper for ADK tool interface
func (t *ShoppingToolset) searchProductsTool(ctx tool.Context, args SearchProductsArgs) (SearchProductsResp, error) {
	return t.SearchProducts(ctx, args)
}

// Public method using standard context
func (t *ShoppingToolset) SearchProducts(ctx context.Context, args SearchProductsArgs) (SearchProductsResp, error) {
	if args.MaxResults == 0 {
		args.MaxResults = 5
	}

	slog.Info("Search products", "query", args.Query, "max_results", args.MaxResults)

	resp := t.Search.Search(ctx, args.Query, "basic", args.MaxResults)
	if !resp.Success {
		return SearchProductsResp{}, fmt.Errorf("product search failed: %s", resp.Error)
	}
	if len(resp.Results) == 0 {
		return SearchProductsResp{Results: "no results found for query: " + args.Query}, nil
	}

	var formatted []string
	for _, r := range resp.Results {
		formatted = append(formatted, fmt.Sprintf("[Title]: %s\n[URL]: %s\n[Content]: %s", r.Title, r.URL, r.Content))
	}
	return SearchProductsResp{Results: strings.Join(formatted, "\n\n")}, nil
}

type SearchPagesArgs struct {
	Query  string `json:"query" description:"The search query"`
	TopK   int    `json:"topK,omitempty" description:"Number of results to return (default 5)"`
	Source string `json:"source,omitempty" description:"Optional source URL filter"`
}

type SearchPagesResp struct {
	Results string `json:"results"`
}

// Wrapper for ADK tool interface
func (t *ShoppingToolset) searchPagesTool(ctx tool.Context, args SearchPagesArgs) (SearchPagesResp, error) {
	return t.SearchPages(ctx, args)
}

// Public method using standard context
func (t *ShoppingToolset) SearchPages(ctx context.Context, args SearchPagesArgs) (SearchPagesResp, error) {
	if args.TopK == 0 {
		args.TopK = 5
	}

	slog.Info("Search product pages", "query", args.Query, "topK", args.TopK, "source", args.Source)

	matches, err := t.Knowledge.FindSimilar(ctx, args.Query, args.TopK, args.Source)
	if err != nil {
		return SearchPagesResp{}, fmt.Errorf("failed to search indexed pages: %w", err)
	}
	if len(matches) == 0 {
		return SearchPagesResp{Results: "no indexed pages matched the query"}, nil
	}

	var formatted []string
	for _, m := range matches {
		source := "unknown"
		if s, ok := m.Chunk.Metadata["source"].(string); ok {
			source = s
		}
		formatted = append(formatted, fmt.Sprintf("[Source]: %s\n[Content]: %s", source, m.Chunk.Content))
	}
	return SearchPagesResp{Results: strings.Join(formatted, "\n\n")}, nil
}
