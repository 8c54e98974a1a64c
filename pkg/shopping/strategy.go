package shopping

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mikeboe/shopping-agent/pkg/config"
	"github.com/mikeboe/shopping-agent/pkg/textproc"
)

// Group identifiers for the tracker. Each logical fan-out step tags its
// calls with one of these so group-level errors hit only siblings.
const (
	searchGroup = "tools:search"
	scrapeGroup = "tools:scrape"
)

// urlDomainBonus is added during URL selection for hosts on the shopping
// domain allowlist.
const urlDomainBonus = 0.30

// shoppingKeywordSuffix widens queries toward purchase-oriented results
// when the strategy budget asks for it.
const shoppingKeywordSuffix = "쇼핑 구매 추천"

// Strategist executes one of the three search-and-scrape policies
// against the gateways, observed call by call through the tracker.
type Strategist struct {
	Search   SearchGateway
	Scrape   ScrapeGateway
	Profiles config.StrategyProfiles
	Tracker  *Tracker
	Logger   *slog.Logger
}

func NewStrategist(search SearchGateway, scrape ScrapeGateway, profiles config.StrategyProfiles, tracker *Tracker, logger *slog.Logger) *Strategist {
	if logger == nil {
		logger = slog.Default()
	}
	if tracker == nil {
		tracker = NewTracker(logger)
	}
	return &Strategist{
		Search:   search,
		Scrape:   scrape,
		Profiles: profiles,
		Tracker:  tracker,
		Logger:   logger,
	}
}

// Execute runs the strategy selected by the state's routing decision.
// Exactly one strategy runs per request.
func (s *Strategist) Execute(ctx context.Context, state *PipelineState) {
	switch Route(state) {
	case RouteSimple:
		s.runSimple(ctx, state)
	case RouteComprehensive:
		s.runComprehensive(ctx, state)
	default:
		s.runDetailed(ctx, state)
	}
}

// runSimple issues a single basic search and skips scraping entirely.
func (s *Strategist) runSimple(ctx context.Context, state *PipelineState) {
	s.Logger.Info("Running simple strategy", "query", state.UserQuery)
	budget := s.Profiles.Simple

	query := primaryQuery(state)
	s.runSearchPhase(ctx, state, []string{query}, budget.Search)
}

// runDetailed runs the balanced two-phase default: bounded multi-keyword
// search followed by a small scrape pass.
func (s *Strategist) runDetailed(ctx context.Context, state *PipelineState) {
	s.Logger.Info("Running detailed strategy", "query", state.UserQuery)
	budget := s.Profiles.Detailed

	queries := keywordQueries(state, budget.Search)
	s.runSearchPhase(ctx, state, queries, budget.Search)
	s.runScrapePhase(ctx, state, budget.Scrape)
}

// runComprehensive searches the primary query plus up to two secondary
// angles at advanced depth, then scrapes a wider URL set.
func (s *Strategist) runComprehensive(ctx context.Context, state *PipelineState) {
	s.Logger.Info("Running comprehensive strategy", "query", state.UserQuery)
	budget := s.Profiles.Comprehensive

	queries := []string{primaryQuery(state)}
	if state.Analysis != nil {
		secondary := state.Analysis.SecondarySearchQueries
		if len(secondary) > 2 {
			secondary = secondary[:2]
		}
		queries = append(queries, secondary...)
	}
	if len(queries) > budget.Search.MaxKeywords {
		queries = queries[:budget.Search.MaxKeywords]
	}

	s.runSearchPhase(ctx, state, queries, budget.Search)
	s.runScrapePhase(ctx, state, budget.Scrape)
}

// primaryQuery prefers the analyzer's primary search query, falling back
// to the first two keywords joined, then the raw user query.
func primaryQuery(state *PipelineState) string {
	if state.Analysis != nil && state.Analysis.PrimarySearchQuery != "" {
		return state.Analysis.PrimarySearchQuery
	}
	if len(state.SearchKeywords) > 0 {
		kws := state.SearchKeywords
		if len(kws) > 2 {
			kws = kws[:2]
		}
		return strings.Join(kws, " ")
	}
	return state.UserQuery
}

// keywordQueries takes up to the budgeted number of keywords, widening
// each with the shopping suffix when the budget asks for it.
func keywordQueries(state *PipelineState, budget config.SearchBudget) []string {
	kws := state.SearchKeywords
	if len(kws) == 0 {
		kws = []string{state.UserQuery}
	}
	if budget.MaxKeywords > 0 && len(kws) > budget.MaxKeywords {
		kws = kws[:budget.MaxKeywords]
	}

	queries := make([]string, 0, len(kws))
	for _, kw := range kws {
		q := kw
		if budget.AddShoppingKeywords {
			q = kw + " " + shoppingKeywordSuffix
		}
		queries = append(queries, q)
	}
	return queries
}

// runSearchPhase issues the queries sequentially, scores every result
// against the query that produced it, enforces the global result cap and
// re-sorts by relevance. One failed query never aborts the others.
func (s *Strategist) runSearchPhase(ctx context.Context, state *PipelineState, queries []string, budget config.SearchBudget) {
	for _, query := range queries {
		if budget.TotalMaxResults > 0 && len(state.SearchResults) >= budget.TotalMaxResults {
			break
		}

		callID := uuid.NewString()
		s.Tracker.Dispatch(callID, "tavily_search", searchGroup, map[string]any{
			"query":       query,
			"depth":       budget.Depth,
			"max_results": budget.MaxResultsPerKeyword,
		})

		resp := s.Search.Search(ctx, query, budget.Depth, budget.MaxResultsPerKeyword)
		if !resp.Success {
			s.Tracker.Fail(callID, resp.Error)
			state.ErrorInfo = fmt.Sprintf("search failed for %q: %s", query, resp.Error)
			s.Logger.Warn("Search query failed", "query", query, "error", resp.Error)
			continue
		}
		s.Tracker.Complete(callID, fmt.Sprintf("%d results", resp.ResultsCount))

		for _, item := range resp.Results {
			if budget.TotalMaxResults > 0 && len(state.SearchResults) >= budget.TotalMaxResults {
				break
			}
			result := SearchResult{
				Keyword:        query,
				Title:          item.Title,
				URL:            item.URL,
				ContentSnippet: item.Content,
				BaseScore:      item.Score,
			}
			result.RelevanceScore = ScoreResult(result, query)
			state.SearchResults = append(state.SearchResults, result)
		}
	}

	sort.SliceStable(state.SearchResults, func(i, j int) bool {
		return state.SearchResults[i].RelevanceScore > state.SearchResults[j].RelevanceScore
	})

	state.RelevantURLs = dedupeURLs(state.SearchResults)
	s.Logger.Info("Search phase complete",
		"queries", len(queries),
		"results", len(state.SearchResults),
		"urls", len(state.RelevantURLs))
}

func dedupeURLs(results []SearchResult) []string {
	seen := make(map[string]bool)
	urls := make([]string, 0, len(results))
	for _, r := range results {
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		urls = append(urls, r.URL)
	}
	return urls
}

// runScrapePhase selects the most promising URLs and scrapes them one by
// one. Every attempted URL gets a scraped_content entry, failures
// included; one URL's failure never aborts the loop.
func (s *Strategist) runScrapePhase(ctx context.Context, state *PipelineState, budget config.ScrapeBudget) {
	if budget.MaxURLs <= 0 {
		return
	}

	urls := selectScrapeURLs(state, budget.MaxURLs)
	for _, url := range urls {
		callID := uuid.NewString()
		s.Tracker.Dispatch(callID, "firecrawl_scrape", scrapeGroup, map[string]any{
			"url":        url,
			"max_length": budget.ContentMaxLength,
		})

		resp := s.Scrape.Scrape(ctx, url, budget.ContentMaxLength)
		if !resp.Success {
			s.Tracker.Fail(callID, resp.Error)
			state.ScrapedContent[url] = &ScrapedPage{
				Title:        textproc.NoTitle,
				Content:      resp.Error,
				FetchedAt:    time.Now(),
				Error:        true,
				ErrorMessage: resp.Error,
			}
			state.ErrorInfo = fmt.Sprintf("scrape failed for %s: %s", url, resp.Error)
			s.Logger.Warn("Scrape failed", "url", url, "error", resp.Error)
			continue
		}
		s.Tracker.Complete(callID, fmt.Sprintf("%d chars", resp.ContentLength))

		state.ScrapedContent[url] = &ScrapedPage{
			Title:          resp.Title,
			Content:        resp.Content,
			OriginalLength: resp.ContentLength,
			Truncated:      resp.Truncated,
			FetchedAt:      time.Now(),
		}

		if product := textproc.ExtractProduct(resp.Content, url); product != nil {
			state.ProductData = append(state.ProductData, product)
		}
	}

	s.Logger.Info("Scrape phase complete",
		"attempted", len(urls),
		"products", len(state.ProductData))
}

// selectScrapeURLs scores each relevant URL by its best known relevance
// plus a shopping-domain bonus, then takes the top N. Runs once per
// strategy invocation.
func selectScrapeURLs(state *PipelineState, maxURLs int) []string {
	bestScore := make(map[string]float64, len(state.SearchResults))
	for _, r := range state.SearchResults {
		if r.URL == "" {
			continue
		}
		if score, ok := bestScore[r.URL]; !ok || r.RelevanceScore > score {
			bestScore[r.URL] = r.RelevanceScore
		}
	}

	type scoredURL struct {
		url   string
		score float64
	}
	scored := make([]scoredURL, 0, len(state.RelevantURLs))
	for _, url := range state.RelevantURLs {
		score := bestScore[url]
		if hostMatchesShoppingDomain(url) {
			score += urlDomainBonus
		}
		scored = append(scored, scoredURL{url, score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if len(scored) > maxURLs {
		scored = scored[:maxURLs]
	}
	urls := make([]string, len(scored))
	for i, su := range scored {
		urls[i] = su.url
	}
	return urls
}
