package shopping

import (
	"net/url"
	"strings"

	"github.com/mikeboe/shopping-agent/pkg/config"
)

// shoppingSignals are words whose presence in a title or snippet suggests
// shopping-relevant content. Each hit adds a small bonus.
var shoppingSignals = []string{
	"구매", "가격", "할인", "추천", "리뷰", "후기",
	"buy", "price", "discount", "review", "recommend",
}

const (
	titleMatchBonus   = 0.30
	snippetMatchBonus = 0.10
	signalWordBonus   = 0.02
	shoppingHostBonus = 0.10
)

// ScoreResult scores one search result against the keyword that produced
// it. Pure and deterministic; absent fields count as empty.
func ScoreResult(result SearchResult, keyword string) float64 {
	score := result.BaseScore

	kw := strings.ToLower(keyword)
	title := strings.ToLower(result.Title)
	snippet := strings.ToLower(result.ContentSnippet)

	if kw != "" && strings.Contains(title, kw) {
		score += titleMatchBonus
	}
	if kw != "" && strings.Contains(snippet, kw) {
		score += snippetMatchBonus
	}

	for _, signal := range shoppingSignals {
		if strings.Contains(title, signal) || strings.Contains(snippet, signal) {
			score += signalWordBonus
		}
	}

	if hostMatchesShoppingDomain(result.URL) {
		score += shoppingHostBonus
	}

	return score
}

// hostMatchesShoppingDomain reports whether the URL's host contains any
// configured shopping domain fragment.
func hostMatchesShoppingDomain(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := strings.ToLower(parsed.Host)
	for _, domain := range config.PreferredShoppingDomains {
		if strings.Contains(host, domain) {
			return true
		}
	}
	return false
}
