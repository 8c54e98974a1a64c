package config

import (
	"os"
	"strconv"
)

type Config struct {
	GoogleApiKey    string
	TavilyApiKey    string
	FirecrawlApiKey string
	DatabaseURL     string
	ReasoningModel  string
	FastModel       string
	EmbeddingModel  string
	Port            string
	ChunkSize       int
	ChunkOverlap    int
	CollectionName  string

	Strategies StrategyProfiles
}

// SearchBudget bounds the external-call volume of one strategy's search phase.
type SearchBudget struct {
	MaxKeywords          int
	MaxResultsPerKeyword int
	TotalMaxResults      int
	Depth                string // "basic" or "advanced"
	AddShoppingKeywords  bool
}

// ScrapeBudget bounds one strategy's scraping phase.
type ScrapeBudget struct {
	MaxURLs          int
	ContentMaxLength int
}

// StrategyBudget pairs the two phase budgets for one routing decision.
type StrategyBudget struct {
	Search SearchBudget
	Scrape ScrapeBudget
}

// StrategyProfiles holds the budgets for the three execution strategies.
type StrategyProfiles struct {
	Simple        StrategyBudget
	Detailed      StrategyBudget
	Comprehensive StrategyBudget
}

// PreferredShoppingDomains are host fragments that mark known shopping
// sites; matching URLs get a bonus during relevance scoring and URL
// selection.
var PreferredShoppingDomains = []string{
	"naver.com", "coupang.com", "gmarket.com", "11st.co.kr",
	"auction.co.kr", "ssg.com", "lotte.com", "wemakeprice.com",
	"tmon.co.kr", "interpark.com", "yes24.com", "aladin.co.kr",
	"musinsa.com", "oliveyoung.co.kr", "hmall.com",
}

func defaultProfiles() StrategyProfiles {
	return StrategyProfiles{
		Simple: StrategyBudget{
			Search: SearchBudget{
				MaxKeywords:          1,
				MaxResultsPerKeyword: 5,
				TotalMaxResults:      5,
				Depth:                "basic",
				AddShoppingKeywords:  false,
			},
			// No scraping phase on the simple path.
			Scrape: ScrapeBudget{MaxURLs: 0, ContentMaxLength: 0},
		},
		Detailed: StrategyBudget{
			Search: SearchBudget{
				MaxKeywords:          2,
				MaxResultsPerKeyword: 2,
				TotalMaxResults:      3,
				Depth:                "basic",
				AddShoppingKeywords:  true,
			},
			Scrape: ScrapeBudget{MaxURLs: 1, ContentMaxLength: 1500},
		},
		Comprehensive: StrategyBudget{
			Search: SearchBudget{
				MaxKeywords:          3,
				MaxResultsPerKeyword: 8,
				TotalMaxResults:      24,
				Depth:                "advanced",
				AddShoppingKeywords:  true,
			},
			Scrape: ScrapeBudget{MaxURLs: 8, ContentMaxLength: 3000},
		},
	}
}

func Load() *Config {
	return &Config{
		GoogleApiKey:    getEnv("GOOGLE_API_KEY", ""),
		TavilyApiKey:    getEnv("TAVILY_API_KEY", ""),
		FirecrawlApiKey: getEnv("FIRECRAWL_API_KEY", ""),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		ReasoningModel:  getEnv("REASONING_MODEL", "gemini-3-pro-preview"),
		FastModel:       getEnv("FAST_MODEL", "gemini-3-flash-preview"),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "gemini-embedding-001"),
		Port:            getEnv("PORT", "8081"),
		ChunkSize:       getEnvAsInt("CHUNK_SIZE", 1000),
		ChunkOverlap:    getEnvAsInt("CHUNK_OVERLAP", 200),
		CollectionName:  getEnv("COLLECTION_NAME", "product_pages"),
		Strategies:      defaultProfiles(),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
