// Package textproc provides pure text-processing helpers for scraped
// shopping content: title extraction, Korean price-pattern matching and
// best-effort product record extraction.
package textproc

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	// NoTitle is returned when no usable title can be found.
	NoTitle = "no title"
	// NoPriceInfo is returned when no currency pattern matches.
	NoPriceInfo = "no price info"
)

// ProductRecord is a best-effort product extraction from one scraped page.
type ProductRecord struct {
	Name         string    `json:"name"`
	Price        string    `json:"price"`
	Description  string    `json:"description"`
	SourceURL    string    `json:"source_url"`
	Availability string    `json:"availability"`
	ExtractedAt  time.Time `json:"extracted_at"`
}

var headingPrefix = regexp.MustCompile(`^#+\s*`)

// ExtractTitle pulls a title out of unstructured scraped text. Markdown
// headings win, then HTML title tags, then the first line of reasonable
// length, then the leading 50 characters of the whole text.
func ExtractTitle(content string) string {
	if content == "" {
		return NoTitle
	}

	lines := strings.Split(content, "\n")

	// A heading anywhere beats every other candidate, then a title tag,
	// then the first line of reasonable length.
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(headingPrefix.ReplaceAllString(line, ""))
		}
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "<title>") && strings.HasSuffix(line, "</title>") {
			title := strings.TrimPrefix(line, "<title>")
			title = strings.TrimSuffix(title, "</title>")
			return strings.TrimSpace(title)
		}
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if n := len([]rune(line)); n >= 10 && n <= 100 {
			return line
		}
	}

	runes := []rune(content)
	if len(runes) > 50 {
		head := strings.TrimSpace(strings.ReplaceAll(string(runes[:50]), "\n", " "))
		return head + "..."
	}
	return strings.TrimSpace(strings.ReplaceAll(content, "\n", " "))
}

// pricePattern pairs a currency regexp with the unit appended to the
// matched digit group. Patterns are tried in order; first match wins.
type pricePattern struct {
	re   *regexp.Regexp
	unit string
}

var pricePatterns = []pricePattern{
	{regexp.MustCompile(`(\d{1,3}(?:,\d{3})*)\s*원`), "원"},
	{regexp.MustCompile(`₩\s*(\d{1,3}(?:,\d{3})*)`), "원"},
	{regexp.MustCompile(`(\d{1,3}(?:,\d{3})*)\s*KRW`), "원"},
	{regexp.MustCompile(`(\d{1,3}(?:,\d{3})*)\s*만원`), "만원"},
	{regexp.MustCompile(`(\d{1,3}(?:,\d{3})*)\s*천원`), "천원"},
}

// ExtractPrice finds the first Korean currency amount in the text and
// returns it with a normalized unit, or NoPriceInfo if nothing matches.
func ExtractPrice(content string) string {
	if content == "" {
		return NoPriceInfo
	}
	for _, p := range pricePatterns {
		if m := p.re.FindStringSubmatch(content); m != nil {
			return m[1] + p.unit
		}
	}
	return NoPriceInfo
}

// ExtractProduct composes title and price extraction into a ProductRecord.
// Missing price or title are represented by their sentinels, never by an
// error; the description is a 200-rune slice of the content.
func ExtractProduct(content, url string) *ProductRecord {
	description := content
	if runes := []rune(content); len(runes) > 200 {
		description = string(runes[:200]) + "..."
	}

	return &ProductRecord{
		Name:         ExtractTitle(content),
		Price:        ExtractPrice(content),
		Description:  description,
		SourceURL:    url,
		Availability: "needs verification",
		ExtractedAt:  time.Now(),
	}
}

var (
	blankRuns = regexp.MustCompile(`\n\s*\n\s*\n`)
	spaceRuns = regexp.MustCompile(`[ \t]+`)
)

// CleanAndLimit normalizes whitespace and truncates the content to
// maxLength runes, preferring a word boundary when one is close enough.
func CleanAndLimit(content string, maxLength int) string {
	if content == "" {
		return ""
	}

	cleaned := blankRuns.ReplaceAllString(content, "\n\n")
	cleaned = spaceRuns.ReplaceAllString(cleaned, " ")

	runes := []rune(cleaned)
	if len(runes) <= maxLength {
		return cleaned
	}

	truncated := string(runes[:maxLength])
	if idx := strings.LastIndex(truncated, " "); idx > maxLength*8/10 {
		truncated = truncated[:idx]
	}
	return truncated + "..."
}

// FormatResults renders up to maxResults entries of (title, url, snippet,
// score) tuples for human-readable display.
func FormatResults(results []DisplayResult, maxResults int) string {
	if len(results) == 0 {
		return "no search results"
	}
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}

	var parts []string
	for i, r := range results {
		snippet := r.Snippet
		if runes := []rune(snippet); len(runes) > 150 {
			snippet = string(runes[:150]) + "..."
		}
		parts = append(parts, fmt.Sprintf("**%d. %s**\n- URL: %s\n- relevance: %.2f\n- %s",
			i+1, r.Title, r.URL, r.Score, snippet))
	}
	return strings.Join(parts, "\n\n")
}

// DisplayResult is the minimal shape FormatResults needs.
type DisplayResult struct {
	Title   string
	URL     string
	Snippet string
	Score   float64
}
