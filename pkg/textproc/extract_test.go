package textproc

import (
	"strings"
	"testing"
)

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "markdown heading wins",
			content: "some preamble text that is quite long here\n# 갤럭시 버즈3 프로\nbody",
			want:    "갤럭시 버즈3 프로",
		},
		{
			name:    "html title tag",
			content: "short\n<title>Wireless Earbuds Store</title>\nmore",
			want:    "Wireless Earbuds Store",
		},
		{
			name:    "reasonable first line",
			content: "A mid-length product line here\nrest of page",
			want:    "A mid-length product line here",
		},
		{
			name:    "fallback to leading characters",
			content: strings.Repeat("x", 120),
			want:    strings.Repeat("x", 50) + "...",
		},
		{
			name:    "empty content",
			content: "",
			want:    NoTitle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTitle(tt.content); got != tt.want {
				t.Errorf("ExtractTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractPrice(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"won suffix", "특가 129,000원 무료배송", "129,000원"},
		{"won symbol", "가격: ₩ 59,900", "59,900원"},
		{"krw code", "price 45,000 KRW each", "45,000원"},
		{"man won", "약 12만원 선", "12만원"},
		{"cheon won", "단돈 9천원", "9천원"},
		{"no price", "가격 문의 바랍니다", NoPriceInfo},
		{"empty", "", NoPriceInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractPrice(tt.content); got != tt.want {
				t.Errorf("ExtractPrice() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractPriceFirstMatchWins(t *testing.T) {
	content := "정가 200,000원 할인가 150,000원"
	if got := ExtractPrice(content); got != "200,000원" {
		t.Errorf("ExtractPrice() = %q, want first match 200,000원", got)
	}
}

func TestExtractProduct(t *testing.T) {
	content := "# 무선 이어폰 추천\n가격은 89,000원 입니다.\n" + strings.Repeat("상세 설명 ", 100)
	rec := ExtractProduct(content, "https://shopping.naver.com/item/1")

	if rec.Name != "무선 이어폰 추천" {
		t.Errorf("Name = %q", rec.Name)
	}
	if rec.Price != "89,000원" {
		t.Errorf("Price = %q", rec.Price)
	}
	if rec.SourceURL != "https://shopping.naver.com/item/1" {
		t.Errorf("SourceURL = %q", rec.SourceURL)
	}
	if rec.Availability != "needs verification" {
		t.Errorf("Availability = %q", rec.Availability)
	}
	if got := len([]rune(rec.Description)); got != 203 {
		t.Errorf("Description length = %d runes, want 200 plus ellipsis", got)
	}
	if rec.ExtractedAt.IsZero() {
		t.Error("ExtractedAt is zero")
	}
}

func TestExtractProductMissingFields(t *testing.T) {
	rec := ExtractProduct("", "https://example.com")
	if rec.Name != NoTitle {
		t.Errorf("Name = %q, want sentinel", rec.Name)
	}
	if rec.Price != NoPriceInfo {
		t.Errorf("Price = %q, want sentinel", rec.Price)
	}
}

func TestExtractProductDeterministic(t *testing.T) {
	content := "# 갤럭시 버즈3 프로\n특가 219,000원\n" + strings.Repeat("노이즈 캔슬링 ", 50)
	url := "https://shopping.naver.com/item/2"

	first := ExtractProduct(content, url)
	second := ExtractProduct(content, url)

	if first.Name != second.Name {
		t.Errorf("Name differs: %q vs %q", first.Name, second.Name)
	}
	if first.Price != second.Price {
		t.Errorf("Price differs: %q vs %q", first.Price, second.Price)
	}
	if first.Description != second.Description {
		t.Errorf("Description differs: %q vs %q", first.Description, second.Description)
	}
	if first.SourceURL != second.SourceURL {
		t.Errorf("SourceURL differs: %q vs %q", first.SourceURL, second.SourceURL)
	}
	if first.Availability != second.Availability {
		t.Errorf("Availability differs: %q vs %q", first.Availability, second.Availability)
	}
}

func TestCleanAndLimit(t *testing.T) {
	t.Run("collapses blank runs and spaces", func(t *testing.T) {
		in := "a  b\n\n\n\nc\td"
		want := "a b\n\nc d"
		if got := CleanAndLimit(in, 100); got != want {
			t.Errorf("CleanAndLimit() = %q, want %q", got, want)
		}
	})

	t.Run("truncates at word boundary", func(t *testing.T) {
		in := strings.Repeat("word ", 50)
		got := CleanAndLimit(in, 48)
		if !strings.HasSuffix(got, "...") {
			t.Errorf("missing ellipsis: %q", got)
		}
		if len([]rune(got)) > 51 {
			t.Errorf("too long: %d runes", len([]rune(got)))
		}
		if strings.HasSuffix(strings.TrimSuffix(got, "..."), "wor") {
			t.Errorf("cut mid-word: %q", got)
		}
	})

	t.Run("short content untouched", func(t *testing.T) {
		if got := CleanAndLimit("short", 100); got != "short" {
			t.Errorf("CleanAndLimit() = %q", got)
		}
	})
}

func TestFormatResults(t *testing.T) {
	if got := FormatResults(nil, 5); got != "no search results" {
		t.Errorf("empty input: %q", got)
	}

	results := []DisplayResult{
		{Title: "A", URL: "https://a", Snippet: "first", Score: 0.9},
		{Title: "B", URL: "https://b", Snippet: "second", Score: 0.5},
		{Title: "C", URL: "https://c", Snippet: "third", Score: 0.1},
	}
	got := FormatResults(results, 2)
	if !strings.Contains(got, "**1. A**") || !strings.Contains(got, "**2. B**") {
		t.Errorf("missing entries:\n%s", got)
	}
	if strings.Contains(got, "C") {
		t.Errorf("maxResults not enforced:\n%s", got)
	}
}
