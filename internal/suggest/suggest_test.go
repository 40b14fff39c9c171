package suggest

import (
	"context"
	"testing"

	"github.com/hyperjump/trendlens/internal/models"
)

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "ab", 2},
		{"bitcoin", "bitcoin", 0},
		{"bitcon", "bitcoin", 1},
		{"kitten", "sitting", 3},
		{"café", "cafe", 1},
	}
	for _, tt := range tests {
		if got := LevenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func newSeededIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex()
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })

	rs := models.NewResultSet(
		models.Succeeded("Bitcoin", &models.KeywordData{
			RelatedQueries: []models.RelatedQuery{{Query: "bitcoin price", Value: 250}},
		}),
		models.Failed("ignored", "no data"),
	)
	if err := idx.AddResults(rs); err != nil {
		t.Fatal(err)
	}
	if err := idx.AddHistory([]string{"ethereum, solana", "bitcoin"}); err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestIndex_PrefixSuggestions(t *testing.T) {
	idx := newSeededIndex(t)
	if idx.Len() != 4 {
		t.Fatalf("Len = %d, want 4", idx.Len())
	}

	got, err := idx.Suggest(context.Background(), "bit", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %+v", got)
	}
	if got[0].Keyword != "Bitcoin" || !got[0].Prefix {
		t.Errorf("first = %+v", got[0])
	}
	if got[0].Popularity != 2 {
		t.Errorf("popularity should accumulate across sources, got %v", got[0].Popularity)
	}
	if got[1].Keyword != "bitcoin price" {
		t.Errorf("second = %+v", got[1])
	}
}

func TestIndex_TypoTolerance(t *testing.T) {
	idx := newSeededIndex(t)
	got, err := idx.Suggest(context.Background(), "etherium", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) == 0 || got[0].Keyword != "ethereum" {
		t.Errorf("expected ethereum, got %+v", got)
	}
}

func TestIndex_MultiWord(t *testing.T) {
	idx := newSeededIndex(t)
	got, err := idx.Suggest(context.Background(), "bitcoin pr", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Keyword != "bitcoin price" {
		t.Errorf("got %+v", got)
	}
}

func TestIndex_EmptyInputAndFailedKeyword(t *testing.T) {
	idx := newSeededIndex(t)
	got, err := idx.Suggest(context.Background(), "  ", 5)
	if err != nil || len(got) != 0 {
		t.Errorf("got %+v, %v", got, err)
	}
	got, _ = idx.Suggest(context.Background(), "ignored", 5)
	if len(got) != 0 {
		t.Errorf("failed keywords must not be indexed: %+v", got)
	}
}
