// Package models defines core data structures for keyword trend results, windows, and errors.
package models

import "strings"

// TimePoint is a single dated observation in a trend series.
type TimePoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Sentiment holds the share of positive, neutral, and negative mentions, each in [0,1].
type Sentiment struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

// RelatedQuery is a rising query related to a keyword.
type RelatedQuery struct {
	Query string  `json:"query"`
	Value float64 `json:"value"`
}

// KeywordData is the successful analysis payload for one keyword.
type KeywordData struct {
	Trend          []TimePoint    `json:"trend"`
	Forecast       []float64      `json:"forecast,omitempty"`
	Sentiment      *Sentiment     `json:"sentiment,omitempty"`
	Summary        string         `json:"summary,omitempty"`
	RelatedQueries []RelatedQuery `json:"related_queries,omitempty"`
}

// KeywordResult is either analysis data or a per-keyword error, never both.
// Use OK to read the data; Err is non-empty when the backend rejected the keyword.
type KeywordResult struct {
	Keyword string
	Data    *KeywordData
	Err     string
}

// Succeeded builds an Ok result.
func Succeeded(keyword string, data *KeywordData) KeywordResult {
	if data == nil {
		data = &KeywordData{}
	}
	return KeywordResult{Keyword: keyword, Data: data}
}

// Failed builds an Err result.
func Failed(keyword, message string) KeywordResult {
	if message == "" {
		message = "unknown error"
	}
	return KeywordResult{Keyword: keyword, Err: message}
}

// OK returns the data and true when the result carries no error.
func (r KeywordResult) OK() (*KeywordData, bool) {
	if r.Err != "" || r.Data == nil {
		return nil, false
	}
	return r.Data, true
}

// SummaryOrDefault returns the summary text, or "No summary" when absent.
func (d *KeywordData) SummaryOrDefault() string {
	if d == nil || strings.TrimSpace(d.Summary) == "" {
		return "No summary"
	}
	return d.Summary
}

// SentimentOrZero returns the sentiment, or an all-zero breakdown when absent.
func (d *KeywordData) SentimentOrZero() Sentiment {
	if d == nil || d.Sentiment == nil {
		return Sentiment{}
	}
	return *d.Sentiment
}

// ParseKeywords splits comma-separated input, trims each part, and drops empty parts.
// Returns ErrNoKeywords when nothing is left.
func ParseKeywords(input string) ([]string, error) {
	return NormalizeKeywords(strings.Split(input, ","))
}

// NormalizeKeywords trims keywords and drops empty ones, preserving order.
// Returns ErrNoKeywords when nothing is left.
func NormalizeKeywords(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, k := range raw {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoKeywords
	}
	return out, nil
}

// JoinKeywords joins keywords the way history entries are stored.
func JoinKeywords(keywords []string) string {
	return strings.Join(keywords, ", ")
}
