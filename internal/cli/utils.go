// Package cli provides output writers for the trendlens command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hyperjump/trendlens/internal/models"
	"github.com/hyperjump/trendlens/internal/suggest"
	"github.com/hyperjump/trendlens/internal/trend"
	"github.com/hyperjump/trendlens/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text", "json", or "" (text).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

const summaryWidth = 300

// Report is an analysis outcome as printed by the analyze command.
type Report struct {
	Results      *models.ResultSet `json:"results"`
	Dataset      *trend.Dataset    `json:"dataset,omitempty"`
	DatasetError string            `json:"dataset_error,omitempty"`
}

// WriteResults writes rep to w in the given format.
func WriteResults(w io.Writer, rep Report, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, rep)
	}
	if rep.Results == nil {
		fmt.Fprintln(w, "No results.")
		return nil
	}
	for _, res := range rep.Results.Results() {
		writeKeyword(w, res, rep.Dataset)
	}
	if rep.DatasetError != "" {
		fmt.Fprintf(w, "Chart: %s\n", rep.DatasetError)
	}
	return nil
}

func writeKeyword(w io.Writer, res models.KeywordResult, ds *trend.Dataset) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "%s\n", res.Keyword)
	data, ok := res.OK()
	if !ok {
		fmt.Fprintf(w, "Error: %s\n\n", res.Err)
		return
	}
	if s, found := ds.Find(res.Keyword); found {
		fmt.Fprintf(w, "Color: %s\n", s.Hex)
	}
	if n := len(data.Trend); n > 0 {
		last := data.Trend[n-1]
		fmt.Fprintf(w, "Latest: %s = %s (%d points)\n", last.Date, formatValue(last.Value), n)
	} else {
		fmt.Fprintln(w, "Latest: no trend data")
	}
	if len(data.Forecast) > 0 {
		parts := make([]string, len(data.Forecast))
		for i, v := range data.Forecast {
			parts[i] = formatValue(v)
		}
		fmt.Fprintf(w, "Forecast: %s\n", strings.Join(parts, ", "))
	}
	WriteSentiment(w, data.SentimentOrZero())
	fmt.Fprintf(w, "Summary: %s\n", utils.Truncate(data.SummaryOrDefault(), summaryWidth))
	if len(data.RelatedQueries) > 0 {
		fmt.Fprintln(w, "Related rising queries:")
		WriteRelated(w, data.RelatedQueries)
	}
	fmt.Fprintln(w)
}

// WriteSentiment writes the sentiment shares as whole percentages.
func WriteSentiment(w io.Writer, s models.Sentiment) {
	fmt.Fprintf(w, "Sentiment: positive %d%% | neutral %d%% | negative %d%%\n",
		utils.Percent(s.Positive), utils.Percent(s.Neutral), utils.Percent(s.Negative))
}

// WriteRelated writes one "query +value%" line per related query.
func WriteRelated(w io.Writer, related []models.RelatedQuery) {
	for _, rq := range related {
		fmt.Fprintf(w, "  %s +%s%%\n", rq.Query, formatValue(rq.Value))
	}
}

// WriteHistory writes the recent searches, most recent first.
func WriteHistory(w io.Writer, entries []string, format OutputFormat) error {
	if format == OutputJSON {
		if entries == nil {
			entries = []string{}
		}
		return writeJSON(w, map[string][]string{"history": entries})
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No recent searches.")
		return nil
	}
	for i, e := range entries {
		fmt.Fprintf(w, "%2d. %s\n", i+1, e)
	}
	return nil
}

// WriteSuggestions writes keyword suggestions.
func WriteSuggestions(w io.Writer, suggestions []suggest.Suggestion, format OutputFormat) error {
	if format == OutputJSON {
		if suggestions == nil {
			suggestions = []suggest.Suggestion{}
		}
		return writeJSON(w, map[string][]suggest.Suggestion{"suggestions": suggestions})
	}
	if len(suggestions) == 0 {
		fmt.Fprintln(w, "No suggestions.")
		return nil
	}
	for _, s := range suggestions {
		fmt.Fprintf(w, "%s (%s)\n", s.Keyword, s.Source)
	}
	return nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
