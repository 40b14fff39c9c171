package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/trendlens/internal/models"
	"github.com/hyperjump/trendlens/internal/suggest"
	"github.com/hyperjump/trendlens/internal/trend"
)

func sampleReport(t *testing.T) Report {
	t.Helper()
	rs := models.NewResultSet(
		models.Succeeded("golang", &models.KeywordData{
			Trend:     []models.TimePoint{{Date: "2024-01-01", Value: 40}, {Date: "2024-02-01", Value: 42.5}},
			Forecast:  []float64{43, 44.2, 45},
			Sentiment: &models.Sentiment{Positive: 0.6, Neutral: 0.3, Negative: 0.1},
			RelatedQueries: []models.RelatedQuery{
				{Query: "golang generics", Value: 250},
				{Query: "golang jobs", Value: 40},
			},
		}),
		models.Failed("ghost", "no data"),
	)
	ds, err := trend.Build(rs, models.Window6M)
	if err != nil {
		t.Fatal(err)
	}
	return Report{Results: rs, Dataset: ds}
}

func TestWriteResults_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResults(&buf, sampleReport(t), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"golang\n",
		"Color: #269dd9",
		"Latest: 2024-02-01 = 42.5 (2 points)",
		"Forecast: 43, 44.2, 45",
		"Sentiment: positive 60% | neutral 30% | negative 10%",
		"Summary: No summary",
		"  golang generics +250%",
		"  golang jobs +40%",
		"ghost\nError: no data",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "golang\n") > strings.Index(out, "ghost\n") {
		t.Error("results should be written in request order")
	}
}

func TestWriteResults_MissingSentimentIsZero(t *testing.T) {
	rs := models.NewResultSet(models.Succeeded("x", &models.KeywordData{Summary: "flat"}))
	var buf bytes.Buffer
	if err := WriteResults(&buf, Report{Results: rs, DatasetError: "no trend data to display"}, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Sentiment: positive 0% | neutral 0% | negative 0%") {
		t.Errorf("expected zero sentiment:\n%s", out)
	}
	if !strings.Contains(out, "Latest: no trend data") || !strings.Contains(out, "Chart: no trend data to display") {
		t.Errorf("expected empty trend notes:\n%s", out)
	}
}

func TestWriteResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResults(&buf, sampleReport(t), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Results map[string]json.RawMessage `json:"results"`
		Dataset struct {
			Series []struct {
				Keyword string `json:"keyword"`
			} `json:"series"`
		} `json:"dataset"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if len(decoded.Results) != 2 {
		t.Errorf("results: got %d", len(decoded.Results))
	}
	if len(decoded.Dataset.Series) != 1 || decoded.Dataset.Series[0].Keyword != "golang" {
		t.Errorf("series: got %+v", decoded.Dataset.Series)
	}
}

func TestWriteResults_NoResults(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResults(&buf, Report{}, OutputText); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "No results.\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestWriteHistory(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
		format  OutputFormat
		want    string
	}{
		{"text", []string{"go, rust", "python"}, OutputText, " 1. go, rust\n 2. python\n"},
		{"empty text", nil, OutputText, "No recent searches.\n"},
		{"empty json", nil, OutputJSON, "{\n  \"history\": []\n}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteHistory(&buf, tt.entries, tt.format); err != nil {
				t.Fatal(err)
			}
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestWriteSuggestions(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSuggestions(&buf, []suggest.Suggestion{{Keyword: "golang", Source: suggest.SourceHistory}}, OutputText)
	if err != nil {
		t.Fatal(err)
	}
	if buf.String() != "golang ("+suggest.SourceHistory+")\n" {
		t.Errorf("got %q", buf.String())
	}

	buf.Reset()
	if err := WriteSuggestions(&buf, nil, OutputText); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "No suggestions.\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "text": OutputText, "JSON": OutputJSON} {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOutputFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}
