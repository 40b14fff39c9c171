package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NoResultReturned is the per-keyword error for a requested keyword absent from the response.
const NoResultReturned = "no result returned"

// ResultSet maps keywords to results, preserving insertion order.
// A ResultSet is not modified after it has been handed to the session.
type ResultSet struct {
	keys    []string
	results map[string]KeywordResult
}

// NewResultSet builds a ResultSet in the order given. A repeated keyword replaces the
// earlier result but keeps its position.
func NewResultSet(results ...KeywordResult) *ResultSet {
	rs := &ResultSet{results: make(map[string]KeywordResult, len(results))}
	for _, r := range results {
		rs.put(r)
	}
	return rs
}

func (rs *ResultSet) put(r KeywordResult) {
	if rs.results == nil {
		rs.results = make(map[string]KeywordResult)
	}
	if _, ok := rs.results[r.Keyword]; !ok {
		rs.keys = append(rs.keys, r.Keyword)
	}
	rs.results[r.Keyword] = r
}

// Len returns the number of keywords.
func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.keys)
}

// Keywords returns the keywords in order.
func (rs *ResultSet) Keywords() []string {
	if rs == nil {
		return nil
	}
	return append([]string(nil), rs.keys...)
}

// Get returns the result for keyword.
func (rs *ResultSet) Get(keyword string) (KeywordResult, bool) {
	if rs == nil {
		return KeywordResult{}, false
	}
	r, ok := rs.results[keyword]
	return r, ok
}

// Results returns all results in order.
func (rs *ResultSet) Results() []KeywordResult {
	if rs == nil {
		return nil
	}
	out := make([]KeywordResult, 0, len(rs.keys))
	for _, k := range rs.keys {
		out = append(out, rs.results[k])
	}
	return out
}

// Failures returns keyword → error message for every errored keyword.
func (rs *ResultSet) Failures() map[string]string {
	out := make(map[string]string)
	for _, r := range rs.Results() {
		if r.Err != "" {
			out[r.Keyword] = r.Err
		}
	}
	return out
}

// InRequestOrder returns a new ResultSet holding exactly the requested keywords in
// request order. Requested keywords that are missing get a NoResultReturned error;
// unrequested keywords are dropped.
func (rs *ResultSet) InRequestOrder(requested []string) *ResultSet {
	out := NewResultSet()
	for _, k := range requested {
		if r, ok := rs.Get(k); ok {
			out.put(r)
		} else {
			out.put(Failed(k, NoResultReturned))
		}
	}
	return out
}

// wireResult is the backend representation of one keyword's result.
// Older backends send the series under "trend_data".
type wireResult struct {
	Trend          []TimePoint    `json:"trend,omitempty"`
	TrendData      []TimePoint    `json:"trend_data,omitempty"`
	Forecast       []float64      `json:"forecast,omitempty"`
	Sentiment      *Sentiment     `json:"sentiment,omitempty"`
	Summary        string         `json:"summary,omitempty"`
	RelatedQueries []RelatedQuery `json:"related_queries,omitempty"`
	Error          string         `json:"error,omitempty"`
}

func (w wireResult) toResult(keyword string) KeywordResult {
	if w.Error != "" {
		return Failed(keyword, w.Error)
	}
	trend := w.Trend
	if len(trend) == 0 {
		trend = w.TrendData
	}
	var sentiment *Sentiment
	if w.Sentiment != nil {
		s := w.Sentiment.Shares()
		sentiment = &s
	}
	return Succeeded(keyword, &KeywordData{
		Trend:          trend,
		Forecast:       w.Forecast,
		Sentiment:      sentiment,
		Summary:        w.Summary,
		RelatedQueries: w.RelatedQueries,
	})
}

func fromResult(r KeywordResult) wireResult {
	d, ok := r.OK()
	if !ok {
		return wireResult{Error: r.Err}
	}
	return wireResult{
		Trend:          d.Trend,
		Forecast:       d.Forecast,
		Sentiment:      d.Sentiment,
		Summary:        d.Summary,
		RelatedQueries: d.RelatedQueries,
	}
}

// Shares returns the sentiment as shares in [0,1]. Values given as percentages
// (summing to more than 1.5) are divided by 100.
func (s Sentiment) Shares() Sentiment {
	if s.Positive+s.Neutral+s.Negative > 1.5 {
		return Sentiment{Positive: s.Positive / 100, Neutral: s.Neutral / 100, Negative: s.Negative / 100}
	}
	return s
}

// MarshalJSON encodes the set as a JSON object in keyword order.
func (rs *ResultSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range rs.Keywords() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(fromResult(rs.results[k]))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a backend response object, keeping the document order of keys.
// A null value is treated as a missing result.
func (rs *ResultSet) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("result set: expected JSON object, got %v", tok)
	}
	*rs = ResultSet{results: make(map[string]KeywordResult)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		keyword, ok := tok.(string)
		if !ok {
			return fmt.Errorf("result set: unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("result for %q: %w", keyword, err)
		}
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			rs.put(Failed(keyword, NoResultReturned))
			continue
		}
		var w wireResult
		if err := json.Unmarshal(raw, &w); err != nil {
			return fmt.Errorf("result for %q: %w", keyword, err)
		}
		rs.put(w.toResult(keyword))
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
