package models

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
)

func TestResultSet_UnmarshalPreservesOrder(t *testing.T) {
	body := `{
		"zeta": {"trend": [{"date": "2024-01-01", "value": 10}], "forecast": [11, 12, 13]},
		"alpha": {"error": "no data"},
		"mid": {"trend_data": [{"date": "2024-01-01", "value": 5}], "summary": "hi"}
	}`
	var rs ResultSet
	if err := json.Unmarshal([]byte(body), &rs); err != nil {
		t.Fatal(err)
	}
	if got := rs.Keywords(); !reflect.DeepEqual(got, []string{"zeta", "alpha", "mid"}) {
		t.Fatalf("order = %v", got)
	}
	a, _ := rs.Get("alpha")
	if a.Err != "no data" {
		t.Errorf("alpha err = %q", a.Err)
	}
	m, _ := rs.Get("mid")
	d, ok := m.OK()
	if !ok || len(d.Trend) != 1 || d.Summary != "hi" {
		t.Errorf("trend_data not read: %+v", m)
	}
}

func TestResultSet_NullIsMissing(t *testing.T) {
	var rs ResultSet
	if err := json.Unmarshal([]byte(`{"a": null}`), &rs); err != nil {
		t.Fatal(err)
	}
	r, _ := rs.Get("a")
	if r.Err != NoResultReturned {
		t.Errorf("got %+v", r)
	}
}

func TestResultSet_RejectsNonObject(t *testing.T) {
	var rs ResultSet
	if err := json.Unmarshal([]byte(`[1,2]`), &rs); err == nil {
		t.Error("expected error for array body")
	}
}

func TestResultSet_InRequestOrder(t *testing.T) {
	rs := NewResultSet(
		Succeeded("b", nil),
		Succeeded("extra", nil),
		Succeeded("a", nil),
	)
	got := rs.InRequestOrder([]string{"a", "b", "c"})
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got.Keywords(), want) {
		t.Fatalf("order = %v, want %v", got.Keywords(), want)
	}
	c, _ := got.Get("c")
	if c.Err != NoResultReturned {
		t.Errorf("missing keyword err = %q", c.Err)
	}
	if len(got.Failures()) != 1 {
		t.Errorf("failures = %v", got.Failures())
	}
	if rs.Len() != 3 {
		t.Error("source set must not change")
	}
}

func TestResultSet_MarshalRoundTripKeepsOrder(t *testing.T) {
	rs := NewResultSet(
		Succeeded("z", &KeywordData{Trend: []TimePoint{{Date: "2024-01-01", Value: 1}}}),
		Failed("a", "bad"),
	)
	b, err := json.Marshal(rs)
	if err != nil {
		t.Fatal(err)
	}
	var back ResultSet
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back.Keywords(), []string{"z", "a"}) {
		t.Errorf("order = %v", back.Keywords())
	}
}

func TestSentiment_Shares(t *testing.T) {
	got := Sentiment{Positive: 60, Neutral: 30, Negative: 10}.Shares()
	if math.Abs(got.Positive-0.6) > 1e-9 || math.Abs(got.Negative-0.1) > 1e-9 {
		t.Errorf("got %+v", got)
	}
	s := Sentiment{Positive: 0.5, Neutral: 0.25, Negative: 0.25}
	if s.Shares() != s {
		t.Error("shares must be unchanged")
	}
}
