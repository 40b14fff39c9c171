package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/trendlens/internal/analysis"
	"github.com/hyperjump/trendlens/internal/models"
)

func fixedClock() time.Time {
	return time.Date(2024, time.March, 17, 12, 0, 0, 0, time.UTC)
}

func TestGenerator_Deterministic(t *testing.T) {
	g := NewGenerator(WithClock(fixedClock))
	a := g.Result("bitcoin")
	b := g.Result("bitcoin")
	assert.Equal(t, a, b)

	data, ok := a.OK()
	require.True(t, ok)
	require.Len(t, data.Trend, DefaultMonths)
	assert.Equal(t, "2024-03-01", data.Trend[len(data.Trend)-1].Date)
	assert.Equal(t, "2019-04-01", data.Trend[0].Date)
	assert.Len(t, data.Forecast, DefaultHorizon)
	for _, p := range data.Trend {
		assert.GreaterOrEqual(t, p.Value, 0.0)
		assert.LessOrEqual(t, p.Value, 100.0)
	}
	s := data.Sentiment
	assert.InDelta(t, 1.0, s.Positive+s.Neutral+s.Negative, 1e-9)
	assert.True(t, strings.HasPrefix(data.Summary, "The trend for 'bitcoin' shows 60 months of data."))
	assert.Equal(t, "bitcoin news", data.RelatedQueries[0].Query)
}

func TestGenerator_Errors(t *testing.T) {
	g := NewGenerator(WithUnavailable("Nothing"))
	assert.Equal(t, ErrMsgNoData, g.Result("nothing").Err)
	assert.Equal(t, ErrMsgTooLong, g.Result(strings.Repeat("x", 101)).Err)

	_, err := g.Analyze(context.Background(), nil)
	assert.ErrorIs(t, err, models.ErrNoKeywords)
}

func TestForecast(t *testing.T) {
	assert.Equal(t, []float64{40, 50}, Forecast([]float64{10, 20, 30}, 2))
	assert.Equal(t, []float64{5, 5, 5}, Forecast([]float64{5}, 3))
	assert.Equal(t, []float64{100}, Forecast([]float64{80, 90, 100}, 1))
	assert.Nil(t, Forecast([]float64{1, 2}, 0))
	assert.Nil(t, Forecast(nil, 3))
}

func TestHandler_ServesLegacyWireFormat(t *testing.T) {
	g := NewGenerator(WithClock(fixedClock), WithMonths(12), WithUnavailable("gone"))
	srv := httptest.NewServer(g.Handler())
	defer srv.Close()

	body, _ := json.Marshal(map[string][]string{"keywords": {"go", "gone"}})
	resp, err := http.Post(srv.URL+"/analyze", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var raw map[string]map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.Contains(t, raw["go"], "trend_data")
	assert.Contains(t, raw["gone"], "error")
}

func TestHandler_WithClient(t *testing.T) {
	g := NewGenerator(WithClock(fixedClock))
	srv := httptest.NewServer(g.Handler())
	defer srv.Close()

	rs, err := analysis.NewClient(srv.URL).Analyze(context.Background(), []string{"zeta", "alpha"})
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha"}, rs.Keywords())

	res, _ := rs.Get("zeta")
	data, ok := res.OK()
	require.True(t, ok)
	want, _ := g.Result("zeta").OK()
	assert.Equal(t, want.Trend, data.Trend)
	assert.InDelta(t, want.Sentiment.Positive, data.Sentiment.Positive, 1e-9)
}

func TestHandler_BadRequests(t *testing.T) {
	h := NewGenerator().Handler()
	for _, body := range []string{`{`, `{"keywords": [" "]}`} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}
