package backend

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/trendlens/internal/models"
	"github.com/hyperjump/trendlens/pkg/utils"
)

type analyzeRequest struct {
	Keywords []string `json:"keywords"`
	Keyword  string   `json:"keyword"`
}

type wireSentiment struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// wireResult uses the service's legacy field names: the series under "trend_data" and
// sentiment as whole percentages.
type wireResult struct {
	TrendData      []models.TimePoint    `json:"trend_data,omitempty"`
	Forecast       []float64             `json:"forecast,omitempty"`
	Sentiment      *wireSentiment        `json:"sentiment,omitempty"`
	Summary        string                `json:"summary,omitempty"`
	RelatedQueries []models.RelatedQuery `json:"related_queries,omitempty"`
	Error          string                `json:"error,omitempty"`
}

func toWire(r models.KeywordResult) wireResult {
	d, ok := r.OK()
	if !ok {
		return wireResult{Error: r.Err}
	}
	w := wireResult{
		TrendData:      d.Trend,
		Forecast:       d.Forecast,
		Summary:        d.Summary,
		RelatedQueries: d.RelatedQueries,
	}
	if d.Sentiment != nil {
		w.Sentiment = &wireSentiment{
			Positive: utils.Percent(d.Sentiment.Positive),
			Neutral:  utils.Percent(d.Sentiment.Neutral),
			Negative: utils.Percent(d.Sentiment.Negative),
		}
	}
	return w
}

// Routes mounts POST /analyze on r.
func (g *Generator) Routes(r chi.Router) {
	r.Post("/analyze", g.handleAnalyze)
}

// Handler returns a standalone handler serving POST /analyze.
func (g *Generator) Handler() http.Handler {
	r := chi.NewRouter()
	g.Routes(r)
	return r
}

func (g *Generator) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.Keyword != "" {
		req.Keywords = append(req.Keywords, req.Keyword)
	}
	rs, err := g.Analyze(r.Context(), req.Keywords)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, models.ErrNoKeywords) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	out := make(map[string]wireResult, rs.Len())
	for _, res := range rs.Results() {
		out[res.Keyword] = toWire(res)
	}
	g.logger.Info("served analysis", zap.Strings("keywords", rs.Keywords()))
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
