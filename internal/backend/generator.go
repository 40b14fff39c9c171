// Package backend is a deterministic stand-in for the analysis service. It serves
// POST /analyze in the service's wire format and can also be called in-process.
package backend

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/trendlens/internal/models"
	"github.com/hyperjump/trendlens/internal/trend"
	"github.com/hyperjump/trendlens/pkg/utils"
)

const (
	// DefaultMonths is the length of generated series.
	DefaultMonths = 60
	// DefaultHorizon is the number of forecast points.
	DefaultHorizon = 3

	maxKeywordLen = 100
	fitPoints     = 6
)

// Per-keyword error messages.
const (
	ErrMsgNoData  = "no data"
	ErrMsgTooLong = "keyword too long"
)

// Generator produces synthetic but repeatable analyses: the same keyword and clock
// always give the same series, forecast, sentiment, and related queries.
type Generator struct {
	months      int
	horizon     int
	now         func() time.Time
	unavailable map[string]bool
	logger      *zap.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithMonths sets the generated history length.
func WithMonths(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.months = n
		}
	}
}

// WithHorizon sets the forecast length. Zero disables forecasts.
func WithHorizon(n int) Option {
	return func(g *Generator) {
		if n >= 0 {
			g.horizon = n
		}
	}
}

// WithClock sets the clock that anchors the last generated month.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithUnavailable marks keywords (case-insensitive) that fail with "no data".
func WithUnavailable(keywords ...string) Option {
	return func(g *Generator) {
		for _, k := range keywords {
			g.unavailable[strings.ToLower(strings.TrimSpace(k))] = true
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		g.logger = utils.OrNop(l)
	}
}

// NewGenerator returns a Generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		months:      DefaultMonths,
		horizon:     DefaultHorizon,
		now:         time.Now,
		unavailable: make(map[string]bool),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Analyze returns a result for every keyword in request order.
func (g *Generator) Analyze(ctx context.Context, keywords []string) (*models.ResultSet, error) {
	keywords, err := models.NormalizeKeywords(keywords)
	if err != nil {
		return nil, err
	}
	results := make([]models.KeywordResult, 0, len(keywords))
	for _, k := range keywords {
		if err := ctx.Err(); err != nil {
			return nil, &models.TransportError{Err: err}
		}
		results = append(results, g.Result(k))
	}
	return models.NewResultSet(results...), nil
}

// Result generates the analysis for one keyword.
func (g *Generator) Result(keyword string) models.KeywordResult {
	switch {
	case len(keyword) > maxKeywordLen:
		return models.Failed(keyword, ErrMsgTooLong)
	case g.unavailable[strings.ToLower(keyword)]:
		return models.Failed(keyword, ErrMsgNoData)
	}
	seed := hashKeyword(keyword)
	rng := rand.New(rand.NewSource(int64(seed)))

	points := g.series(rng)
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	last := points[len(points)-1].Value
	sentiment := sentimentFor(rng)

	g.logger.Debug("generated analysis", zap.String("keyword", keyword), zap.Int("points", len(points)))
	return models.Succeeded(keyword, &models.KeywordData{
		Trend:          points,
		Forecast:       Forecast(values, g.horizon),
		Sentiment:      &sentiment,
		Summary:        fmt.Sprintf("The trend for '%s' shows %d months of data. Latest interest value is %d.", keyword, len(points), int(last)),
		RelatedQueries: relatedFor(keyword, rng),
	})
}

func hashKeyword(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToLower(s)))
	return h.Sum64()
}

// series walks from a random start in [10,100], one point per month, ending at the
// current month.
func (g *Generator) series(rng *rand.Rand) []models.TimePoint {
	now := g.now().UTC()
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	value := float64(10 + rng.Intn(91))
	drift := rng.Float64()*2 - 1
	points := make([]models.TimePoint, g.months)
	for i := range points {
		date := trend.AddMonths(end, i-(g.months-1))
		points[i] = models.TimePoint{Date: date.Format(trend.DateLayout), Value: value}
		value = math.Round(utils.Clamp(value+drift+rng.NormFloat64()*6, 0, 100))
	}
	return points
}

// Forecast extrapolates a least-squares line through the last few values, clamped to [0,100].
func Forecast(values []float64, horizon int) []float64 {
	if horizon <= 0 || len(values) == 0 {
		return nil
	}
	tail := values
	if len(tail) > fitPoints {
		tail = tail[len(tail)-fitPoints:]
	}
	n := float64(len(tail))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range tail {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	slope := 0.0
	if d := n*sumXX - sumX*sumX; d != 0 {
		slope = (n*sumXY - sumX*sumY) / d
	}
	intercept := (sumY - slope*sumX) / n
	out := make([]float64, horizon)
	for k := range out {
		x := n - 1 + float64(k+1)
		out[k] = math.Round(utils.Clamp(intercept+slope*x, 0, 100)*10) / 10
	}
	return out
}

func sentimentFor(rng *rand.Rand) models.Sentiment {
	pos := 20 + rng.Intn(50)
	neg := rng.Intn(20)
	neu := 100 - pos - neg
	return models.Sentiment{
		Positive: float64(pos) / 100,
		Neutral:  float64(neu) / 100,
		Negative: float64(neg) / 100,
	}
}

func relatedFor(keyword string, rng *rand.Rand) []models.RelatedQuery {
	templates := []string{"%s news", "%s price", "what is %s"}
	out := make([]models.RelatedQuery, len(templates))
	for i, tmpl := range templates {
		out[i] = models.RelatedQuery{Query: fmt.Sprintf(tmpl, keyword), Value: float64(50 + rng.Intn(451))}
	}
	return out
}
