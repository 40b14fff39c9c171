// Package analysis fetches keyword analyses from the backend, with caching, request
// coalescing, and a persistent result log layered around the HTTP client.
package analysis

import (
	"context"

	"github.com/hyperjump/trendlens/internal/models"
)

// Analyzer returns analysis results for a non-empty list of keywords. On success the
// result set holds exactly the requested keywords in request order. Failures of the
// request as a whole are reported as *models.TransportError.
type Analyzer interface {
	Analyze(ctx context.Context, keywords []string) (*models.ResultSet, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, keywords []string) (*models.ResultSet, error)

// Analyze calls f.
func (f AnalyzerFunc) Analyze(ctx context.Context, keywords []string) (*models.ResultSet, error) {
	return f(ctx, keywords)
}

// Request is the body of POST /analyze.
type Request struct {
	Keywords []string `json:"keywords"`
}
