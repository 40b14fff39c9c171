// Package trend prepares keyword trend series for plotting: windowing, forecast stitching,
// future date labels, and the multi-keyword dataset with stable colors.
package trend

import "github.com/hyperjump/trendlens/internal/models"

// Normalized is the trailing slice of a trend series split into labels and values.
type Normalized struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Len returns the number of points.
func (n Normalized) Len() int {
	return len(n.Values)
}

// Last returns the last label, or "" when empty.
func (n Normalized) Last() string {
	if len(n.Labels) == 0 {
		return ""
	}
	return n.Labels[len(n.Labels)-1]
}

// Tail returns the last min(months, len(points)) points, preserving order.
func Tail(points []models.TimePoint, months int) []models.TimePoint {
	if months <= 0 {
		return nil
	}
	start := len(points) - months
	if start < 0 {
		start = 0
	}
	return points[start:]
}

// Normalize keeps the trailing months points and splits them into labels and values.
// Dates are passed through verbatim. Empty input yields an empty result.
func Normalize(points []models.TimePoint, months int) Normalized {
	tail := Tail(points, months)
	n := Normalized{
		Labels: make([]string, len(tail)),
		Values: make([]float64, len(tail)),
	}
	for i, p := range tail {
		n.Labels[i] = p.Date
		n.Values[i] = p.Value
	}
	return n
}
