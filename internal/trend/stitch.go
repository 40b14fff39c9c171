package trend

import (
	"fmt"
	"time"
)

// DateLayout is the label format for generated dates.
const DateLayout = "2006-01-02"

var dateLayouts = []string{DateLayout, "2006-01", time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

// Plot is a pair of equal-length lines: observed history and forecast.
// Where both are present they meet at the last historical index.
type Plot struct {
	Historical []Value `json:"historical"`
	Forecast   []Value `json:"forecast"`
}

// Stitch builds the historical and forecast lines, each of length len(hist)+len(forecast).
// The forecast line repeats the last historical value at the join so the two lines connect.
// With no history there is no join point and the forecast values start at index 0.
func Stitch(hist, forecast []float64) Plot {
	h, f := len(hist), len(forecast)
	p := Plot{Historical: nulls(h + f), Forecast: nulls(h + f)}
	for i, v := range hist {
		p.Historical[i] = Some(v)
	}
	if h == 0 {
		for i, v := range forecast {
			p.Forecast[i] = Some(v)
		}
		return p
	}
	p.Forecast[h-1] = Some(hist[h-1])
	for i, v := range forecast {
		p.Forecast[h+i] = Some(v)
	}
	return p
}

// ParseDate parses a trend date. A bare YYYY-MM is read as the first of the month.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// AddMonths adds n calendar months to t, keeping the day of month and clamping it to the
// last day of the target month (Jan 31 + 1 month = Feb 28 or 29).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := daysIn(first); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

func daysIn(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}

// FutureLabels returns n labels, one calendar month apart, following last.
// Each label is computed from last directly, so clamping never accumulates.
func FutureLabels(last string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	t, err := ParseDate(last)
	if err != nil {
		return nil, err
	}
	labels := make([]string, n)
	for k := 1; k <= n; k++ {
		labels[k-1] = AddMonths(t, k).Format(DateLayout)
	}
	return labels, nil
}
