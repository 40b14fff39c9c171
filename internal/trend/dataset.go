package trend

import (
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/trendlens/internal/models"
)

// Exclusion reasons for keywords that produce no series.
const (
	ReasonNoTrendData = "no trend data"
)

// ErrUnorderedDates marks a trend whose dates are not strictly increasing.
var ErrUnorderedDates = errors.New("dates not strictly increasing")

// Series is one keyword's chart-ready lines with its display color.
type Series struct {
	Keyword    string   `json:"keyword"`
	Index      int      `json:"index"`
	Hue        int      `json:"hue"`
	Color      string   `json:"color"`
	Hex        string   `json:"hex"`
	Labels     []string `json:"labels"`
	Historical []Value  `json:"historical"`
	Forecast   []Value  `json:"forecast"`
}

// Exclusion records a keyword left out of the dataset and why.
type Exclusion struct {
	Keyword string `json:"keyword"`
	Reason  string `json:"reason"`
}

// Dataset is the multi-keyword chart input: a shared label axis and one series per
// plottable keyword, in request order.
type Dataset struct {
	Window   models.Window `json:"window"`
	Labels   []string      `json:"labels"`
	Series   []Series      `json:"series"`
	Excluded []Exclusion   `json:"excluded,omitempty"`
}

// Empty reports whether no keyword produced a series.
func (d *Dataset) Empty() bool {
	return d == nil || len(d.Series) == 0
}

// Find returns the series for keyword.
func (d *Dataset) Find(keyword string) (Series, bool) {
	if d == nil {
		return Series{}, false
	}
	for _, s := range d.Series {
		if s.Keyword == keyword {
			return s, true
		}
	}
	return Series{}, false
}

// Build turns a result set into a dataset for window w.
//
// Errored keywords, keywords with an empty trend and keywords whose dates do not parse or
// are not strictly increasing are listed in Excluded; they still
// occupy their index so the remaining colors do not shift. The shared axis is the first
// plotted keyword's labels followed by its future labels. When every keyword is excluded
// the dataset is returned together with models.ErrEmptyDataset.
func Build(rs *models.ResultSet, w models.Window) (*Dataset, error) {
	if rs == nil {
		return nil, models.ErrNoResults
	}
	if !w.Valid() {
		return nil, fmt.Errorf("%w: %d", models.ErrInvalidWindow, int(w))
	}
	ds := &Dataset{Window: w, Labels: []string{}, Series: []Series{}}
	for i, r := range rs.Results() {
		data, ok := r.OK()
		if !ok {
			ds.Excluded = append(ds.Excluded, Exclusion{Keyword: r.Keyword, Reason: r.Err})
			continue
		}
		if len(data.Trend) == 0 {
			ds.Excluded = append(ds.Excluded, Exclusion{Keyword: r.Keyword, Reason: ReasonNoTrendData})
			continue
		}
		s, err := buildSeries(r.Keyword, i, data, w)
		if err != nil {
			ds.Excluded = append(ds.Excluded, Exclusion{Keyword: r.Keyword, Reason: err.Error()})
			continue
		}
		if len(ds.Series) == 0 {
			ds.Labels = append([]string(nil), s.Labels...)
		}
		ds.Series = append(ds.Series, s)
	}
	if ds.Empty() {
		return ds, models.ErrEmptyDataset
	}
	return ds, nil
}

// CheckDates verifies that every date parses and that dates are strictly increasing.
func CheckDates(points []models.TimePoint) error {
	var prev time.Time
	for i, p := range points {
		t, err := ParseDate(p.Date)
		if err != nil {
			return err
		}
		if i > 0 && !t.After(prev) {
			return fmt.Errorf("%w: %q after %q", ErrUnorderedDates, p.Date, points[i-1].Date)
		}
		prev = t
	}
	return nil
}

func buildSeries(keyword string, index int, data *models.KeywordData, w models.Window) (Series, error) {
	if err := CheckDates(data.Trend); err != nil {
		return Series{}, err
	}
	norm := Normalize(data.Trend, w.Months())
	future, err := FutureLabels(norm.Last(), len(data.Forecast))
	if err != nil {
		return Series{}, err
	}
	plot := Stitch(norm.Values, data.Forecast)
	hue := Hue(index)
	return Series{
		Keyword:    keyword,
		Index:      index,
		Hue:        hue,
		Color:      Color(hue),
		Hex:        Hex(hue),
		Labels:     append(norm.Labels, future...),
		Historical: plot.Historical,
		Forecast:   plot.Forecast,
	}, nil
}
