package trend

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/trendlens/internal/models"
)

func monthly(start string, values ...float64) []models.TimePoint {
	t, err := time.Parse(DateLayout, start)
	if err != nil {
		panic(err)
	}
	out := make([]models.TimePoint, len(values))
	for i, v := range values {
		out[i] = models.TimePoint{Date: AddMonths(t, i).Format(DateLayout), Value: v}
	}
	return out
}

func vals(vs ...interface{}) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		switch x := v.(type) {
		case nil:
			out[i] = Null
		case int:
			out[i] = Some(float64(x))
		case float64:
			out[i] = Some(x)
		}
	}
	return out
}

func TestNormalize(t *testing.T) {
	pts := monthly("2023-01-01", 1, 2, 3, 4, 5)

	t.Run("keeps trailing window", func(t *testing.T) {
		n := Normalize(pts, 3)
		assert.Equal(t, []string{"2023-03-01", "2023-04-01", "2023-05-01"}, n.Labels)
		assert.Equal(t, []float64{3, 4, 5}, n.Values)
	})
	t.Run("short series kept whole", func(t *testing.T) {
		n := Normalize(pts, 12)
		assert.Equal(t, 5, n.Len())
		assert.Equal(t, "2023-01-01", n.Labels[0])
	})
	t.Run("empty input", func(t *testing.T) {
		n := Normalize(nil, 12)
		assert.Equal(t, 0, n.Len())
		assert.Equal(t, "", n.Last())
	})
	t.Run("length is min of window and input", func(t *testing.T) {
		for w := 1; w <= 8; w++ {
			n := Normalize(pts, w)
			want := w
			if want > len(pts) {
				want = len(pts)
			}
			assert.Equal(t, want, n.Len(), "window %d", w)
			assert.Equal(t, pts[len(pts)-1].Date, n.Last())
		}
	})
}

func TestStitch(t *testing.T) {
	t.Run("three points two forecasts", func(t *testing.T) {
		p := Stitch([]float64{10, 20, 30}, []float64{40, 50})
		assert.Equal(t, vals(10, 20, 30, nil, nil), p.Historical)
		assert.Equal(t, vals(nil, nil, 30, 40, 50), p.Forecast)
	})
	t.Run("no forecast keeps only the join", func(t *testing.T) {
		p := Stitch([]float64{1, 2}, nil)
		assert.Equal(t, vals(1, 2), p.Historical)
		assert.Equal(t, vals(nil, 2), p.Forecast)
	})
	t.Run("no history", func(t *testing.T) {
		p := Stitch(nil, []float64{7, 8})
		assert.Equal(t, vals(nil, nil), p.Historical)
		assert.Equal(t, vals(7, 8), p.Forecast)
	})
	t.Run("join continuity", func(t *testing.T) {
		for h := 1; h <= 5; h++ {
			for f := 0; f <= 3; f++ {
				hist := make([]float64, h)
				for i := range hist {
					hist[i] = float64(i * 3)
				}
				fc := make([]float64, f)
				p := Stitch(hist, fc)
				require.Len(t, p.Historical, h+f)
				require.Len(t, p.Forecast, h+f)
				assert.Equal(t, p.Historical[h-1], p.Forecast[h-1])
				for i := 0; i < h-1; i++ {
					assert.False(t, p.Forecast[i].Valid)
				}
				for i := h; i < h+f; i++ {
					assert.False(t, p.Historical[i].Valid)
				}
			}
		}
	})
}

func TestFutureLabels(t *testing.T) {
	tests := []struct {
		last string
		n    int
		want []string
	}{
		{"2023-03-01", 2, []string{"2023-04-01", "2023-05-01"}},
		{"2023-11-15", 3, []string{"2023-12-15", "2024-01-15", "2024-02-15"}},
		{"2024-01-31", 3, []string{"2024-02-29", "2024-03-31", "2024-04-30"}},
		{"2023-01-31", 1, []string{"2023-02-28"}},
		{"2024-06", 1, []string{"2024-07-01"}},
		{"2024-06-01", 0, nil},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s+%d", tt.last, tt.n), func(t *testing.T) {
			got, err := FutureLabels(tt.last, tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := FutureLabels("not a date", 2)
	assert.Error(t, err)
}

func TestHueAndColor(t *testing.T) {
	assert.Equal(t, 200, Hue(0))
	assert.Equal(t, 260, Hue(1))
	assert.Equal(t, 320, Hue(2))
	assert.Equal(t, 20, Hue(3))
	assert.Equal(t, Hue(0), Hue(6))
	assert.Equal(t, "hsl(200, 70%, 50%)", Color(200))
	assert.Equal(t, "#269dd9", Hex(200))
}

func TestValueJSON(t *testing.T) {
	b, err := json.Marshal(vals(1.5, nil, 3))
	require.NoError(t, err)
	assert.JSONEq(t, `[1.5, null, 3]`, string(b))

	var back []Value
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, vals(1.5, nil, 3), back)
}

func TestBuild(t *testing.T) {
	rs := models.NewResultSet(
		models.Succeeded("a", &models.KeywordData{
			Trend:    monthly("2023-01-01", 10, 20, 30),
			Forecast: []float64{40, 50},
		}),
		models.Failed("b", "no data"),
		models.Succeeded("c", &models.KeywordData{Trend: monthly("2023-02-01", 1, 2)}),
		models.Succeeded("d", &models.KeywordData{}),
	)

	ds, err := Build(rs, models.Window1Y)
	require.NoError(t, err)
	require.Len(t, ds.Series, 2)

	a := ds.Series[0]
	assert.Equal(t, "a", a.Keyword)
	assert.Equal(t, vals(10, 20, 30, nil, nil), a.Historical)
	assert.Equal(t, vals(nil, nil, 30, 40, 50), a.Forecast)
	assert.Equal(t, []string{"2023-01-01", "2023-02-01", "2023-03-01", "2023-04-01", "2023-05-01"}, ds.Labels)
	assert.Equal(t, 200, a.Hue)

	c := ds.Series[1]
	assert.Equal(t, 2, c.Index)
	assert.Equal(t, Hue(2), c.Hue, "errored keyword keeps its color slot")

	assert.Equal(t, []Exclusion{
		{Keyword: "b", Reason: "no data"},
		{Keyword: "d", Reason: ReasonNoTrendData},
	}, ds.Excluded)

	again, err := Build(rs, models.Window1Y)
	require.NoError(t, err)
	assert.Equal(t, ds, again, "build is idempotent")
}

func TestBuild_MonthDates(t *testing.T) {
	rs := models.NewResultSet(
		models.Succeeded("A", &models.KeywordData{
			Trend: []models.TimePoint{
				{Date: "2023-01", Value: 10},
				{Date: "2023-02", Value: 20},
				{Date: "2023-03", Value: 30},
			},
			Forecast: []float64{40, 50},
		}),
		models.Failed("B", "backend error"),
	)

	ds, err := Build(rs, models.Window1Y)
	require.NoError(t, err)
	require.Len(t, ds.Series, 1)
	assert.Equal(t, []string{"2023-01", "2023-02", "2023-03", "2023-04-01", "2023-05-01"}, ds.Labels)

	a := ds.Series[0]
	assert.Equal(t, "A", a.Keyword)
	assert.Equal(t, vals(10, 20, 30, nil, nil), a.Historical)
	assert.Equal(t, vals(nil, nil, 30, 40, 50), a.Forecast)
	assert.Equal(t, "hsl(200, 70%, 50%)", a.Color)
	assert.Equal(t, []Exclusion{{Keyword: "B", Reason: "backend error"}}, ds.Excluded)
}

func TestBuild_UnorderedDatesExcluded(t *testing.T) {
	rs := models.NewResultSet(
		models.Succeeded("dup", &models.KeywordData{Trend: []models.TimePoint{
			{Date: "2024-01-01", Value: 1},
			{Date: "2024-01-01", Value: 2},
		}}),
		models.Succeeded("backwards", &models.KeywordData{Trend: []models.TimePoint{
			{Date: "2024-03-01", Value: 1},
			{Date: "2024-02-01", Value: 2},
		}}),
		models.Succeeded("mixed", &models.KeywordData{Trend: []models.TimePoint{
			{Date: "2024-01", Value: 1},
			{Date: "2024-01-01", Value: 2},
		}}),
		models.Succeeded("ok", &models.KeywordData{Trend: monthly("2024-01-01", 1, 2)}),
	)

	ds, err := Build(rs, models.Window1Y)
	require.NoError(t, err)
	require.Len(t, ds.Series, 1)
	assert.Equal(t, "ok", ds.Series[0].Keyword)
	assert.Equal(t, 3, ds.Series[0].Index)

	require.Len(t, ds.Excluded, 3)
	for i, want := range []string{"dup", "backwards", "mixed"} {
		assert.Equal(t, want, ds.Excluded[i].Keyword)
		assert.Contains(t, ds.Excluded[i].Reason, ErrUnorderedDates.Error())
	}

	err = CheckDates([]models.TimePoint{{Date: "2024-01-01"}, {Date: "later"}})
	assert.ErrorContains(t, err, "unparseable date")
	assert.NoError(t, CheckDates(monthly("2024-01-01", 1, 2, 3)))
	assert.NoError(t, CheckDates(nil))
}

func TestBuild_Window(t *testing.T) {
	rs := models.NewResultSet(models.Succeeded("k", &models.KeywordData{
		Trend: monthly("2020-01-01", make([]float64, 30)...),
	}))
	ds, err := Build(rs, models.Window6M)
	require.NoError(t, err)
	assert.Len(t, ds.Series[0].Historical, 6)
	assert.Len(t, ds.Labels, 6)

	_, err = Build(rs, models.Window(7))
	assert.ErrorIs(t, err, models.ErrInvalidWindow)
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(nil, models.Window1Y)
	assert.ErrorIs(t, err, models.ErrNoResults)

	ds, err := Build(models.NewResultSet(models.Failed("x", "boom")), models.Window1Y)
	assert.ErrorIs(t, err, models.ErrEmptyDataset)
	require.NotNil(t, ds)
	assert.True(t, ds.Empty())
	assert.Len(t, ds.Excluded, 1)
}

func TestBuild_BadDateExcluded(t *testing.T) {
	rs := models.NewResultSet(
		models.Succeeded("bad", &models.KeywordData{
			Trend:    []models.TimePoint{{Date: "soon", Value: 1}},
			Forecast: []float64{2},
		}),
		models.Succeeded("good", &models.KeywordData{Trend: monthly("2024-01-01", 1)}),
	)
	ds, err := Build(rs, models.Window1Y)
	require.NoError(t, err)
	require.Len(t, ds.Series, 1)
	assert.Equal(t, "good", ds.Series[0].Keyword)
	assert.Equal(t, "bad", ds.Excluded[0].Keyword)
}
