package export

import (
	"bytes"
	"context"
	"fmt"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/hyperjump/trendlens/internal/models"
	"github.com/hyperjump/trendlens/internal/trend"
)

const (
	defaultRasterWidth  = 1200
	defaultRasterHeight = 600
	maxTicks            = 12
)

// ChartRasterizer renders a region's dataset as a PNG line chart: solid lines for
// history, dashed lines for the forecast, one color per keyword.
type ChartRasterizer struct {
	Width  int
	Height int
}

// NewChartRasterizer returns a rasterizer producing images of the given size.
// Non-positive sizes fall back to 1200x600.
func NewChartRasterizer(width, height int) *ChartRasterizer {
	if width <= 0 {
		width = defaultRasterWidth
	}
	if height <= 0 {
		height = defaultRasterHeight
	}
	return &ChartRasterizer{Width: width, Height: height}
}

// Rasterize renders the region's dataset for window w.
func (c *ChartRasterizer) Rasterize(ctx context.Context, region Region, w models.Window) (Image, error) {
	ds, err := region.Source(ctx, w)
	if err != nil {
		return Image{}, err
	}
	if ds.Empty() {
		return Image{}, models.ErrEmptyDataset
	}
	data, err := c.Render(region.Title, ds)
	if err != nil {
		return Image{}, err
	}
	return Image{Data: data, ContentType: "image/png", Width: c.Width, Height: c.Height}, nil
}

// Render draws ds and returns PNG bytes.
func (c *ChartRasterizer) Render(title string, ds *trend.Dataset) ([]byte, error) {
	var series []chart.Series
	yMax, xMax := 100.0, float64(len(ds.Labels)-1)
	for _, s := range ds.Series {
		r, g, b := trend.RGB(s.Hue)
		col := drawing.Color{R: r, G: g, B: b, A: 255}
		if xs, ys := segment(s.Historical); len(xs) > 0 {
			series = append(series, chart.ContinuousSeries{
				Name:    s.Keyword,
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeColor: col, StrokeWidth: 2},
			})
			yMax, xMax = maxOf(yMax, ys), maxOf(xMax, xs)
		}
		if xs, ys := segment(s.Forecast); len(xs) > 0 {
			series = append(series, chart.ContinuousSeries{
				Name:    s.Keyword + " (forecast)",
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeColor: col, StrokeWidth: 2, StrokeDashArray: []float64{6, 4}},
			})
			yMax, xMax = maxOf(yMax, ys), maxOf(xMax, xs)
		}
	}
	if len(series) == 0 {
		return nil, models.ErrEmptyDataset
	}

	ch := chart.Chart{
		Title:      title,
		Width:      c.Width,
		Height:     c.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      xAxis(ds.Labels, xMax),
		YAxis:      chart.YAxis{Name: "Interest", Range: &chart.ContinuousRange{Min: 0, Max: yMax}},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}

// segment returns the present values with their indexes as X. A single point is
// widened to two X values, which go-chart needs to draw a series.
func segment(values []trend.Value) (xs, ys []float64) {
	for i, v := range values {
		if v.Valid {
			xs = append(xs, float64(i))
			ys = append(ys, v.Float)
		}
	}
	if len(xs) == 1 {
		xs = append(xs, xs[0]+0.01)
		ys = append(ys, ys[0])
	}
	return xs, ys
}

func xAxis(labels []string, xMax float64) chart.XAxis {
	if xMax < 1 {
		xMax = 1
	}
	axis := chart.XAxis{Name: "Date", Range: &chart.ContinuousRange{Min: 0, Max: xMax}}
	n := len(labels)
	if n == 0 {
		return axis
	}
	step := (n + maxTicks - 1) / maxTicks
	for i := 0; i < n; i += step {
		axis.Ticks = append(axis.Ticks, chart.Tick{Value: float64(i), Label: labels[i]})
	}
	return axis
}

func maxOf(cur float64, ys []float64) float64 {
	for _, y := range ys {
		if y > cur {
			cur = y
		}
	}
	return cur
}
