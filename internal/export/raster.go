package export

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/trendlens/internal/metrics"
	"github.com/hyperjump/trendlens/internal/models"
	"github.com/hyperjump/trendlens/internal/trend"
	"github.com/hyperjump/trendlens/pkg/utils"
)

// Report file names.
const (
	ReportFilename = "trendlens-report.pdf"
	RasterFilename = "trendlens-report.png"
)

// RegionTrendChart is the handle of the multi-keyword trend chart.
const RegionTrendChart = "trend-chart"

// ErrUnknownRegion is reported when a handle does not resolve to a registered region.
var ErrUnknownRegion = errors.New("region not found")

// Region is a renderable part of the results view. Source supplies its current content.
type Region struct {
	Handle string
	Title  string
	Source func(ctx context.Context, w models.Window) (*trend.Dataset, error)
}

// ResultsRegion returns a region that builds its dataset from whatever results
// returns at export time.
func ResultsRegion(handle, title string, results func() (*models.ResultSet, error)) Region {
	return Region{
		Handle: handle,
		Title:  title,
		Source: func(_ context.Context, w models.Window) (*trend.Dataset, error) {
			rs, err := results()
			if err != nil {
				return nil, err
			}
			return trend.Build(rs, w)
		},
	}
}

// Regions maps handles to regions. It is safe for concurrent use.
type Regions struct {
	mu sync.RWMutex
	m  map[string]Region
}

// NewRegions returns an empty registry.
func NewRegions() *Regions {
	return &Regions{m: make(map[string]Region)}
}

// Register adds or replaces r.
func (r *Regions) Register(region Region) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[region.Handle] = region
}

// Resolve returns the region for handle.
func (r *Regions) Resolve(handle string) (Region, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	region, ok := r.m[handle]
	return region, ok && region.Source != nil
}

// Handles returns the registered handles, sorted.
func (r *Regions) Handles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.m))
	for h := range r.m {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// Rasterizer renders a region to an image.
type Rasterizer interface {
	Rasterize(ctx context.Context, region Region, w models.Window) (Image, error)
}

// Image is an encoded raster.
type Image struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// RasterReport describes one raster export attempt. Err is set instead of failing
// when the export could not be produced.
type RasterReport struct {
	ID          string        `json:"id"`
	Handle      string        `json:"region"`
	Window      models.Window `json:"window"`
	Filename    string        `json:"filename"`
	RasterName  string        `json:"raster_filename"`
	ContentType string        `json:"content_type,omitempty"`
	Width       int           `json:"width,omitempty"`
	Height      int           `json:"height,omitempty"`
	Bytes       int           `json:"bytes"`
	Err         string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`

	Image []byte `json:"-"`
}

// OK reports whether the report carries an image.
func (r RasterReport) OK() bool {
	return r.Err == "" && len(r.Image) > 0
}

// Exporter triggers raster exports of registered regions.
type Exporter struct {
	regions    *Regions
	rasterizer Rasterizer
	logger     *zap.Logger
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ExporterOption {
	return func(e *Exporter) {
		e.logger = utils.OrNop(l)
	}
}

// NewExporter returns an Exporter.
func NewExporter(regions *Regions, rasterizer Rasterizer, opts ...ExporterOption) *Exporter {
	e := &Exporter{regions: regions, rasterizer: rasterizer, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Regions returns the handles that can be exported.
func (e *Exporter) Regions() []string {
	return e.regions.Handles()
}

// RasterOption adjusts a single raster export.
type RasterOption func(*rasterRequest)

type rasterRequest struct {
	window models.Window
}

// WithWindow selects the trend window rendered into the raster.
func WithWindow(w models.Window) RasterOption {
	return func(r *rasterRequest) {
		r.window = w
	}
}

// TriggerRasterExport renders the region named by handle. It reads application state
// only through the region source, so repeated calls are safe. Failures are logged and
// returned in the report rather than as an error.
func (e *Exporter) TriggerRasterExport(ctx context.Context, handle string, opts ...RasterOption) RasterReport {
	req := rasterRequest{window: models.DefaultWindow}
	for _, opt := range opts {
		opt(&req)
	}
	report := RasterReport{
		ID:         uuid.NewString(),
		Handle:     handle,
		Window:     req.window,
		Filename:   ReportFilename,
		RasterName: RasterFilename,
		CreatedAt:  time.Now(),
	}
	fail := func(err error) RasterReport {
		report.Err = err.Error()
		metrics.RecordExport("raster", "error")
		e.logger.Warn("raster export failed", zap.String("region", handle), zap.Error(err))
		return report
	}

	region, ok := e.regions.Resolve(handle)
	if !ok {
		return fail(fmt.Errorf("%w: %q", ErrUnknownRegion, handle))
	}
	if !req.window.Valid() {
		return fail(fmt.Errorf("%w: %d", models.ErrInvalidWindow, int(req.window)))
	}
	img, err := e.rasterizer.Rasterize(ctx, region, req.window)
	if err != nil {
		return fail(err)
	}
	report.Image = img.Data
	report.Bytes = len(img.Data)
	report.ContentType = img.ContentType
	report.Width = img.Width
	report.Height = img.Height
	metrics.RecordExport("raster", "ok")
	e.logger.Info("raster exported", zap.String("region", handle), zap.String("id", report.ID), zap.Int("bytes", report.Bytes))
	return report
}
