// Package export projects trend results into downloadable forms: per-keyword CSV,
// an XLSX workbook, and a PNG raster of the trend chart for the PDF report.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/hyperjump/trendlens/internal/models"
	"github.com/hyperjump/trendlens/internal/trend"
	"github.com/hyperjump/trendlens/pkg/utils"
)

// ErrKeywordFailed is returned when exporting a keyword whose analysis failed.
var ErrKeywordFailed = errors.New("keyword has no data")

// CSVHeader is the first row of every CSV export.
var CSVHeader = []string{"Date", "Value"}

// Table is one keyword's CSV projection.
type Table struct {
	Keyword  string
	Filename string
	Rows     [][]string
}

// ToCSVRows returns the header followed by one row per point of the trailing window,
// using the same window policy as the chart. An empty trend yields only the header.
func ToCSVRows(keyword string, points []models.TimePoint, w models.Window) Table {
	tail := trend.Tail(points, w.Months())
	rows := make([][]string, 0, len(tail)+1)
	rows = append(rows, append([]string(nil), CSVHeader...))
	for _, p := range tail {
		rows = append(rows, []string{p.Date, strconv.FormatFloat(p.Value, 'f', -1, 64)})
	}
	return Table{Keyword: keyword, Filename: CSVFilename(keyword), Rows: rows}
}

// KeywordTable looks up keyword in rs and returns its CSV projection.
func KeywordTable(rs *models.ResultSet, keyword string, w models.Window) (Table, error) {
	if rs == nil {
		return Table{}, models.ErrNoResults
	}
	if !w.Valid() {
		return Table{}, fmt.Errorf("%w: %d", models.ErrInvalidWindow, int(w))
	}
	res, ok := rs.Get(keyword)
	if !ok {
		return Table{}, fmt.Errorf("%w: %q", models.ErrUnknownKeyword, keyword)
	}
	data, ok := res.OK()
	if !ok {
		return Table{}, fmt.Errorf("%w: %q: %s", ErrKeywordFailed, keyword, res.Err)
	}
	return ToCSVRows(keyword, data.Trend, w), nil
}

// WriteCSV writes the table rows as CSV.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// CSVFilename returns the download name for keyword's CSV.
func CSVFilename(keyword string) string {
	return utils.SafeFilename(keyword) + "_trend.csv"
}
