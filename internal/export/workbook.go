package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/trendlens/internal/models"
	"github.com/hyperjump/trendlens/internal/trend"
)

// WorkbookFilename is the download name of the XLSX export.
const WorkbookFilename = "trendlens-report.xlsx"

const (
	summarySheet = "Summary"
	maxSheetName = 31
	sheetNameBad = `[]:*?/\`
	kindHistory  = "history"
	kindForecast = "forecast"
)

// WriteWorkbook writes an XLSX workbook: a Summary sheet listing every keyword with its
// sentiment, summary, and error, then one sheet per keyword with data holding the window's
// history rows followed by the forecast rows.
func WriteWorkbook(w io.Writer, rs *models.ResultSet, win models.Window) error {
	if rs == nil {
		return models.ErrNoResults
	}
	if !win.Valid() {
		return fmt.Errorf("%w: %d", models.ErrInvalidWindow, int(win))
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header := []interface{}{"Keyword", "Positive", "Neutral", "Negative", "Summary", "Error"}
	if err := f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return err
	}

	used := map[string]bool{strings.ToLower(summarySheet): true}
	for i, res := range rs.Results() {
		row := []interface{}{res.Keyword, "", "", "", "", res.Err}
		data, ok := res.OK()
		if ok {
			s := data.SentimentOrZero()
			row = []interface{}{res.Keyword, s.Positive, s.Neutral, s.Negative, data.SummaryOrDefault(), ""}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
		if !ok || len(data.Trend) == 0 {
			continue
		}
		if err := writeKeywordSheet(f, uniqueSheetName(res.Keyword, used), data, win); err != nil {
			return fmt.Errorf("sheet for %q: %w", res.Keyword, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeKeywordSheet(f *excelize.File, name string, data *models.KeywordData, win models.Window) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	header := []interface{}{"Date", "Value", "Kind"}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}
	norm := trend.Normalize(data.Trend, win.Months())
	future, err := trend.FutureLabels(norm.Last(), len(data.Forecast))
	if err != nil {
		return err
	}
	row := 2
	put := func(date string, value float64, kind string) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		row++
		vals := []interface{}{date, value, kind}
		return f.SetSheetRow(name, cell, &vals)
	}
	for i, label := range norm.Labels {
		if err := put(label, norm.Values[i], kindHistory); err != nil {
			return err
		}
	}
	for i, label := range future {
		if err := put(label, data.Forecast[i], kindForecast); err != nil {
			return err
		}
	}
	return nil
}

// uniqueSheetName turns keyword into a valid, unused sheet name.
func uniqueSheetName(keyword string, used map[string]bool) string {
	base := strings.Map(func(r rune) rune {
		if strings.ContainsRune(sheetNameBad, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(keyword))
	base = strings.Trim(base, "'")
	if base == "" {
		base = "keyword"
	}
	if r := []rune(base); len(r) > maxSheetName {
		base = string(r[:maxSheetName])
	}
	name := base
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		r := []rune(base)
		if len(r)+len(suffix) > maxSheetName {
			r = r[:maxSheetName-len(suffix)]
		}
		name = string(r) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}
