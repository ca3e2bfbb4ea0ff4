package report

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/insightloom/internal/insight"
)

const (
	sheetSummary    = "Summary"
	sheetStatistics = "Statistics"
	sheetNarrative  = "Narrative"
)

// XLSX renders the report as a workbook with Summary, Statistics and Narrative sheets.
// Statistics cells hold raw values; only their number format follows FormatStat.
func XLSX(rep Report, meta Meta) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, err
	}
	for _, s := range []string{sheetStatistics, sheetNarrative} {
		if _, err := f.NewSheet(s); err != nil {
			return nil, err
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	grouped, err := numberStyle(f, "#,##0")
	if err != nil {
		return nil, err
	}
	fixed, err := numberStyle(f, "0.00")
	if err != nil {
		return nil, err
	}

	w := &sheetWriter{f: f}
	w.row(sheetSummary, 1, rep.Title)
	w.style(sheetSummary, 1, 1, bold)
	r := 3
	for _, kv := range [][2]string{
		{"Source", meta.Source},
		{"Run", meta.RunID},
		{"Narrative", meta.NarrativeSource},
	} {
		if kv[1] != "" {
			w.row(sheetSummary, r, kv[0], kv[1])
			r++
		}
	}
	if !meta.GeneratedAt.IsZero() {
		w.row(sheetSummary, r, "Generated", meta.GeneratedAt.Format("2006-01-02 15:04:05"))
		r++
	}
	r++
	w.row(sheetSummary, r, "Metric", "Value")
	w.style(sheetSummary, r, 2, bold)
	for _, k := range rep.KPIs {
		r++
		w.row(sheetSummary, r, k.Label, k.Value)
	}

	w.row(sheetStatistics, 1, "Column", "Mean", "Median", "Std Dev", "Min", "Max")
	w.style(sheetStatistics, 1, 6, bold)
	for i, s := range rep.Statistics {
		row := i + 2
		vals := []float64{s.Mean, s.Median, s.Std, s.Min, s.Max}
		w.row(sheetStatistics, row, s.Column)
		for j, v := range vals {
			cell := w.set(sheetStatistics, j+2, row, v)
			st := fixed
			if math.Abs(v) > 100 {
				st = grouped
			}
			if w.err == nil {
				w.err = f.SetCellStyle(sheetStatistics, cell, cell, st)
			}
		}
	}

	r = 1
	for _, s := range insight.ParseSections(rep.Narrative) {
		if s.Title != "" {
			w.row(sheetNarrative, r, s.Title)
			w.style(sheetNarrative, r, 1, bold)
			r++
		}
		if s.Body != "" {
			w.row(sheetNarrative, r, s.Body)
			r++
		}
		r++
	}
	if w.err != nil {
		return nil, w.err
	}
	if err := f.SetColWidth(sheetSummary, "A", "B", 28); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheetNarrative, "A", "A", 100); err != nil {
		return nil, err
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func numberStyle(f *excelize.File, format string) (int, error) {
	return f.NewStyle(&excelize.Style{CustomNumFmt: &format})
}

// sheetWriter keeps the first error so cell writes can be chained.
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (w *sheetWriter) set(sheet string, col, row int, v any) string {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		if w.err == nil {
			w.err = err
		}
		return ""
	}
	if w.err == nil {
		w.err = w.f.SetCellValue(sheet, cell, v)
	}
	return cell
}

func (w *sheetWriter) row(sheet string, row int, vals ...any) {
	for i, v := range vals {
		w.set(sheet, i+1, row, v)
	}
}

func (w *sheetWriter) style(sheet string, row, cols, style int) {
	if w.err != nil {
		return
	}
	from, _ := excelize.CoordinatesToCellName(1, row)
	to, _ := excelize.CoordinatesToCellName(cols, row)
	w.err = w.f.SetCellStyle(sheet, from, to, style)
}
