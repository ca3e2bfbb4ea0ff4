package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultInferRows is the number of data rows scanned before a column's kind is fixed.
const DefaultInferRows = 10000

// Options controls how delimited and spreadsheet files are turned into a Table.
type Options struct {
	// Delimiter for CSV. If 0, chosen from the file extension (.tsv => tab, otherwise ',').
	Delimiter rune
	// Numeric parsing locale. DecimalSeparator 0 means auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// InferRows is how many data rows are scanned for type inference; <= 0 uses DefaultInferRows.
	InferRows int
	// XLSX sheet selection. SheetIndex is 1-based and used when SheetName is empty.
	SheetName  string
	SheetIndex int
}

// DefaultOptions returns strict '.'-decimal parsing with the default inference window.
func DefaultOptions() Options {
	return Options{
		DecimalSeparator: '.',
		InferRows:        DefaultInferRows,
		SheetIndex:       1,
	}
}

// SupportedExt reports whether the loader can read files with the given name.
func SupportedExt(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".xlsx":
		return true
	}
	return false
}

// LoadFile reads a CSV/TSV or XLSX file depending on its extension.
func LoadFile(path string, opt Options) (*Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return LoadXLSX(path, opt)
	}
	return LoadCSV(path, opt)
}

// LoadCSV reads a delimited text file with a header row.
func LoadCSV(path string, opt Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	if opt.Delimiter == 0 {
		opt.Delimiter = sniffDelimiter(path)
	}
	return ReadCSV(f, filepath.Base(path), opt)
}

// ReadCSV reads delimited text from r. The first record is the header.
func ReadCSV(in io.Reader, name string, opt Options) (*Table, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	if opt.Delimiter != 0 {
		r.Comma = opt.Delimiter
	}

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read header: %s has no header row", name)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = append([]string(nil), header...)

	var rows [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, rec)
	}
	return FromRecords(name, header, rows, opt)
}

// FromRecords infers column kinds and builds a Table from a header and raw string rows.
// Short rows are padded with missing cells; extra cells are ignored.
func FromRecords(name string, header []string, rows [][]string, opt Options) (*Table, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("read header: %s has no columns", name)
	}
	names := cleanHeader(header)
	limit := opt.InferRows
	if limit <= 0 {
		limit = DefaultInferRows
	}
	cols := make([]*Column, len(names))
	for j, colName := range names {
		raw := make([]string, len(rows))
		for i, rec := range rows {
			if j < len(rec) {
				raw[i] = strings.TrimSpace(rec[j])
			}
		}
		cols[j] = buildColumn(colName, raw, limit, opt)
	}
	return New(name, cols...)
}

func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	seen := map[string]int{}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		base := h
		for seen[h] > 0 {
			seen[base]++
			h = fmt.Sprintf("%s_%d", base, seen[base])
		}
		seen[h]++
		out[i] = h
	}
	return out
}

// inferKind fixes a kind from the first limit values. Columns with no values are text.
func inferKind(raw []string, limit int, opt Options) Kind {
	allInt, allNum, allBool, allDate := true, true, true, true
	seen := 0
	for i := 0; i < len(raw) && i < limit; i++ {
		v := raw[i]
		if v == "" {
			continue
		}
		seen++
		if allInt {
			if _, ok := parseInt(v, opt); !ok {
				allInt = false
			}
		}
		if allNum {
			if _, ok := parseNumeric(v, opt); !ok {
				allNum = false
			}
		}
		if allBool {
			if _, ok := parseBool(v); !ok {
				allBool = false
			}
		}
		if allDate {
			if _, ok := parseTimeMaybe(v); !ok {
				allDate = false
			}
		}
		if !allInt && !allNum && !allBool && !allDate {
			break
		}
	}
	switch {
	case seen == 0:
		return KindString
	case allInt:
		return KindInt64
	case allNum:
		return KindFloat64
	case allBool:
		return KindBool
	case allDate:
		return KindDate
	}
	return KindString
}

// buildColumn converts raw cells under the inferred kind. A value past the inference
// window that does not fit demotes the column: int => float when possible, otherwise text.
func buildColumn(name string, raw []string, limit int, opt Options) *Column {
	kind := inferKind(raw, limit, opt)
	for {
		switch kind {
		case KindInt64, KindFloat64:
			if col, ok := numericColumn(name, kind, raw, opt); ok {
				return col
			}
			if kind == KindInt64 {
				kind = KindFloat64
				continue
			}
			kind = KindString
			continue
		case KindBool:
			if fits(raw, func(v string) bool { _, ok := parseBool(v); return ok }) {
				return TextColumn(name, KindBool, raw)
			}
		case KindDate:
			if fits(raw, func(v string) bool { _, ok := parseTimeMaybe(v); return ok }) {
				return TextColumn(name, KindDate, raw)
			}
		}
		return TextColumn(name, KindString, raw)
	}
}

func numericColumn(name string, kind Kind, raw []string, opt Options) (*Column, bool) {
	vals := make([]float64, len(raw))
	null := make([]bool, len(raw))
	for i, v := range raw {
		if v == "" {
			null[i] = true
			continue
		}
		var (
			x  float64
			ok bool
		)
		if kind == KindInt64 {
			var n int64
			n, ok = parseInt(v, opt)
			x = float64(n)
		} else {
			x, ok = parseNumeric(v, opt)
		}
		if !ok {
			return nil, false
		}
		vals[i] = x
	}
	return NumericColumn(name, kind, vals, null), true
}

func fits(raw []string, parse func(string) bool) bool {
	for _, v := range raw {
		if v != "" && !parse(v) {
			return false
		}
	}
	return true
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseInt(s string, opt Options) (int64, bool) {
	raw := strings.TrimSpace(s)
	if opt.ThousandsSeparator != 0 && opt.ThousandsSeparator != opt.DecimalSeparator {
		raw = strings.ReplaceAll(raw, string(opt.ThousandsSeparator), "")
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0 && cpos > dpos:
			dec, thou = ',', '.'
		case cpos >= 0 && dpos >= 0:
			dec, thou = '.', ','
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou != 0 && thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		if strings.Contains(raw, ".") {
			return 0, false
		}
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
