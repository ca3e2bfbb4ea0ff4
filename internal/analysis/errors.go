package analysis

import "fmt"

// EmptyDatasetError indicates a table with zero data rows.
type EmptyDatasetError struct {
	Source string
}

func (e *EmptyDatasetError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("empty dataset: %s has no data rows", e.Source)
	}
	return "empty dataset: no data rows"
}

// NoNumericColumnsError indicates a table without any integer or floating-point column.
type NoNumericColumnsError struct {
	Columns []string
}

func (e *NoNumericColumnsError) Error() string {
	return fmt.Sprintf("no numeric columns to analyze (found %d non-numeric columns)", len(e.Columns))
}

// InvalidNumericDataError indicates a NaN or infinite value in a numeric column.
// Row is 0-based. When Stat is set the cells are finite but that column statistic
// overflows float64, and Row is -1.
type InvalidNumericDataError struct {
	Column string
	Row    int
	Value  float64
	Stat   string
}

func (e *InvalidNumericDataError) Error() string {
	if e.Stat != "" {
		return fmt.Sprintf("invalid numeric data: column %q %s overflows float64 (%v)", e.Column, e.Stat, e.Value)
	}
	return fmt.Sprintf("invalid numeric data: column %q row %d has non-finite value %v", e.Column, e.Row, e.Value)
}
