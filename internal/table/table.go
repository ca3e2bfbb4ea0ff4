package table

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the declared element type of a column.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindDate
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	default:
		return "string"
	}
}

// IsNumeric reports whether the kind is one of the four integer or floating-point kinds.
// This is the only numeric classification in the module; metrics and anomaly scoring
// both go through it.
func (k Kind) IsNumeric() bool {
	switch k {
	case KindInt32, KindInt64, KindFloat32, KindFloat64:
		return true
	}
	return false
}

// Column is a named, uniformly typed column. Numeric kinds keep their values in
// Numbers; every other kind keeps the raw cell text in Text. Null marks missing cells.
type Column struct {
	Name    string
	Kind    Kind
	Numbers []float64
	Text    []string
	Null    []bool
}

// Len returns the row count of the column.
func (c *Column) Len() int { return len(c.Null) }

// NullCount returns the number of missing cells.
func (c *Column) NullCount() int {
	n := 0
	for _, isNull := range c.Null {
		if isNull {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Numbers != nil {
		out.Numbers = append([]float64(nil), c.Numbers...)
	}
	if c.Text != nil {
		out.Text = append([]string(nil), c.Text...)
	}
	out.Null = append([]bool(nil), c.Null...)
	return out
}

// NumericColumn builds a float column; a nil entry in null means "no missing values".
func NumericColumn(name string, kind Kind, values []float64, null []bool) *Column {
	if null == nil {
		null = make([]bool, len(values))
	}
	return &Column{Name: name, Kind: kind, Numbers: values, Null: null}
}

// TextColumn builds a non-numeric column; empty strings are treated as missing.
func TextColumn(name string, kind Kind, values []string) *Column {
	null := make([]bool, len(values))
	for i, v := range values {
		null[i] = strings.TrimSpace(v) == ""
	}
	return &Column{Name: name, Kind: kind, Text: values, Null: null}
}

// Table is an ordered sequence of named columns with equal row counts.
type Table struct {
	Name    string
	Columns []*Column
}

var ErrShape = errors.New("invalid table shape")

// New validates the column set and returns a Table.
func New(name string, cols ...*Column) (*Table, error) {
	seen := make(map[string]struct{}, len(cols))
	rows := -1
	for _, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("%w: nil column", ErrShape)
		}
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrShape, c.Name)
		}
		seen[c.Name] = struct{}{}
		if c.Kind.IsNumeric() && len(c.Numbers) != len(c.Null) {
			return nil, fmt.Errorf("%w: column %q has %d values and %d null flags", ErrShape, c.Name, len(c.Numbers), len(c.Null))
		}
		if !c.Kind.IsNumeric() && len(c.Text) != len(c.Null) {
			return nil, fmt.Errorf("%w: column %q has %d values and %d null flags", ErrShape, c.Name, len(c.Text), len(c.Null))
		}
		if rows >= 0 && c.Len() != rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, expected %d", ErrShape, c.Name, c.Len(), rows)
		}
		rows = c.Len()
	}
	return &Table{Name: name, Columns: cols}, nil
}

// Rows returns the number of rows (zero for a table without columns).
func (t *Table) Rows() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{Name: t.Name, Columns: make([]*Column, len(t.Columns))}
	for i, c := range t.Columns {
		out.Columns[i] = c.Clone()
	}
	return out
}

// NumericColumns returns the names of numeric columns in table order.
func NumericColumns(t *Table) []string {
	var names []string
	for _, c := range t.Columns {
		if c.Kind.IsNumeric() {
			names = append(names, c.Name)
		}
	}
	return names
}
