package analysis

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/montanaflynn/stats"

	"github.com/KaramelBytes/insightloom/internal/table"
)

// ColumnStats holds descriptive statistics for one numeric column.
type ColumnStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Sum    float64 `json:"sum"`
}

// Metrics summarizes an imputed table.
type Metrics struct {
	TotalRows      int                    `json:"total_rows"`
	Columns        []string               `json:"columns"`
	NumericColumns []string               `json:"numeric_columns"`
	SummaryStats   map[string]ColumnStats `json:"summary_stats"`
}

// CheckNotEmpty returns an EmptyDatasetError when t has no data rows.
func CheckNotEmpty(t *table.Table) error {
	if t == nil || t.Rows() == 0 {
		name := ""
		if t != nil {
			name = t.Name
		}
		return &EmptyDatasetError{Source: name}
	}
	return nil
}

// ComputeMetrics profiles the numeric columns of an imputed table.
// Standard deviation is the population form.
func ComputeMetrics(t *table.Table) (*Metrics, error) {
	if err := CheckNotEmpty(t); err != nil {
		return nil, err
	}
	numeric := table.NumericColumns(t)
	if len(numeric) == 0 {
		return nil, &NoNumericColumnsError{Columns: t.ColumnNames()}
	}
	m := &Metrics{
		TotalRows:      t.Rows(),
		Columns:        t.ColumnNames(),
		NumericColumns: numeric,
		SummaryStats:   make(map[string]ColumnStats, len(numeric)),
	}
	for _, name := range numeric {
		c, _ := t.Column(name)
		if err := CheckFinite(c); err != nil {
			return nil, err
		}
		cs, err := describe(name, c.Numbers)
		if err != nil {
			var invalid *InvalidNumericDataError
			if errors.As(err, &invalid) {
				return nil, err
			}
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		m.SummaryStats[name] = cs
	}
	return m, nil
}

// CheckFinite rejects a numeric column holding NaN or ±Inf.
func CheckFinite(c *table.Column) error {
	for i, v := range c.Numbers {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &InvalidNumericDataError{Column: c.Name, Row: i, Value: v}
		}
	}
	return nil
}

// describe works on a sorted copy so every statistic is the same for any row order.
// Sum is exactly rounded; std is the population form around mean = sum/n.
func describe(name string, vals []float64) (ColumnStats, error) {
	sorted := sortedCopy(vals)
	data := stats.Float64Data(sorted)
	var (
		cs  ColumnStats
		err error
	)
	if cs.Median, err = data.Median(); err != nil {
		return cs, err
	}
	if cs.Min, err = data.Min(); err != nil {
		return cs, err
	}
	if cs.Max, err = data.Max(); err != nil {
		return cs, err
	}
	n := float64(len(sorted))
	cs.Sum = exactSum(sorted)
	cs.Mean = cs.Sum / n
	sq := make([]float64, len(sorted))
	for i, v := range sorted {
		d := v - cs.Mean
		sq[i] = d * d
	}
	slices.Sort(sq)
	cs.Std = math.Sqrt(exactSum(sq) / n)

	for _, s := range []struct {
		stat string
		v    float64
	}{{"sum", cs.Sum}, {"mean", cs.Mean}, {"std", cs.Std}, {"median", cs.Median}} {
		if math.IsNaN(s.v) || math.IsInf(s.v, 0) {
			return cs, &InvalidNumericDataError{Column: name, Row: -1, Value: s.v, Stat: s.stat}
		}
	}
	return cs, nil
}
