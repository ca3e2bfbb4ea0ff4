package analysis

import (
	"github.com/KaramelBytes/insightloom/internal/table"
)

// Impute returns a copy of t where every missing numeric cell holds its column's mean
// over the non-missing cells, computed like the metrics mean so row order does not
// matter. Non-numeric columns are copied unchanged. A numeric column with no values
// at all is filled with NaN and fails later validation.
func Impute(t *table.Table) *table.Table {
	out := t.Clone()
	for _, c := range out.Columns {
		if !c.Kind.IsNumeric() || c.NullCount() == 0 {
			continue
		}
		present := make([]float64, 0, c.Len()-c.NullCount())
		for i, v := range c.Numbers {
			if !c.Null[i] {
				present = append(present, v)
			}
		}
		fill := mean(present)
		for i := range c.Numbers {
			if c.Null[i] {
				c.Numbers[i] = fill
				c.Null[i] = false
			}
		}
	}
	return out
}
