package insight

import (
	"github.com/KaramelBytes/insightloom/internal/analysis"
	"github.com/KaramelBytes/insightloom/internal/anomaly"
)

// MaxContextAnomalies bounds the rows handed to the narrative generator.
const MaxContextAnomalies = 5

type DatasetInfo struct {
	TotalRows      int      `json:"total_rows"`
	Columns        []string `json:"columns"`
	NumericColumns []string `json:"numeric_columns"`
}

type AnomalyDetection struct {
	TotalAnomalies int              `json:"total_anomalies"`
	Percentage     float64          `json:"percentage"`
	TopAnomalies   []anomaly.Record `json:"top_anomalies"`
}

// Context is everything the narrative generator is allowed to see: aggregates plus the
// numeric values of at most MaxContextAnomalies flagged rows.
type Context struct {
	DatasetInfo       DatasetInfo                     `json:"dataset_info"`
	SummaryStatistics map[string]analysis.ColumnStats `json:"summary_statistics"`
	AnomalyDetection  AnomalyDetection                `json:"anomaly_detection"`
}

// BuildContext projects metrics and the ranked report into a Context. Records are
// re-truncated in their existing order and their values limited to numeric columns.
func BuildContext(m *analysis.Metrics, r *anomaly.Report) Context {
	numeric := make(map[string]bool, len(m.NumericColumns))
	for _, c := range m.NumericColumns {
		numeric[c] = true
	}
	stats := make(map[string]analysis.ColumnStats, len(m.SummaryStats))
	for name, s := range m.SummaryStats {
		if numeric[name] {
			stats[name] = s
		}
	}
	c := Context{
		DatasetInfo: DatasetInfo{
			TotalRows:      m.TotalRows,
			Columns:        append([]string(nil), m.Columns...),
			NumericColumns: append([]string(nil), m.NumericColumns...),
		},
		SummaryStatistics: stats,
		AnomalyDetection:  AnomalyDetection{TopAnomalies: []anomaly.Record{}},
	}
	if r == nil {
		return c
	}
	c.AnomalyDetection.TotalAnomalies = r.AnomalyCount
	c.AnomalyDetection.Percentage = r.AnomalyPercentage
	for _, rec := range r.Anomalies[:min(MaxContextAnomalies, len(r.Anomalies))] {
		vals := make(map[string]float64, len(rec.Values))
		for k, v := range rec.Values {
			if numeric[k] {
				vals[k] = v
			}
		}
		c.AnomalyDetection.TopAnomalies = append(c.AnomalyDetection.TopAnomalies,
			anomaly.Record{RowIndex: rec.RowIndex, Score: rec.Score, Values: vals})
	}
	return c
}
