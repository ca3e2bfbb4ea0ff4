package anomaly

import (
	"context"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/KaramelBytes/insightloom/internal/analysis"
	"github.com/KaramelBytes/insightloom/internal/table"
)

// TopN is the number of records kept in a Report.
const TopN = 10

// Record is one flagged row. Values are the imputed table values, not model internals.
type Record struct {
	RowIndex int                `json:"row_index"`
	Score    float64            `json:"anomaly_score"`
	Values   map[string]float64 `json:"values"`
}

// Report carries the full outlier count and rate plus the TopN most anomalous rows.
type Report struct {
	AnomalyCount      int      `json:"anomaly_count"`
	AnomalyPercentage float64  `json:"anomaly_percentage"`
	TotalRows         int      `json:"total_rows"`
	Anomalies         []Record `json:"anomalies"`
	// Flagged lists every outlier row index in ranked order.
	Flagged []int `json:"-"`
}

// Scorer flags anomalous rows with an isolation forest.
type Scorer struct {
	cfg Config
}

// NewScorer validates cfg and returns a Scorer.
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

// Score fits a forest on the numeric columns of t and ranks the outliers, most anomalous
// first. Equal scores keep original row order. A table without numeric columns yields
// an empty report.
func (s *Scorer) Score(ctx context.Context, t *table.Table) (*Report, error) {
	log := zerolog.Ctx(ctx)
	rows := t.Rows()
	rep := &Report{TotalRows: rows, Anomalies: []Record{}}
	cols := table.NumericColumns(t)
	if len(cols) == 0 || rows == 0 {
		log.Debug().Int("rows", rows).Msg("no numeric data to score")
		return rep, nil
	}
	x, err := FeatureMatrix(t, cols)
	if err != nil {
		return nil, err
	}
	forest, err := Fit(ctx, x, s.cfg)
	if err != nil {
		return nil, err
	}
	scores, err := forest.ScoreSamples(ctx, x)
	if err != nil {
		return nil, err
	}
	threshold := forest.Threshold(scores)
	labels := forest.Predict(scores, threshold)

	var flagged []int
	for i, out := range labels {
		if out {
			flagged = append(flagged, i)
		}
	}
	sort.SliceStable(flagged, func(a, b int) bool { return scores[flagged[a]] < scores[flagged[b]] })

	rep.AnomalyCount = len(flagged)
	rep.AnomalyPercentage = Percentage(len(flagged), rows)
	rep.Flagged = flagged
	for _, r := range flagged[:min(TopN, len(flagged))] {
		vals := make(map[string]float64, len(cols))
		for j, name := range cols {
			vals[name] = x.At(r, j)
		}
		rep.Anomalies = append(rep.Anomalies, Record{RowIndex: r, Score: scores[r], Values: vals})
	}
	log.Debug().
		Int("rows", rows).
		Int("features", len(cols)).
		Float64("threshold", threshold).
		Int("anomalies", rep.AnomalyCount).
		Msg("anomaly scoring complete")
	return rep, nil
}

// FeatureMatrix packs the named numeric columns into a rows x len(cols) matrix in
// table order. Non-finite values are rejected.
func FeatureMatrix(t *table.Table, cols []string) (*mat.Dense, error) {
	rows := t.Rows()
	data := make([]float64, rows*len(cols))
	for j, name := range cols {
		c, _ := t.Column(name)
		if err := analysis.CheckFinite(c); err != nil {
			return nil, err
		}
		for i, v := range c.Numbers {
			data[i*len(cols)+j] = v
		}
	}
	return mat.NewDense(rows, len(cols), data), nil
}

// Percentage is 100*count/total rounded to two decimals.
func Percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(100*float64(count)/float64(total)*100) / 100
}
