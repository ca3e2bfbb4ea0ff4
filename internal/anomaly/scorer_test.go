package anomaly

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/insightloom/internal/analysis"
	"github.com/KaramelBytes/insightloom/internal/table"
)

// campaignTable builds n rows of six noisy numeric columns. Every row index in
// perturbed gets an abnormally low "ctr" and high "cost".
func campaignTable(t *testing.T, n int, perturbed map[int]bool) *table.Table {
	t.Helper()
	rng := rand.New(rand.NewPCG(7, 11))
	names := []string{"impressions", "clicks", "ctr", "cost", "conversions", "revenue"}
	means := []float64{10000, 500, 5, 250, 40, 1200}
	sds := []float64{800, 40, 0.4, 20, 4, 90}
	data := make([][]float64, len(names))
	for j := range names {
		data[j] = make([]float64, n)
		for i := 0; i < n; i++ {
			data[j][i] = means[j] + sds[j]*rng.NormFloat64()
		}
	}
	for i := range perturbed {
		data[2][i] = means[2] - sds[2]*(6+6*rng.Float64())
		data[3][i] = means[3] + sds[3]*(6+6*rng.Float64())
	}
	cols := []*table.Column{table.TextColumn("campaign_id", table.KindString, ids(n))}
	for j, name := range names {
		cols = append(cols, table.NumericColumn(name, table.KindFloat64, data[j], nil))
	}
	tbl, err := table.New("campaigns.csv", cols...)
	require.NoError(t, err)
	return tbl
}

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("CAMP_%04d", i)
	}
	return out
}

func perturbedRows(n, k int) map[int]bool {
	rng := rand.New(rand.NewPCG(3, 5))
	out := map[int]bool{}
	for _, i := range rng.Perm(n)[:k] {
		out[i] = true
	}
	return out
}

func TestScoreThousandRowScenario(t *testing.T) {
	perturbed := perturbedRows(1000, 100)
	tbl := campaignTable(t, 1000, perturbed)
	s, err := NewScorer(DefaultConfig())
	require.NoError(t, err)

	rep, err := s.Score(context.Background(), tbl)
	require.NoError(t, err)

	assert.Equal(t, 1000, rep.TotalRows)
	assert.InDelta(t, 100, rep.AnomalyCount, 2)
	assert.Equal(t, math.Round(100*float64(rep.AnomalyCount)/1000*100)/100, rep.AnomalyPercentage)
	assert.Len(t, rep.Anomalies, TopN)
	assert.Len(t, rep.Flagged, rep.AnomalyCount)

	hits := 0
	for _, r := range rep.Flagged {
		if perturbed[r] {
			hits++
		}
	}
	assert.GreaterOrEqual(t, hits, 80, "most flagged rows should be the perturbed ones")
	for _, rec := range rep.Anomalies {
		assert.True(t, perturbed[rec.RowIndex], "top record %d is not a perturbed row", rec.RowIndex)
		assert.Len(t, rec.Values, 6)
		assert.NotContains(t, rec.Values, "campaign_id")
		cost, _ := tbl.Column("cost")
		assert.Equal(t, cost.Numbers[rec.RowIndex], rec.Values["cost"])
	}
}

func TestScoreRankingAndBounds(t *testing.T) {
	tbl := campaignTable(t, 300, perturbedRows(300, 20))
	cfg := DefaultConfig()
	cfg.Contamination = 0.2
	s, err := NewScorer(cfg)
	require.NoError(t, err)
	rep, err := s.Score(context.Background(), tbl)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, rep.AnomalyCount, 0)
	assert.LessOrEqual(t, rep.AnomalyCount, rep.TotalRows)
	assert.Len(t, rep.Anomalies, min(rep.AnomalyCount, TopN))
	for i := 1; i < len(rep.Anomalies); i++ {
		assert.LessOrEqual(t, rep.Anomalies[i-1].Score, rep.Anomalies[i].Score)
	}
	for _, rec := range rep.Anomalies {
		assert.Less(t, rec.Score, 0.0)
		assert.GreaterOrEqual(t, rec.Score, -1.0)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	tbl := campaignTable(t, 400, perturbedRows(400, 40))
	serial := DefaultConfig()
	serial.Workers = 1
	parallel := DefaultConfig()
	parallel.Workers = 8

	var reports []*Report
	for _, cfg := range []Config{serial, parallel, serial} {
		s, err := NewScorer(cfg)
		require.NoError(t, err)
		rep, err := s.Score(context.Background(), tbl)
		require.NoError(t, err)
		reports = append(reports, rep)
	}
	for _, rep := range reports[1:] {
		assert.Equal(t, reports[0].AnomalyCount, rep.AnomalyCount)
		assert.Equal(t, reports[0].Flagged, rep.Flagged)
		assert.Equal(t, reports[0].Anomalies, rep.Anomalies)
	}
}

func TestScoreTiesKeepRowOrder(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	n := 53
	a := make([]float64, n)
	b := make([]float64, n)
	for i := range a {
		a[i] = rng.NormFloat64()
		b[i] = rng.NormFloat64()
	}
	for _, i := range []int{30, 10, 20} {
		a[i], b[i] = 1000, -1000
	}
	tbl, err := table.New("ties",
		table.NumericColumn("a", table.KindFloat64, a, nil),
		table.NumericColumn("b", table.KindFloat64, b, nil),
	)
	require.NoError(t, err)
	s, err := NewScorer(DefaultConfig())
	require.NoError(t, err)
	rep, err := s.Score(context.Background(), tbl)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(rep.Anomalies), 3)
	got := []int{rep.Anomalies[0].RowIndex, rep.Anomalies[1].RowIndex, rep.Anomalies[2].RowIndex}
	assert.Equal(t, []int{10, 20, 30}, got)
	assert.Equal(t, rep.Anomalies[0].Score, rep.Anomalies[2].Score)
}

func TestScoreWithoutNumericColumns(t *testing.T) {
	tbl, err := table.New("text", table.TextColumn("name", table.KindString, []string{"a", "b"}))
	require.NoError(t, err)
	s, err := NewScorer(DefaultConfig())
	require.NoError(t, err)
	rep, err := s.Score(context.Background(), tbl)
	require.NoError(t, err)
	assert.Zero(t, rep.AnomalyCount)
	assert.Empty(t, rep.Anomalies)
	assert.Equal(t, 2, rep.TotalRows)
}

func TestScoreRejectsNonFinite(t *testing.T) {
	tbl, err := table.New("nan",
		table.NumericColumn("a", table.KindFloat64, []float64{1, 2, math.NaN(), 4}, nil),
	)
	require.NoError(t, err)
	s, err := NewScorer(DefaultConfig())
	require.NoError(t, err)
	_, err = s.Score(context.Background(), tbl)
	var invalid *analysis.InvalidNumericDataError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "a", invalid.Column)
	assert.Equal(t, 2, invalid.Row)
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
		ok   bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero contamination", func(c *Config) { c.Contamination = 0 }, false},
		{"contamination above half", func(c *Config) { c.Contamination = 0.6 }, false},
		{"no trees", func(c *Config) { c.Estimators = 0 }, false},
		{"no samples", func(c *Config) { c.MaxSamples = 0 }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mut(&cfg)
			err := cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 10.0, Percentage(100, 1000))
	assert.Equal(t, 33.33, Percentage(1, 3))
	assert.Equal(t, 66.67, Percentage(2, 3))
	assert.Equal(t, 0.0, Percentage(0, 0))
}

func TestAveragePathLength(t *testing.T) {
	assert.Equal(t, 0.0, averagePathLength(1))
	assert.Equal(t, 1.0, averagePathLength(2))
	assert.InDelta(t, 2*(math.Log(255)+eulerGamma)-2*255.0/256.0, averagePathLength(256), 1e-12)
}
