package report

import (
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/KaramelBytes/insightloom/internal/analysis"
	"github.com/KaramelBytes/insightloom/internal/anomaly"
)

// MaxStatisticsRows caps the statistics table.
const MaxStatisticsRows = 6

type KPI struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// StatRow keeps raw values; formatting happens when rendering.
type StatRow struct {
	Column string  `json:"column"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Report is the fixed document schema consumed by the renderers.
type Report struct {
	Title      string    `json:"title"`
	KPIs       []KPI     `json:"kpis"`
	Statistics []StatRow `json:"statistics"`
	Narrative  string    `json:"narrative"`
}

// Meta describes the run that produced a report. It is rendered alongside the
// report but is not part of its schema.
type Meta struct {
	RunID           string    `json:"run_id"`
	Source          string    `json:"source"`
	GeneratedAt     time.Time `json:"generated_at"`
	NarrativeSource string    `json:"narrative_source"`
}

// Assemble maps pipeline output onto the report schema.
func Assemble(title string, m *analysis.Metrics, r *anomaly.Report, narrative string) Report {
	rep := Report{
		Title: title,
		KPIs: []KPI{
			{Label: "Total Records", Value: FormatCount(m.TotalRows)},
			{Label: "Anomalies", Value: FormatCount(r.AnomalyCount)},
			{Label: "Anomaly Rate", Value: FormatPercent(r.AnomalyPercentage)},
		},
		Statistics: []StatRow{},
		Narrative:  narrative,
	}
	for _, col := range m.NumericColumns[:min(MaxStatisticsRows, len(m.NumericColumns))] {
		s := m.SummaryStats[col]
		rep.Statistics = append(rep.Statistics, StatRow{
			Column: col, Mean: s.Mean, Median: s.Median, Std: s.Std, Min: s.Min, Max: s.Max,
		})
	}
	return rep
}

var printer = message.NewPrinter(language.English)

// FormatStat renders values above 100 in magnitude with thousands separators and no
// decimals, everything else with two decimals.
func FormatStat(v float64) string {
	if math.Abs(v) > 100 {
		return printer.Sprintf("%.0f", v)
	}
	return printer.Sprintf("%.2f", v)
}

// FormatCount renders an integer with thousands separators.
func FormatCount(n int) string { return printer.Sprintf("%d", n) }

// FormatPercent renders a percentage with two decimals.
func FormatPercent(p float64) string { return printer.Sprintf("%.2f%%", p) }
