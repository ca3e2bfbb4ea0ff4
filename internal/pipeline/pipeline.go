package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/insightloom/internal/analysis"
	"github.com/KaramelBytes/insightloom/internal/anomaly"
	"github.com/KaramelBytes/insightloom/internal/insight"
	"github.com/KaramelBytes/insightloom/internal/report"
	"github.com/KaramelBytes/insightloom/internal/runs"
	"github.com/KaramelBytes/insightloom/internal/table"
	"github.com/KaramelBytes/insightloom/internal/utils"
)

// MinReliableRows is the row count below which results are flagged as unreliable.
const MinReliableRows = 10

// Options configures a Pipeline. Values are expected to be validated already.
type Options struct {
	Anomaly          anomaly.Config
	Load             table.Options
	Narrator         insight.Narrator // nil always uses the fallback narrative
	NarrativeTimeout time.Duration
	OutputDir        string
	Formats          []string
	RunsDir          string // empty disables run manifests
	Now              func() time.Time
}

// Pipeline runs the staged analysis of one dataset.
type Pipeline struct {
	opt    Options
	scorer *anomaly.Scorer

	mu    sync.Mutex
	bases map[string]struct{} // report base names handed out by this pipeline
}

// Result is everything one run produced.
type Result struct {
	RunID     string
	Source    string
	Metrics   *analysis.Metrics
	Anomalies *anomaly.Report
	Narrative insight.Narrative
	Report    report.Report
	Outputs   map[string]string
	Duration  time.Duration
}

// New builds a Pipeline from opt.
func New(opt Options) (*Pipeline, error) {
	scorer, err := anomaly.NewScorer(opt.Anomaly)
	if err != nil {
		return nil, err
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	if len(opt.Formats) == 0 {
		opt.Formats = []string{report.FormatMarkdown, report.FormatHTML, report.FormatJSON}
	}
	return &Pipeline{opt: opt, scorer: scorer, bases: make(map[string]struct{})}, nil
}

// Title is the report title for source.
func Title(source string) string {
	return "Analysis Report: " + utils.FileStem(source)
}

// RunFile loads path and runs it.
func (p *Pipeline) RunFile(ctx context.Context, path string) (*Result, error) {
	t, err := table.LoadFile(path, p.opt.Load)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return p.Run(ctx, path, t)
}

// Run analyses t. Stages run in order: empty check, imputation, metrics, scoring,
// context, narrative, assembly, rendering. Only the narrative stage recovers from
// failure; every other error ends the run.
func (p *Pipeline) Run(ctx context.Context, source string, t *table.Table) (*Result, error) {
	start := p.opt.Now()
	res := &Result{RunID: runs.NewID(), Source: source}
	log := zerolog.Ctx(ctx).With().Str("run_id", res.RunID).Str("source", source).Logger()
	ctx = log.WithContext(ctx)

	if err := analysis.CheckNotEmpty(t); err != nil {
		return nil, err
	}
	if t.Rows() < MinReliableRows {
		log.Warn().Int("rows", t.Rows()).Msgf("fewer than %d rows; results may be unreliable", MinReliableRows)
	}

	log.Debug().Str("stage", "impute").Msg("filling missing numeric values")
	imputed := analysis.Impute(t)

	log.Debug().Str("stage", "metrics").Msg("computing summary statistics")
	metrics, err := analysis.ComputeMetrics(imputed)
	if err != nil {
		return nil, err
	}
	res.Metrics = metrics

	log.Debug().Str("stage", "score").Msg("scoring anomalies")
	scored, err := p.scorer.Score(ctx, imputed)
	if err != nil {
		return nil, fmt.Errorf("score anomalies: %w", err)
	}
	res.Anomalies = scored

	log.Debug().Str("stage", "narrative").Msg("generating narrative")
	ictx := insight.BuildContext(metrics, scored)
	res.Narrative = insight.Generate(ctx, p.opt.Narrator, p.opt.NarrativeTimeout, ictx, metrics, scored)

	res.Report = report.Assemble(Title(source), metrics, scored, res.Narrative.Text)
	meta := report.Meta{
		RunID:           res.RunID,
		Source:          source,
		GeneratedAt:     start,
		NarrativeSource: string(res.Narrative.Source),
	}
	if p.opt.OutputDir != "" {
		log.Debug().Str("stage", "render").Strs("formats", p.opt.Formats).Msg("writing report")
		name := utils.ReportBaseName(source, start)
		base := p.reserveBase(name, res.RunID)
		if base != name {
			log.Debug().Str("base", base).Msg("report name taken; using run id suffix")
		}
		outputs, err := report.Write(res.Report, meta, p.opt.OutputDir, base, p.opt.Formats)
		res.Outputs = outputs
		if err != nil {
			return res, err
		}
	}
	res.Duration = p.opt.Now().Sub(start)

	if p.opt.RunsDir != "" {
		m := &runs.Manifest{
			ID:                res.RunID,
			Source:            source,
			Title:             res.Report.Title,
			CreatedAt:         start,
			DurationMs:        res.Duration.Milliseconds(),
			TotalRows:         metrics.TotalRows,
			AnomalyCount:      scored.AnomalyCount,
			AnomalyPercentage: scored.AnomalyPercentage,
			NarrativeSource:   string(res.Narrative.Source),
			Outputs:           res.Outputs,
		}
		if err := runs.Save(p.opt.RunsDir, m); err != nil {
			log.Warn().Err(err).Msg("could not record run manifest")
		}
	}
	log.Info().
		Int("rows", metrics.TotalRows).
		Int("anomalies", scored.AnomalyCount).
		Str("narrative", string(res.Narrative.Source)).
		Dur("elapsed", res.Duration).
		Msg("analysis complete")
	return res, nil
}

// reserveBase returns base, or base with a short run id suffix when another run of
// this pipeline already used it or report files with that name exist.
func (p *Pipeline) reserveBase(base, runID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, taken := p.bases[base]; taken || p.reportExists(base) {
		base = base + "_" + strings.ReplaceAll(runID, "-", "")[:8]
	}
	p.bases[base] = struct{}{}
	return base
}

func (p *Pipeline) reportExists(base string) bool {
	for _, f := range p.opt.Formats {
		if _, err := os.Stat(filepath.Join(p.opt.OutputDir, base+"."+f)); err == nil {
			return true
		}
	}
	return false
}

// BatchItem is the outcome for one path of RunBatch.
type BatchItem struct {
	Path   string
	Result *Result
	Err    error
}

// RunBatch runs every path independently with at most workers in flight. Results keep
// the order of paths. A failing file does not stop the others.
func (p *Pipeline) RunBatch(ctx context.Context, paths []string, workers int) []BatchItem {
	items := make([]BatchItem, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, path := range paths {
		items[i].Path = path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				items[i].Err = err
				return nil
			}
			items[i].Result, items[i].Err = p.RunFile(gctx, path)
			return nil
		})
	}
	_ = g.Wait()
	return items
}

// Failed counts the items with an error.
func Failed(items []BatchItem) int {
	n := 0
	for _, it := range items {
		if it.Err != nil {
			n++
		}
	}
	return n
}
