package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KaramelBytes/insightloom/internal/ai"
	cfgpkg "github.com/KaramelBytes/insightloom/internal/config"
	"github.com/KaramelBytes/insightloom/internal/insight"
	"github.com/KaramelBytes/insightloom/internal/pipeline"
	"github.com/KaramelBytes/insightloom/internal/report"
	"github.com/KaramelBytes/insightloom/internal/table"
)

// runFlags are shared by analyze, analyze-batch and watch. Config-backed values are
// applied in setup, before validation.
type runFlags struct {
	// config overrides
	outputDir     string
	formats       []string
	contamination float64
	estimators    int
	seed          int64
	provider      string
	model         string
	workers       int
	// run only
	noNarrative bool
	quiet       bool
	// loader
	delimiter  string
	decimal    string
	thousands  string
	sheetName  string
	sheetIndex int
}

var rf runFlags

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&rf.outputDir, "output", "o", "", "report output directory (overrides config)")
	f.StringSliceVarP(&rf.formats, "format", "f", nil, "report formats: md,html,json,xlsx (overrides config)")
	f.Float64Var(&rf.contamination, "contamination", 0, "expected share of anomalous records, in (0, 0.5]")
	f.IntVar(&rf.estimators, "estimators", 0, "number of isolation trees")
	f.Int64Var(&rf.seed, "seed", 0, "random seed for the isolation forest")
	f.StringVar(&rf.provider, "provider", "", "narrative provider: openrouter|ollama")
	f.StringVarP(&rf.model, "model", "m", "", "narrative model name")
	f.BoolVar(&rf.noNarrative, "no-narrative", false, "skip the language model and use the templated narrative")
	f.BoolVarP(&rf.quiet, "quiet", "q", false, "only print report paths")
	f.StringVar(&rf.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (auto-detect if omitted)")
	f.StringVar(&rf.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma'")
	f.StringVar(&rf.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space'")
	f.StringVar(&rf.sheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	f.IntVar(&rf.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}

// applyFlagOverrides copies explicitly set flags onto c.
func applyFlagOverrides(fs *pflag.FlagSet, c *cfgpkg.Global) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "output":
			c.OutputDir = rf.outputDir
			c.RunsDir = filepath.Join(rf.outputDir, ".runs")
		case "format":
			c.Formats = rf.formats
		case "contamination":
			c.Contamination = rf.contamination
		case "estimators":
			c.Estimators = rf.estimators
		case "seed":
			c.Seed = rf.seed
		case "provider":
			c.Provider = strings.ToLower(strings.TrimSpace(rf.provider))
		case "model":
			c.Model = rf.model
		case "workers":
			c.Workers = rf.workers
		}
	})
}

// loadOptions maps the loader flags onto table.Options.
func loadOptions(c *cfgpkg.Global) (table.Options, error) {
	opt := c.LoadOptions()
	switch rf.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", rf.delimiter)
	}
	switch strings.ToLower(strings.TrimSpace(rf.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", rf.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(rf.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", rf.thousands)
	}
	opt.SheetName = rf.sheetName
	opt.SheetIndex = rf.sheetIndex
	return opt, nil
}

// buildNarrator returns nil when the templated narrative should be used.
func buildNarrator(c *cfgpkg.Global, noNarrative bool) (insight.Narrator, error) {
	if noNarrative || !c.NarrativeEnabled() {
		return nil, nil
	}
	rt, err := ai.NewRuntime(c.Provider, c.RuntimeConfig())
	if err != nil {
		return nil, err
	}
	return insight.NewLLMNarrator(rt, c.Model, c.Temperature, c.MaxTokens), nil
}

func newPipeline(c *cfgpkg.Global) (*pipeline.Pipeline, error) {
	opt, err := loadOptions(c)
	if err != nil {
		return nil, err
	}
	narrator, err := buildNarrator(c, rf.noNarrative)
	if err != nil {
		return nil, err
	}
	return pipeline.New(pipeline.Options{
		Anomaly:          c.AnomalyConfig(),
		Load:             opt,
		Narrator:         narrator,
		NarrativeTimeout: c.NarrativeTimeout(),
		OutputDir:        c.OutputDir,
		Formats:          c.Formats,
		RunsDir:          c.RunsDir,
	})
}

func printWarnings(w io.Writer, c *cfgpkg.Global) {
	if rf.noNarrative || rf.quiet {
		return
	}
	for _, msg := range c.Warnings() {
		fmt.Fprintf(w, "⚠ Warning: %s\n", msg)
	}
}

// printResult writes the user-facing summary of one run.
func printResult(w io.Writer, res *pipeline.Result) {
	if rf.quiet {
		for _, f := range report.Formats {
			if p, ok := res.Outputs[f]; ok {
				fmt.Fprintln(w, p)
			}
		}
		return
	}
	a := res.Anomalies
	fmt.Fprintf(w, "✓ %s: %s records, %s anomalies (%s)\n", filepath.Base(res.Source),
		report.FormatCount(a.TotalRows), report.FormatCount(a.AnomalyCount), report.FormatPercent(a.AnomalyPercentage))
	if res.Narrative.Source == insight.SourceFallback {
		fmt.Fprintln(w, "⚠ Narrative: templated summary (language model not used)")
	}
	for _, f := range report.Formats {
		if p, ok := res.Outputs[f]; ok {
			fmt.Fprintf(w, "  %s → %s\n", f, p)
		}
	}
}
