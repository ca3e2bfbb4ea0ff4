package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/insightloom/internal/report"
	"github.com/KaramelBytes/insightloom/internal/runs"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect previous analysis runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := runs.List(cfg.RunsDir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, "(no runs)")
			return nil
		}
		if runsLimit > 0 && len(list) > runsLimit {
			list = list[:runsLimit]
		}
		for _, m := range list {
			fmt.Fprintf(out, "- %s  %s  %s  %s rows, %s anomalies (%s), narrative=%s\n",
				m.ID, m.CreatedAt.Local().Format("2006-01-02 15:04:05"), filepath.Base(m.Source),
				report.FormatCount(m.TotalRows), report.FormatCount(m.AnomalyCount),
				report.FormatPercent(m.AnomalyPercentage), m.NarrativeSource)
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run and its report files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := runs.Load(cfg.RunsDir, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "id: %s\n", m.ID)
		fmt.Fprintf(out, "title: %s\n", m.Title)
		fmt.Fprintf(out, "source: %s\n", m.Source)
		fmt.Fprintf(out, "created_at: %s\n", m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
		fmt.Fprintf(out, "duration_ms: %d\n", m.DurationMs)
		fmt.Fprintf(out, "total_rows: %d\n", m.TotalRows)
		fmt.Fprintf(out, "anomalies: %d (%.2f%%)\n", m.AnomalyCount, m.AnomalyPercentage)
		fmt.Fprintf(out, "narrative: %s\n", m.NarrativeSource)
		for _, f := range report.Formats {
			if p, ok := m.Outputs[f]; ok {
				fmt.Fprintf(out, "%s: %s\n", f, p)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", 0, "show at most n runs (0 = all)")
	for _, c := range []*cobra.Command{runsListCmd, runsShowCmd} {
		c.Flags().StringVarP(&rf.outputDir, "output", "o", "", "report directory whose runs to read (overrides config)")
	}
}
