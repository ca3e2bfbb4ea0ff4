package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/insightloom/internal/pipeline"
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV/TSV/XLSX files concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		p, err := newPipeline(cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printWarnings(cmd.ErrOrStderr(), cfg)
		if !rf.quiet {
			fmt.Fprintf(out, "Processing %d files with %d workers...\n", len(files), cfg.Workers)
		}
		items := p.RunBatch(cmd.Context(), files, cfg.Workers)
		total := len(items)
		for i, it := range items {
			if it.Err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] ✗ %s: %v\n", i+1, total, filepath.Base(it.Path), it.Err)
				continue
			}
			if !rf.quiet {
				fmt.Fprintf(out, "[%d/%d] ", i+1, total)
			}
			printResult(out, it.Result)
		}
		if n := pipeline.Failed(items); n > 0 {
			return fmt.Errorf("%d of %d files failed", n, total)
		}
		return nil
	},
}

// expandInputs resolves globs, keeps literal paths that exist, drops duplicates and
// sorts the result.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	addRunFlags(analyzeBatchCmd)
	analyzeBatchCmd.Flags().IntVarP(&rf.workers, "workers", "w", 0, "files processed concurrently (overrides config)")
}
