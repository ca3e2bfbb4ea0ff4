package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/insightloom/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory and analyze every new CSV/TSV/XLSX file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cfg.WatchDir
		if len(args) == 1 {
			dir = args[0]
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create watch dir: %w", err)
		}
		p, err := newPipeline(cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printWarnings(cmd.ErrOrStderr(), cfg)
		if !rf.quiet {
			fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", dir)
		}
		w := watch.New(dir, func(ctx context.Context, path string) error {
			res, err := p.RunFile(ctx, path)
			if err != nil {
				return err
			}
			printResult(out, res)
			return nil
		}, watch.Options{Settle: cfg.Settle()})
		return w.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addRunFlags(watchCmd)
}
