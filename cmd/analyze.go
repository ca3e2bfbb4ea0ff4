package cmd

import (
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a CSV/TSV/XLSX file and write an insight report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline(cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printWarnings(cmd.ErrOrStderr(), cfg)
		res, err := p.RunFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printResult(out, res)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	addRunFlags(analyzeCmd)
}
