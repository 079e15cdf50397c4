package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flagScoreSave bool

var scoreCmd = &cobra.Command{
	Use:   "score [dir]",
	Short: "Score a repository's instrumentation evidence",
	Long: "Scans the repository, runs the auxiliary checks (lockfile, CI gate, receipts,\n" +
		"key setup) alongside, and folds everything into the weighted readiness score\n" +
		"and letter grade. A low grade is a result, not an error: the command exits 0\n" +
		"unless something prevented scoring.",
	Args: cobra.MaximumNArgs(1),
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().BoolVar(&flagScoreSave, "save", false, "persist the run to the history database")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	root, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	eng, err := newEngine()
	if err != nil {
		return err
	}

	rep, sc, err := eng.Score(cmd.Context(), root)
	if err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if flagScoreSave {
		if err := saveRun(root, rep, sc); err != nil {
			return err
		}
	}
	return outputScanScore(rep, sc)
}
