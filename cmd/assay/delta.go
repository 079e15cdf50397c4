package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/haserjian/assay"
	"github.com/haserjian/assay/internal/store"
)

var (
	flagBase      string
	flagHead      string
	flagBaseRun   int64
	flagHeadRun   int64
	flagOutput    string
	flagFailOnReg bool
)

var deltaCmd = &cobra.Command{
	Use:   "delta",
	Short: "Compare two scan/score results",
	Long: "Compares a base and a head scan/score document metric by metric and lists\n" +
		"newly uninstrumented call sites. Each side comes from a JSON file written by\n" +
		"'assay score' or from a saved history run. With --format text the result is\n" +
		"a markdown table suitable for a PR comment. Unreadable input exits 3.",
	Args: cobra.NoArgs,
	RunE: runDelta,
}

func init() {
	deltaCmd.Flags().StringVar(&flagBase, "base", "", "base revision scan/score JSON file")
	deltaCmd.Flags().StringVar(&flagHead, "head", "", "head revision scan/score JSON file")
	deltaCmd.Flags().Int64Var(&flagBaseRun, "base-run", 0, "saved history run ID for the base side")
	deltaCmd.Flags().Int64Var(&flagHeadRun, "head-run", 0, "saved history run ID for the head side")
	deltaCmd.Flags().StringVar(&flagOutput, "output", "", "write the result to a file instead of stdout")
	deltaCmd.Flags().BoolVar(&flagFailOnReg, "fail-on-regression", false, "exit 1 if the score decreased")
	rootCmd.AddCommand(deltaCmd)
}

func runDelta(cmd *cobra.Command, args []string) error {
	var st *store.Store
	if flagBaseRun > 0 || flagHeadRun > 0 {
		var err error
		st, err = openHistory()
		if err != nil {
			return fmt.Errorf("%w: %v", assay.ErrBadInput, err)
		}
		defer st.Close()
	}

	base, err := deltaInput(st, "base", flagBase, flagBaseRun)
	if err != nil {
		return err
	}
	head, err := deltaInput(st, "head", flagHead, flagHeadRun)
	if err != nil {
		return err
	}

	rep := assay.ComputeDelta(base, head)

	var out string
	if viper.GetString(formatKey) == "text" {
		out = rep.Markdown()
	} else {
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding delta: %w", err)
		}
		out = string(data)
	}

	if flagOutput != "" {
		if err := os.WriteFile(flagOutput, []byte(out), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", flagOutput, err)
		}
	} else {
		fmt.Println(out)
	}

	if flagFailOnReg && rep.Regressed {
		d := rep.Delta.Score
		return fmt.Errorf("%w: %.1f -> %.1f", assay.ErrRegression, d.Base, d.Head)
	}
	return nil
}

// deltaInput loads one side of the comparison from a file or a saved run.
func deltaInput(st *store.Store, side, file string, runID int64) (*assay.ScanScore, error) {
	switch {
	case file != "" && runID > 0:
		return nil, fmt.Errorf("--%s and --%s-run are mutually exclusive", side, side)
	case runID > 0:
		run, err := st.RunByID(runID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s run %d: %v", assay.ErrBadInput, side, runID, err)
		}
		if run == nil {
			return nil, fmt.Errorf("%w: %s run %d not found", assay.ErrBadInput, side, runID)
		}
		return assay.RunDocument(run)
	case file != "":
		ss, err := assay.LoadScanScore(file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", side, err)
		}
		return ss, nil
	default:
		return nil, fmt.Errorf("either --%s or --%s-run is required", side, side)
	}
}

// openHistory opens the existing history database for read-only commands.
func openHistory() (*store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("history database not found: %s (run 'assay scan --save' first)", dbPath)
	}
	return store.NewStore(dbPath)
}
