package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/haserjian/assay"
	"github.com/haserjian/assay/internal/store"
)

var flagScanSave bool

var scanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "Scan a repository for LLM SDK call sites",
	Long: "Discovers Python files (respecting .gitignore when git is available), parses\n" +
		"each one, and reports every provider SDK call site with its instrumentation\n" +
		"status. A scan that finds uninstrumented sites still succeeds; only the exit\n" +
		"code carries the gate.",
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&flagScanSave, "save", false, "persist the run (scored) to the history database")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	root, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	eng, err := newEngine()
	if err != nil {
		return err
	}

	var rep *assay.Report
	if flagScanSave {
		// Saved runs carry a score, so run the aux checks too.
		scored, sc, err := eng.Score(cmd.Context(), root)
		if err != nil {
			return fmt.Errorf("scanning: %w", err)
		}
		if err := saveRun(root, scored, sc); err != nil {
			return err
		}
		rep = scored
	} else {
		rep, err = eng.Scan(cmd.Context(), root)
		if err != nil {
			return fmt.Errorf("scanning: %w", err)
		}
	}

	if err := outputReport(rep); err != nil {
		return err
	}
	if rep.Summary.Uninstrumented > 0 {
		// The report is the output; the exit code alone carries the gate.
		errorHandled = true
		return assay.ErrUninstrumented
	}
	return nil
}

// openStore opens the history database near root, creating it if needed.
func openStore(root string) (*store.Store, error) {
	dbPath := resolveDBPath(findRepoRoot(root))
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	st, err := store.NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// saveRun persists a scored run to the history database near root. When a
// previous run exists for the same root, the confirmation notes the movement.
func saveRun(root string, rep *assay.Report, sc *assay.ScoreResult) error {
	st, err := openStore(root)
	if err != nil {
		return err
	}
	defer st.Close()

	prev, err := st.LatestRunForRoot(rep.Root)
	if err != nil {
		return err
	}
	run, err := assay.SaveRun(st, rep, sc)
	if err != nil {
		return err
	}
	if prev != nil {
		fmt.Fprintf(os.Stderr, "Saved run %d (score %.1f, grade %s, %+.1f since run %d)\n",
			run.ID, run.Score, run.Grade, run.Score-prev.Score, prev.ID)
	} else {
		fmt.Fprintf(os.Stderr, "Saved run %d (score %.1f, grade %s)\n", run.ID, run.Score, run.Grade)
	}
	return nil
}
