package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/haserjian/assay/internal/store"
)

var flagLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved scan runs, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&flagLimit, "limit", 20, "maximum runs to list")
	rootCmd.AddCommand(historyCmd)
}

// historyRow is the CLI projection of a saved run; the stored report JSON is
// omitted.
type historyRow struct {
	ID             int64     `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Root           string    `json:"root"`
	Score          float64   `json:"score"`
	Grade          string    `json:"grade"`
	SitesTotal     int       `json:"sites_total"`
	Instrumented   int       `json:"instrumented"`
	Uninstrumented int       `json:"uninstrumented"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	st, err := openHistory()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.RecentRuns(flagLimit)
	if err != nil {
		return err
	}
	return outputHistory(historyRows(runs))
}

func historyRows(runs []*store.Run) []historyRow {
	rows := make([]historyRow, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, historyRow{
			ID:             r.ID,
			CreatedAt:      r.CreatedAt,
			Root:           r.Root,
			Score:          r.Score,
			Grade:          r.Grade,
			SitesTotal:     r.SitesTotal,
			Instrumented:   r.Instrumented,
			Uninstrumented: r.Uninstrumented,
		})
	}
	return rows
}
