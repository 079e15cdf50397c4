package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"

	"github.com/haserjian/assay"
)

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}

func textMode() bool {
	return viper.GetString(formatKey) == "text"
}

// outputJSON writes v to stdout as indented JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputReport emits a scan report in the selected format.
func outputReport(rep *assay.Report) error {
	if textMode() {
		formatReportText(os.Stdout, rep)
		return nil
	}
	return outputJSON(rep)
}

// outputScanScore emits the combined scan+score document in the selected
// format. The JSON shape is what the delta command consumes.
func outputScanScore(rep *assay.Report, sc *assay.ScoreResult) error {
	if textMode() {
		formatScoreText(os.Stdout, rep, sc)
		return nil
	}
	return outputJSON(&assay.ScanScore{Scan: rep, Score: sc})
}

// outputHistory emits saved runs in the selected format.
func outputHistory(rows []historyRow) error {
	if textMode() {
		formatHistoryText(os.Stdout, rows)
		return nil
	}
	return outputJSON(rows)
}

// formatReportText renders a scan report as a summary line plus a site
// listing.
func formatReportText(w io.Writer, rep *assay.Report) {
	s := rep.Summary
	fmt.Fprintf(w, "Scanned %d files under %s: %d call sites, %d instrumented, %d bare (%.1f%% coverage)\n",
		s.FilesScanned, rep.Root, s.SitesTotal, s.Instrumented, s.Uninstrumented, rep.Coverage())

	if len(rep.Sites) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "FILE\tLINE\tCOL\tPROVIDER\tCONSTRUCT\tCALL")
		for _, site := range rep.Sites {
			construct := site.Construct
			if !site.Instrumented {
				construct = "bare"
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\n",
				site.File, site.Line, site.Col, site.Provider, construct, site.Call)
		}
		tw.Flush()
	}

	if len(rep.Frameworks) > 0 {
		fmt.Fprintf(w, "\nFrameworks detected: %s\n", strings.Join(rep.Frameworks, ", "))
	}
	if len(rep.Warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, warn := range rep.Warnings {
			fmt.Fprintf(w, "  %s: %s\n", warn.File, warn.Reason)
		}
	}
}

// formatScoreText renders the score breakdown as a table with a headline.
func formatScoreText(w io.Writer, rep *assay.Report, sc *assay.ScoreResult) {
	fmt.Fprintf(w, "Evidence readiness for %s: %.1f (grade %s)\n", rep.Root, sc.Score, sc.Grade)
	if sc.Capped {
		fmt.Fprintln(w, "Grade capped at D: no receipts found.")
	}
	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Component", "Score", "Weight", "Detail"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT,
	})

	b := sc.Breakdown
	for _, row := range []struct {
		name string
		comp assay.Component
	}{
		{"Coverage", b.Coverage},
		{"Lockfile", b.Lockfile},
		{"CI gate", b.CIGate},
		{"Receipts", b.Receipts},
		{"Key setup", b.KeySetup},
	} {
		table.Append([]string{
			row.name,
			fmt.Sprintf("%.1f", row.comp.Score),
			fmt.Sprintf("%.2f", row.comp.Weight),
			row.comp.Detail,
		})
	}
	table.SetFooter([]string{"Total", fmt.Sprintf("%.1f", sc.Score), "", "grade " + sc.Grade})
	table.Render()
}

// formatHistoryText renders saved runs as a table, most recent first.
func formatHistoryText(w io.Writer, rows []historyRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No saved runs.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Created", "Score", "Grade", "Sites", "Bare", "Root"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_CENTER, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT,
	})
	for _, r := range rows {
		table.Append([]string{
			strconv.FormatInt(r.ID, 10),
			r.CreatedAt.Format("2006-01-02 15:04"),
			fmt.Sprintf("%.1f", r.Score),
			r.Grade,
			strconv.Itoa(r.SitesTotal),
			strconv.Itoa(r.Uninstrumented),
			r.Root,
		})
	}
	table.Render()
}
