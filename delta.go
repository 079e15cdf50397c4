package assay

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ScanScore is the combined document that "assay score --format json" emits
// and the delta command consumes.
type ScanScore struct {
	Scan  *Report      `json:"scan"`
	Score *ScoreResult `json:"score"`
}

// ParseScanScore decodes a combined scan+score document. Degenerate shapes
// are tolerated: a bare report still contributes site identities, a "scan"
// object carrying the summary fields inline still yields counts, and a
// missing score section defaults to grade "?". Undecodable input wraps
// ErrBadInput.
func ParseScanScore(data []byte) (*ScanScore, error) {
	var doc struct {
		Scan  json.RawMessage `json:"scan"`
		Score *ScoreResult    `json:"score"`
		Sites []CallSite      `json:"sites"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse scan/score document: %v", ErrBadInput, err)
	}

	ss := &ScanScore{Score: doc.Score}
	if len(doc.Scan) > 0 {
		var rep Report
		if err := json.Unmarshal(doc.Scan, &rep); err != nil {
			return nil, fmt.Errorf("%w: parse scan section: %v", ErrBadInput, err)
		}
		var probe struct {
			Summary *Summary `json:"summary"`
		}
		_ = json.Unmarshal(doc.Scan, &probe)
		if probe.Summary == nil {
			// Older emitters inlined the summary fields under "scan".
			_ = json.Unmarshal(doc.Scan, &rep.Summary)
		}
		ss.Scan = &rep
	} else if len(doc.Sites) > 0 {
		ss.Scan = &Report{Sites: doc.Sites}
	}
	return ss, nil
}

// LoadScanScore reads and parses a combined scan+score JSON file.
func LoadScanScore(path string) (*ScanScore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadInput, err)
	}
	return ParseScanScore(data)
}

func (s *ScanScore) summary() Summary {
	if s == nil || s.Scan == nil {
		return Summary{}
	}
	return s.Scan.Summary
}

func (s *ScanScore) siteList() []CallSite {
	if s == nil || s.Scan == nil {
		return nil
	}
	return s.Scan.Sites
}

func (s *ScanScore) scoreValue() float64 {
	if s == nil || s.Score == nil {
		return 0
	}
	return s.Score.Score
}

func (s *ScanScore) gradeValue() string {
	if s == nil || s.Score == nil || s.Score.Grade == "" {
		return "?"
	}
	return s.Score.Grade
}

// Metric is a before/after pair for one count.
type Metric struct {
	Base  int `json:"base"`
	Head  int `json:"head"`
	Delta int `json:"delta"`
}

// ScoreMetric is the before/after score pair.
type ScoreMetric struct {
	Base  float64 `json:"base"`
	Head  float64 `json:"head"`
	Delta float64 `json:"delta"`
}

// GradeChange holds the two letter grades; rendering shows "B -> A".
type GradeChange struct {
	Base string `json:"base"`
	Head string `json:"head"`
}

// CoverageMetric carries only the two endpoints; the delta column is derived
// at render time.
type CoverageMetric struct {
	Base float64 `json:"base"`
	Head float64 `json:"head"`
}

// Delta is the metric-by-metric comparison of two scan/score documents.
type Delta struct {
	SitesTotal     Metric         `json:"sites_total"`
	Instrumented   Metric         `json:"instrumented"`
	Uninstrumented Metric         `json:"uninstrumented"`
	Score          ScoreMetric    `json:"score"`
	Grade          GradeChange    `json:"grade"`
	CoveragePct    CoverageMetric `json:"coverage_pct"`
}

// NewSite identifies an uninstrumented call site present in head but not in
// base. Line is a string so an unknown line renders as "?".
type NewSite struct {
	File     string `json:"file"`
	Line     string `json:"line"`
	Call     string `json:"call"`
	Provider string `json:"provider"`
}

// DeltaReport compares the scan/score output of two revisions, built for PR
// workflows.
type DeltaReport struct {
	Delta             Delta     `json:"delta"`
	NewUninstrumented []NewSite `json:"new_uninstrumented_sites"`
	Regressed         bool      `json:"regressed"`
}

// newSiteCap keeps the PR comment readable.
const newSiteCap = 10

// ComputeDelta compares base and head scan/score documents.
func ComputeDelta(base, head *ScanScore) *DeltaReport {
	bs, hs := base.summary(), head.summary()
	bScore, hScore := base.scoreValue(), head.scoreValue()

	d := Delta{
		SitesTotal:     Metric{Base: bs.SitesTotal, Head: hs.SitesTotal, Delta: hs.SitesTotal - bs.SitesTotal},
		Instrumented:   Metric{Base: bs.Instrumented, Head: hs.Instrumented, Delta: hs.Instrumented - bs.Instrumented},
		Uninstrumented: Metric{Base: bs.Uninstrumented, Head: hs.Uninstrumented, Delta: hs.Uninstrumented - bs.Uninstrumented},
		Score:          ScoreMetric{Base: bScore, Head: hScore, Delta: round1(hScore - bScore)},
		Grade:          GradeChange{Base: base.gradeValue(), Head: head.gradeValue()},
		CoveragePct:    CoverageMetric{Base: coveragePct(bs), Head: coveragePct(hs)},
	}

	return &DeltaReport{
		Delta:             d,
		NewUninstrumented: newUninstrumented(base, head),
		Regressed:         d.Score.Delta < 0,
	}
}

func coveragePct(s Summary) float64 {
	if s.SitesTotal == 0 {
		return 0
	}
	return round1(float64(s.Instrumented) / float64(s.SitesTotal) * 100)
}

// newUninstrumented lists head's uninstrumented sites whose file:line:call
// identity does not appear anywhere in base, capped at newSiteCap.
func newUninstrumented(base, head *ScanScore) []NewSite {
	seen := make(map[string]bool)
	for _, s := range base.siteList() {
		seen[siteKey(s)] = true
	}

	out := make([]NewSite, 0)
	for _, s := range head.siteList() {
		if s.Instrumented || seen[siteKey(s)] {
			continue
		}
		out = append(out, NewSite{
			File:     orUnknown(s.File),
			Line:     lineLabel(s.Line),
			Call:     orUnknown(s.Call),
			Provider: orUnknown(s.Provider),
		})
		if len(out) == newSiteCap {
			break
		}
	}
	return out
}

func siteKey(s CallSite) string {
	return fmt.Sprintf("%s:%d:%s", s.File, s.Line, s.Call)
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

func lineLabel(n int) string {
	if n == 0 {
		return "?"
	}
	return strconv.Itoa(n)
}

// Markdown renders the delta as a PR comment.
func (r *DeltaReport) Markdown() string {
	var b strings.Builder
	d := r.Delta

	b.WriteString("## Evidence Readiness Score Delta\n\n")

	scoreIcon := ""
	switch {
	case d.Score.Delta > 0:
		scoreIcon = " [improved]"
	case d.Score.Delta < 0:
		scoreIcon = " [regressed]"
	}

	b.WriteString("| Metric | Base | Head | Delta |\n")
	b.WriteString("|--------|------|------|-------|\n")
	fmt.Fprintf(&b, "| **Score** | %.1f | %.1f | %+.1f%s |\n", d.Score.Base, d.Score.Head, d.Score.Delta, scoreIcon)

	gradeChange := d.Grade.Head
	if d.Grade.Base != d.Grade.Head {
		gradeChange = d.Grade.Base + " -> " + d.Grade.Head
	}
	fmt.Fprintf(&b, "| **Grade** | %s | %s | %s |\n", d.Grade.Base, d.Grade.Head, gradeChange)

	fmt.Fprintf(&b, "| Call Sites | %d | %d | %+d |\n", d.SitesTotal.Base, d.SitesTotal.Head, d.SitesTotal.Delta)
	fmt.Fprintf(&b, "| Instrumented | %d | %d | %+d |\n", d.Instrumented.Base, d.Instrumented.Head, d.Instrumented.Delta)
	fmt.Fprintf(&b, "| Uninstrumented | %d | %d | %+d |\n", d.Uninstrumented.Base, d.Uninstrumented.Head, d.Uninstrumented.Delta)
	fmt.Fprintf(&b, "| Coverage | %.1f%% | %.1f%% | %+.1f%% |\n", d.CoveragePct.Base, d.CoveragePct.Head, d.CoveragePct.Head-d.CoveragePct.Base)

	if len(r.NewUninstrumented) > 0 {
		b.WriteString("\n### New Uninstrumented Call Sites\n\n")
		b.WriteString("| File | Line | Call | Provider |\n")
		b.WriteString("|------|------|------|----------|\n")
		for _, s := range r.NewUninstrumented {
			fmt.Fprintf(&b, "| `%s` | %s | `%s` | %s |\n", s.File, s.Line, s.Call, s.Provider)
		}
		b.WriteString("\n> Fix: `pip install assay-ai && assay patch .` to auto-instrument these sites.\n")
	}

	b.WriteString("\n---\n")
	b.WriteString("*Generated by [Assay Scorecard](https://haserjian.github.io/assay-scorecard/) | [Methodology](https://haserjian.github.io/assay-scorecard/methodology.html)*")

	return b.String()
}
