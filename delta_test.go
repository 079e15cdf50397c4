package assay

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanScoreDoc(sitesTotal, instrumented int, sites []CallSite, score float64, grade string) *ScanScore {
	return &ScanScore{
		Scan: &Report{
			Summary: Summary{
				SitesTotal:     sitesTotal,
				Instrumented:   instrumented,
				Uninstrumented: sitesTotal - instrumented,
			},
			Sites: sites,
		},
		Score: &ScoreResult{Score: score, Grade: grade},
	}
}

func TestComputeDeltaMetrics(t *testing.T) {
	base := scanScoreDoc(10, 5, nil, 70.0, "C")
	head := scanScoreDoc(12, 9, nil, 82.5, "B")

	d := ComputeDelta(base, head)

	assert.Equal(t, Metric{Base: 10, Head: 12, Delta: 2}, d.Delta.SitesTotal)
	assert.Equal(t, Metric{Base: 5, Head: 9, Delta: 4}, d.Delta.Instrumented)
	assert.Equal(t, Metric{Base: 5, Head: 3, Delta: -2}, d.Delta.Uninstrumented)
	assert.Equal(t, ScoreMetric{Base: 70.0, Head: 82.5, Delta: 12.5}, d.Delta.Score)
	assert.Equal(t, GradeChange{Base: "C", Head: "B"}, d.Delta.Grade)
	assert.Equal(t, CoverageMetric{Base: 50.0, Head: 75.0}, d.Delta.CoveragePct)
	assert.False(t, d.Regressed)
	assert.Empty(t, d.NewUninstrumented)
}

func TestComputeDeltaRegression(t *testing.T) {
	base := scanScoreDoc(4, 4, nil, 90.0, "A")
	head := scanScoreDoc(4, 2, nil, 72.5, "C")

	d := ComputeDelta(base, head)

	assert.Equal(t, -17.5, d.Delta.Score.Delta)
	assert.True(t, d.Regressed)
}

func TestCoveragePctZeroSites(t *testing.T) {
	base := scanScoreDoc(0, 0, nil, 65.0, "D")
	head := scanScoreDoc(2, 1, nil, 82.5, "B")

	d := ComputeDelta(base, head)

	assert.Equal(t, float64(0), d.Delta.CoveragePct.Base)
	assert.Equal(t, 50.0, d.Delta.CoveragePct.Head)
}

func TestNewUninstrumentedSites(t *testing.T) {
	baseSites := []CallSite{
		{File: "svc/llm.py", Line: 10, Call: "old.generate", Provider: "cohere", Instrumented: false},
	}
	headSites := []CallSite{
		// Same identity as base: not new.
		{File: "svc/llm.py", Line: 10, Call: "old.generate", Provider: "cohere", Instrumented: false},
		// New and bare: listed.
		{File: "svc/llm.py", Line: 42, Call: "client.messages.create", Provider: "anthropic", Instrumented: false},
		// New but instrumented: not listed.
		{File: "svc/new.py", Line: 7, Call: "OpenAI", Provider: "openai", Instrumented: true},
	}
	base := scanScoreDoc(1, 0, baseSites, 60.0, "D")
	head := scanScoreDoc(3, 1, headSites, 65.0, "D")

	d := ComputeDelta(base, head)

	require.Len(t, d.NewUninstrumented, 1)
	assert.Equal(t, NewSite{File: "svc/llm.py", Line: "42", Call: "client.messages.create", Provider: "anthropic"}, d.NewUninstrumented[0])
}

func TestNewUninstrumentedSitesCapped(t *testing.T) {
	var headSites []CallSite
	for i := 1; i <= 15; i++ {
		headSites = append(headSites, CallSite{
			File: "a.py", Line: i, Call: "client.generate", Provider: "cohere",
		})
	}
	base := scanScoreDoc(0, 0, nil, 60.0, "D")
	head := scanScoreDoc(15, 0, headSites, 55.0, "F")

	d := ComputeDelta(base, head)

	assert.Len(t, d.NewUninstrumented, 10)
	assert.Equal(t, "1", d.NewUninstrumented[0].Line)
	assert.Equal(t, "10", d.NewUninstrumented[9].Line)
}

func TestParseScanScoreFullDocument(t *testing.T) {
	doc := `{
		"scan": {
			"summary": {"files_scanned": 2, "sites_total": 3, "instrumented": 1, "uninstrumented": 2},
			"sites": [{"file": "a.py", "line": 4, "col": 1, "call": "x", "provider": "openai", "instrumented": false}]
		},
		"score": {"score": 77.5, "grade": "C"}
	}`
	ss, err := ParseScanScore([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, 3, ss.summary().SitesTotal)
	assert.Len(t, ss.siteList(), 1)
	assert.Equal(t, 77.5, ss.scoreValue())
	assert.Equal(t, "C", ss.gradeValue())
}

func TestParseScanScoreBareReport(t *testing.T) {
	// A bare report still contributes site identities, but its counts are
	// not lifted into the summary.
	doc := `{
		"scan_status": "fail",
		"summary": {"sites_total": 2, "instrumented": 0, "uninstrumented": 2},
		"sites": [
			{"file": "a.py", "line": 1, "call": "x"},
			{"file": "a.py", "line": 2, "call": "y"}
		]
	}`
	ss, err := ParseScanScore([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, 0, ss.summary().SitesTotal)
	assert.Len(t, ss.siteList(), 2)
	assert.Equal(t, float64(0), ss.scoreValue())
	assert.Equal(t, "?", ss.gradeValue())
}

func TestParseScanScoreInlineSummary(t *testing.T) {
	doc := `{"scan": {"sites_total": 5, "instrumented": 2, "uninstrumented": 3}}`
	ss, err := ParseScanScore([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, Summary{SitesTotal: 5, Instrumented: 2, Uninstrumented: 3}, ss.summary())
}

func TestParseScanScoreInvalid(t *testing.T) {
	_, err := ParseScanScore([]byte("not json"))
	assert.ErrorIs(t, err, ErrBadInput)
}

func TestLoadScanScoreMissingFile(t *testing.T) {
	_, err := LoadScanScore(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, ErrBadInput)
}

func TestMarkdownWithNewSites(t *testing.T) {
	baseSites := []CallSite{
		{File: "svc/llm.py", Line: 10, Call: "old.generate", Provider: "cohere"},
	}
	headSites := []CallSite{
		{File: "svc/llm.py", Line: 10, Call: "old.generate", Provider: "cohere"},
		{File: "svc/llm.py", Line: 42, Call: "client.messages.create", Provider: "anthropic"},
		{File: "svc/new.py", Line: 7, Call: "OpenAI", Provider: "openai", Instrumented: true},
	}
	base := scanScoreDoc(4, 2, baseSites, 62.5, "D")
	head := scanScoreDoc(6, 3, headSites, 71.0, "C")

	md := ComputeDelta(base, head).Markdown()

	want := strings.Join([]string{
		"## Evidence Readiness Score Delta",
		"",
		"| Metric | Base | Head | Delta |",
		"|--------|------|------|-------|",
		"| **Score** | 62.5 | 71.0 | +8.5 [improved] |",
		"| **Grade** | D | C | D -> C |",
		"| Call Sites | 4 | 6 | +2 |",
		"| Instrumented | 2 | 3 | +1 |",
		"| Uninstrumented | 2 | 3 | +1 |",
		"| Coverage | 50.0% | 50.0% | +0.0% |",
		"",
		"### New Uninstrumented Call Sites",
		"",
		"| File | Line | Call | Provider |",
		"|------|------|------|----------|",
		"| `svc/llm.py` | 42 | `client.messages.create` | anthropic |",
		"",
		"> Fix: `pip install assay-ai && assay patch .` to auto-instrument these sites.",
		"",
		"---",
		"*Generated by [Assay Scorecard](https://haserjian.github.io/assay-scorecard/) | [Methodology](https://haserjian.github.io/assay-scorecard/methodology.html)*",
	}, "\n")
	assert.Equal(t, want, md)
}

func TestMarkdownRegressedNoNewSites(t *testing.T) {
	base := scanScoreDoc(4, 4, nil, 90.0, "A")
	head := scanScoreDoc(4, 3, nil, 81.3, "B")

	md := ComputeDelta(base, head).Markdown()

	want := strings.Join([]string{
		"## Evidence Readiness Score Delta",
		"",
		"| Metric | Base | Head | Delta |",
		"|--------|------|------|-------|",
		"| **Score** | 90.0 | 81.3 | -8.7 [regressed] |",
		"| **Grade** | A | B | A -> B |",
		"| Call Sites | 4 | 4 | +0 |",
		"| Instrumented | 4 | 3 | -1 |",
		"| Uninstrumented | 0 | 1 | +1 |",
		"| Coverage | 100.0% | 75.0% | -25.0% |",
		"",
		"---",
		"*Generated by [Assay Scorecard](https://haserjian.github.io/assay-scorecard/) | [Methodology](https://haserjian.github.io/assay-scorecard/methodology.html)*",
	}, "\n")
	assert.Equal(t, want, md)
}

func TestMarkdownUnchangedGrade(t *testing.T) {
	base := scanScoreDoc(2, 1, nil, 70.0, "C")
	head := scanScoreDoc(2, 1, nil, 70.0, "C")

	md := ComputeDelta(base, head).Markdown()

	assert.Contains(t, md, "| **Score** | 70.0 | 70.0 | +0.0 |\n")
	assert.Contains(t, md, "| **Grade** | C | C | C |\n")
	assert.NotContains(t, md, "[improved]")
	assert.NotContains(t, md, "[regressed]")
}

func TestDeltaReportJSONShape(t *testing.T) {
	d := ComputeDelta(scanScoreDoc(2, 1, nil, 70.0, "C"), scanScoreDoc(2, 2, nil, 90.0, "A"))
	data, err := json.Marshal(d)
	require.NoError(t, err)

	// coverage_pct carries only the endpoints, and an empty site list
	// marshals as [], not null.
	want := `{
		"delta": {
			"sites_total": {"base": 2, "head": 2, "delta": 0},
			"instrumented": {"base": 1, "head": 2, "delta": 1},
			"uninstrumented": {"base": 1, "head": 0, "delta": -1},
			"score": {"base": 70, "head": 90, "delta": 20},
			"grade": {"base": "C", "head": "A"},
			"coverage_pct": {"base": 50, "head": 100}
		},
		"new_uninstrumented_sites": [],
		"regressed": false
	}`
	assert.JSONEq(t, want, string(data))
}
