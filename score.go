package assay

import (
	"fmt"

	"github.com/haserjian/assay/internal/checks"
)

// Component weights. They sum to 1.
const (
	WeightCoverage = 0.35
	WeightLockfile = 0.15
	WeightCIGate   = 0.20
	WeightReceipts = 0.20
	WeightKeySetup = 0.10
)

// Component is one scored dimension of the breakdown.
type Component struct {
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
	Detail string  `json:"detail,omitempty"`
}

// Breakdown holds the five component scores that make up the final score.
type Breakdown struct {
	Coverage Component `json:"coverage"`
	Lockfile Component `json:"lockfile"`
	CIGate   Component `json:"ci_gate"`
	Receipts Component `json:"receipts"`
	KeySetup Component `json:"key_setup"`
}

// ScoreResult is the final score, letter grade and per-component breakdown.
// Capped reports that the grade was lowered to D by the receipts rule even
// though the numeric score earned a higher letter.
type ScoreResult struct {
	Score     float64   `json:"score"`
	Grade     string    `json:"grade"`
	Capped    bool      `json:"capped"`
	Breakdown Breakdown `json:"breakdown"`
}

// ComputeScore folds a scan report and the auxiliary check results into the
// weighted composite score. A repository with zero receipt files cannot grade
// above D no matter how high the numeric score lands; the score itself is
// reported as computed.
func ComputeScore(rep *Report, aux *checks.Results) *ScoreResult {
	b := Breakdown{
		Coverage: Component{Score: round1(rep.Coverage()), Weight: WeightCoverage, Detail: coverageDetail(rep)},
		Lockfile: component(aux.Lockfile, WeightLockfile),
		CIGate:   component(aux.CIGate, WeightCIGate),
		Receipts: component(aux.Receipts, WeightReceipts),
		KeySetup: component(aux.KeySetup, WeightKeySetup),
	}
	score := round1(weightedSum(b))
	grade, capped := gradeFor(score, b)
	return &ScoreResult{Score: score, Grade: grade, Capped: capped, Breakdown: b}
}

func component(r checks.Result, weight float64) Component {
	return Component{Score: float64(r.Score), Weight: weight, Detail: r.Detail}
}

func coverageDetail(rep *Report) string {
	if rep.Summary.SitesTotal == 0 {
		return "no call sites detected"
	}
	return fmt.Sprintf("%d of %d call sites instrumented", rep.Summary.Instrumented, rep.Summary.SitesTotal)
}

func weightedSum(b Breakdown) float64 {
	return b.Coverage.Score*b.Coverage.Weight +
		b.Lockfile.Score*b.Lockfile.Weight +
		b.CIGate.Score*b.CIGate.Weight +
		b.Receipts.Score*b.Receipts.Weight +
		b.KeySetup.Score*b.KeySetup.Weight
}

// gradeFor buckets the score into a letter and applies the receipts cap. The
// cap is a post-processing step, never a change to the weighted sum.
func gradeFor(score float64, b Breakdown) (grade string, capped bool) {
	grade = letterGrade(score)
	if b.Receipts.Score == 0 {
		switch grade {
		case "A", "B", "C":
			return "D", true
		}
	}
	return grade, false
}

func letterGrade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}
