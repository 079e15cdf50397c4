// Package assay provides deterministic static analysis of Python repositories
// for LLM provider usage, built on tree-sitter. It detects provider SDK call
// sites, classifies each as instrumented or bare, checks the repository for
// supporting evidence artifacts, and grades the result.
//
// # Pipeline
//
// A scan operates in three phases:
//
//  1. Discover: list Python files via git ls-files (respecting .gitignore),
//     falling back to a filesystem walk that skips hidden and dependency
//     directories.
//
//  2. Analyze: parse each file with tree-sitter, resolve locally bound names
//     back to tracked SDK modules through a document-order scope chain,
//     detect call sites, and classify each site's instrumentation. Files are
//     analyzed concurrently, one parser per worker.
//
//  3. Aggregate: merge per-file results into a deterministic [Report] with
//     repository-wide, per-provider and per-file counts.
//
// # Usage
//
// Create an Engine, then scan and score:
//
//	e := assay.NewEngine()
//
//	ctx := context.Background()
//	rep, sc, err := e.Score(ctx, "path/to/project")
//	if err != nil { ... }
//
//	fmt.Println(sc.Score, sc.Grade)
//
// [Engine.Scan] runs the scan alone; [ComputeScore] folds a [Report] and the
// auxiliary check results into a [ScoreResult].
//
// # Scoring
//
// The composite score weighs five components: instrumentation coverage
// (0.35), dependency lockfile (0.15), CI gate (0.20), receipts (0.20) and
// key setup (0.10), each normalized to 0-100. Grades bucket at 90/80/70/60.
// A repository with zero receipt files is capped at grade D regardless of
// the numeric score; the score itself is reported as computed.
//
// # Registry
//
// Detection is driven by a YAML registry embedded at build time: tracked SDK
// modules per provider, recognized instrumentation constructs (decorators,
// context managers, recorders) and known framework imports. [WithRegistry]
// swaps in a registry loaded from disk. The registry fingerprint is stamped
// into every report so a score can be traced to the rules that produced it.
//
// # History and Deltas
//
// [SaveRun] persists combined scan+score documents to SQLite for later
// comparison. [ComputeDelta] diffs two documents metric by metric and
// renders a PR comment that lists newly introduced uninstrumented sites.
package assay
