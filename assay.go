// Package assay provides deterministic static analysis of Python repositories
// for LLM provider usage, built on tree-sitter. It detects SDK call sites,
// classifies their instrumentation, and scores evidence readiness.
package assay

import "errors"

// Version is stamped into every report and history run. Pinned: bump
// deliberately, not silently.
const Version = "1.5.3"

// Sentinel errors callers (and cmd/assay) match with errors.Is.
var (
	// ErrUninstrumented marks a completed scan that found call sites with no
	// recognized instrumentation. The scan itself succeeded.
	ErrUninstrumented = errors.New("assay: uninstrumented call sites found")

	// ErrRegression marks a delta whose head score is below its base score.
	ErrRegression = errors.New("assay: score regressed")

	// ErrBadInput marks a scan/score document that could not be read or
	// parsed.
	ErrBadInput = errors.New("assay: unreadable input")
)
