// Package checks implements the four auxiliary evidence checks that feed the
// score alongside coverage: lockfile, CI gate, receipts and key setup. Each
// check inspects the repository tree for a class of artifact and produces a
// 0-100 component score. A missing artifact scores 0; it is never an error.
package checks

import (
	"context"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// Result is one check's outcome.
type Result struct {
	Score    int    `json:"score"`              // 0-100
	Evidence string `json:"evidence,omitempty"` // repo-relative path of the artifact found
	Detail   string `json:"detail"`
	Count    int    `json:"count,omitempty"` // receipts only: number of valid receipt files
}

// Results bundles the four check outcomes for a repository.
type Results struct {
	Lockfile Result `json:"lockfile"`
	CIGate   Result `json:"ci_gate"`
	Receipts Result `json:"receipts"`
	KeySetup Result `json:"key_setup"`
}

// RunAll executes the four checks concurrently. Each check owns its slot in
// the result, so no synchronization beyond the join is needed.
func RunAll(ctx context.Context, root string) (*Results, error) {
	var res Results
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { res.Lockfile = Lockfile(root); return nil })
	g.Go(func() error { res.CIGate = CIGate(root); return nil })
	g.Go(func() error { res.Receipts = Receipts(root); return nil })
	g.Go(func() error { res.KeySetup = KeySetup(root); return nil })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &res, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// rel converts an absolute path under root to a slash-separated repo-relative
// path for evidence reporting.
func rel(root, path string) string {
	r, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(r)
}
