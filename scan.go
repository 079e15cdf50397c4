package assay

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/haserjian/assay/internal/checks"
	"github.com/haserjian/assay/internal/pyscan"
)

// fileResult carries one file's analysis out of the worker pool.
type fileResult struct {
	path string // repo-relative
	res  *pyscan.Result
	err  error
}

// Scan analyzes every Python file under root using a three-phase pipeline:
//
//	Phase A (serial):  discover Python files via git, falling back to a walk.
//	Phase B (parallel): parse and analyze via worker pool, one Analyzer each.
//	Phase C (serial):  aggregate per-file results into a Report.
//
// Files that cannot be read or parsed are recorded as warnings and skipped;
// the scan continues. The report is deterministic for a fixed tree regardless
// of worker scheduling.
func (e *Engine) Scan(ctx context.Context, root string) (*Report, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("assay: resolve root: %w", err)
	}

	// ---- Phase A: Serial discovery ----
	paths, err := e.discoverFiles(absRoot)
	if err != nil {
		return nil, fmt.Errorf("assay: discover files: %w", err)
	}

	// ---- Phase B: Parallel analysis ----
	numWorkers := e.numWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > len(paths) {
		numWorkers = len(paths)
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	workCh := make(chan string, len(paths))
	for _, p := range paths {
		workCh <- p
	}
	close(workCh)

	resultCh := make(chan fileResult, len(paths))
	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Analyzers hold parser state, so each worker owns one.
			an := pyscan.New(e.reg)
			defer an.Close()
			for p := range workCh {
				res, err := analyzeFile(ctx, an, absRoot, p)
				resultCh <- fileResult{path: p, res: res, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: Serial aggregation ----
	var (
		sites    []CallSite
		warnings []Warning
		scanned  int
	)
	frameworks := map[string]bool{}
	for r := range resultCh {
		if r.err != nil {
			e.log.Warn("skipping file", "file", r.path, "err", r.err)
			warnings = append(warnings, Warning{File: r.path, Reason: r.err.Error()})
			continue
		}
		scanned++
		for _, s := range r.res.Sites {
			sites = append(sites, CallSite{
				File:         r.path,
				Line:         s.Line,
				Col:          s.Col,
				Call:         s.Call,
				Provider:     s.Provider,
				Instrumented: s.Instrumented,
				Construct:    s.Construct,
			})
		}
		for _, fw := range r.res.Frameworks {
			frameworks[fw] = true
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(warnings, func(i, j int) bool {
		return warnings[i].File < warnings[j].File
	})
	fwList := make([]string, 0, len(frameworks))
	for name := range frameworks {
		fwList = append(fwList, name)
	}
	sort.Strings(fwList)

	rep := buildReport(absRoot, e.reg.Fingerprint(), scanned, sites, fwList, warnings, e.reg.ProviderNames())
	e.log.Debug("scan complete",
		"root", absRoot,
		"files", rep.Summary.FilesScanned,
		"sites", rep.Summary.SitesTotal,
		"uninstrumented", rep.Summary.Uninstrumented,
	)
	return rep, nil
}

func analyzeFile(ctx context.Context, an *pyscan.Analyzer, root, rel string) (*pyscan.Result, error) {
	src, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return an.Analyze(ctx, src)
}

// Score scans root and runs the four auxiliary checks concurrently, then
// folds both into the weighted composite score.
func (e *Engine) Score(ctx context.Context, root string) (*Report, *ScoreResult, error) {
	var (
		rep *Report
		aux *checks.Results
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rep, err = e.Scan(ctx, root)
		return err
	})
	g.Go(func() error {
		var err error
		aux, err = checks.RunAll(ctx, root)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return rep, ComputeScore(rep, aux), nil
}
