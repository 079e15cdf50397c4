package assay

import (
	"math"
	"sort"
)

// CallSite is one detected provider call, located by repo-relative file path
// and 1-based line/column.
type CallSite struct {
	File         string `json:"file"`
	Line         int    `json:"line"`
	Col          int    `json:"col"`
	Call         string `json:"call"`
	Provider     string `json:"provider"`
	Instrumented bool   `json:"instrumented"`
	Construct    string `json:"construct,omitempty"`
}

// Warning records a file that was skipped during the scan.
type Warning struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// Summary holds the repository-wide counts.
type Summary struct {
	FilesScanned   int `json:"files_scanned"`
	SitesTotal     int `json:"sites_total"`
	Instrumented   int `json:"instrumented"`
	Uninstrumented int `json:"uninstrumented"`
}

// ProviderStats is the per-provider breakdown. Every registry provider gets
// a row, including those with no detected sites.
type ProviderStats struct {
	Provider     string  `json:"provider"`
	SitesTotal   int     `json:"sites_total"`
	Instrumented int     `json:"instrumented"`
	CoveragePct  float64 `json:"coverage_pct"`
}

// FileStats is the per-file breakdown, listing only files with sites.
type FileStats struct {
	File         string `json:"file"`
	SitesTotal   int    `json:"sites_total"`
	Instrumented int    `json:"instrumented"`
}

// Report is the machine-readable scan result. scan_status is "pass" when no
// bare call sites remain; a repository with zero detected sites passes.
type Report struct {
	ScanStatus  string          `json:"scan_status"`
	Root        string          `json:"root"`
	Version     string          `json:"version"`
	Fingerprint string          `json:"registry_fingerprint"`
	Summary     Summary         `json:"summary"`
	Providers   []ProviderStats `json:"providers"`
	Files       []FileStats     `json:"files"`
	Sites       []CallSite      `json:"sites"`
	Frameworks  []string        `json:"frameworks,omitempty"`
	Warnings    []Warning       `json:"warnings,omitempty"`
}

// Coverage returns the overall instrumented percentage, 0 when no sites were
// detected.
func (r *Report) Coverage() float64 {
	if r.Summary.SitesTotal == 0 {
		return 0
	}
	return float64(r.Summary.Instrumented) / float64(r.Summary.SitesTotal) * 100
}

// buildReport aggregates per-file results into a Report. Sites are sorted by
// (file, line, col, call) so identical inputs produce identical reports.
func buildReport(root, fingerprint string, filesScanned int, sites []CallSite, frameworks []string, warnings []Warning, providers []string) *Report {
	sort.Slice(sites, func(i, j int) bool {
		a, b := sites[i], sites[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Col != b.Col {
			return a.Col < b.Col
		}
		return a.Call < b.Call
	})

	rep := &Report{
		Root:        root,
		Version:     Version,
		Fingerprint: fingerprint,
		Sites:       sites,
		Frameworks:  frameworks,
		Warnings:    warnings,
	}

	rep.Summary.FilesScanned = filesScanned
	rep.Summary.SitesTotal = len(sites)
	for _, s := range sites {
		if s.Instrumented {
			rep.Summary.Instrumented++
		}
	}
	rep.Summary.Uninstrumented = rep.Summary.SitesTotal - rep.Summary.Instrumented

	byProvider := map[string]*ProviderStats{}
	for _, name := range providers {
		byProvider[name] = &ProviderStats{Provider: name}
	}
	byFile := map[string]*FileStats{}
	for _, s := range sites {
		p := byProvider[s.Provider]
		if p == nil {
			p = &ProviderStats{Provider: s.Provider}
			byProvider[s.Provider] = p
		}
		p.SitesTotal++
		f := byFile[s.File]
		if f == nil {
			f = &FileStats{File: s.File}
			byFile[s.File] = f
		}
		f.SitesTotal++
		if s.Instrumented {
			p.Instrumented++
			f.Instrumented++
		}
	}

	rep.Providers = make([]ProviderStats, 0, len(byProvider))
	for _, p := range byProvider {
		if p.SitesTotal > 0 {
			p.CoveragePct = round1(float64(p.Instrumented) / float64(p.SitesTotal) * 100)
		}
		rep.Providers = append(rep.Providers, *p)
	}
	sort.Slice(rep.Providers, func(i, j int) bool {
		return rep.Providers[i].Provider < rep.Providers[j].Provider
	})

	rep.Files = make([]FileStats, 0, len(byFile))
	for _, f := range byFile {
		rep.Files = append(rep.Files, *f)
	}
	sort.Slice(rep.Files, func(i, j int) bool {
		return rep.Files[i].File < rep.Files[j].File
	})

	if rep.Summary.Uninstrumented == 0 {
		rep.ScanStatus = "pass"
	} else {
		rep.ScanStatus = "fail"
	}
	return rep
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
