package assay

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/haserjian/assay/internal/store"
)

// SaveRun persists a scan and its score as one history run. The combined
// scan+score document is stored alongside the headline numbers so past runs
// can be re-rendered or diffed.
func SaveRun(s *store.Store, rep *Report, sc *ScoreResult) (*store.Run, error) {
	doc, err := json.Marshal(&ScanScore{Scan: rep, Score: sc})
	if err != nil {
		return nil, fmt.Errorf("assay: encode run document: %w", err)
	}
	run := &store.Run{
		Root:           rep.Root,
		CreatedAt:      time.Now().UTC(),
		Version:        rep.Version,
		Fingerprint:    rep.Fingerprint,
		Score:          sc.Score,
		Grade:          sc.Grade,
		SitesTotal:     rep.Summary.SitesTotal,
		Instrumented:   rep.Summary.Instrumented,
		Uninstrumented: rep.Summary.Uninstrumented,
		ReportJSON:     doc,
	}
	if _, err := s.InsertRun(run); err != nil {
		return nil, fmt.Errorf("assay: save run: %w", err)
	}
	return run, nil
}

// RunDocument decodes the scan+score document stored with a run.
func RunDocument(run *store.Run) (*ScanScore, error) {
	ss, err := ParseScanScore(run.ReportJSON)
	if err != nil {
		return nil, fmt.Errorf("assay: decode run %d: %w", run.ID, err)
	}
	return ss, nil
}
