package store

import "time"

// Run is one persisted scan: the headline numbers plus the full report JSON
// for later diffing.
type Run struct {
	ID             int64
	Root           string
	CreatedAt      time.Time
	Version        string
	Fingerprint    string
	Score          float64
	Grade          string
	SitesTotal     int
	Instrumented   int
	Uninstrumented int
	ReportJSON     []byte
}
