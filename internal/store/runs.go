package store

import (
	"database/sql"
	"fmt"
)

const runColumns = "id, root, created_at, version, fingerprint, score, grade, sites_total, instrumented, uninstrumented, report_json"

func (s *Store) InsertRun(r *Run) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO runs (root, created_at, version, fingerprint, score, grade,
			sites_total, instrumented, uninstrumented, report_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Root, r.CreatedAt, r.Version, r.Fingerprint, r.Score, r.Grade,
		r.SitesTotal, r.Instrumented, r.Uninstrumented, r.ReportJSON,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	r.ID = id
	return id, nil
}

func (s *Store) RunByID(id int64) (*Run, error) {
	r := &Run{}
	err := s.db.QueryRow(
		"SELECT "+runColumns+" FROM runs WHERE id = ?", id,
	).Scan(&r.ID, &r.Root, &r.CreatedAt, &r.Version, &r.Fingerprint, &r.Score, &r.Grade,
		&r.SitesTotal, &r.Instrumented, &r.Uninstrumented, &r.ReportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("run by id: %w", err)
	}
	return r, nil
}

// LatestRunForRoot returns the newest run recorded for a scanned root, or
// nil when none exists.
func (s *Store) LatestRunForRoot(root string) (*Run, error) {
	r := &Run{}
	err := s.db.QueryRow(
		"SELECT "+runColumns+" FROM runs WHERE root = ? ORDER BY created_at DESC, id DESC LIMIT 1", root,
	).Scan(&r.ID, &r.Root, &r.CreatedAt, &r.Version, &r.Fingerprint, &r.Score, &r.Grade,
		&r.SitesTotal, &r.Instrumented, &r.Uninstrumented, &r.ReportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run for root: %w", err)
	}
	return r, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(limit int) ([]*Run, error) {
	rows, err := s.db.Query(
		"SELECT "+runColumns+" FROM runs ORDER BY created_at DESC, id DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r := &Run{}
		if err := rows.Scan(&r.ID, &r.Root, &r.CreatedAt, &r.Version, &r.Fingerprint, &r.Score, &r.Grade,
			&r.SitesTotal, &r.Instrumented, &r.Uninstrumented, &r.ReportJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
