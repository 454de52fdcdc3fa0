package state

import (
	"fmt"
	"time"
)

// RunRecord is one row of the run ledger.
type RunRecord struct {
	ID           string
	TreeIdentity string
	Passed       bool
	DurationMS   int64
	Branch       string
	HeadCommit   string
	Uncommitted  bool
	Summary      string
	Timestamp    time.Time
}

// RecordRun inserts a run into the ledger.
func (db *DB) RecordRun(rec RunRecord) error {
	_, err := db.Exec(`
		INSERT INTO runs (id, tree_identity, passed, duration_ms, branch, head_commit, uncommitted, summary, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.TreeIdentity, boolToInt(rec.Passed), rec.DurationMS,
		rec.Branch, rec.HeadCommit, boolToInt(rec.Uncommitted), rec.Summary, formatTime(rec.Timestamp))
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent runs, newest first.
func (db *DB) RecentRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return db.queryRuns(`
		SELECT id, tree_identity, passed, duration_ms, branch, head_commit, uncommitted, summary, started_at
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
	`, limit)
}

// RunsForIdentity returns the most recent runs at one tree identity,
// newest first.
func (db *DB) RunsForIdentity(treeIdentity string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return db.queryRuns(`
		SELECT id, tree_identity, passed, duration_ms, branch, head_commit, uncommitted, summary, started_at
		FROM runs WHERE tree_identity = ? ORDER BY started_at DESC, id DESC LIMIT ?
	`, treeIdentity, limit)
}

// Stats summarizes the ledger.
type Stats struct {
	TotalRuns  int
	PassedRuns int
	// DistinctIdentities counts tree identities seen in the ledger.
	DistinctIdentities int
}

// Stats returns aggregate counts over the whole ledger.
func (db *DB) Stats() (Stats, error) {
	var s Stats
	row := db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(passed), 0), COUNT(DISTINCT tree_identity) FROM runs
	`)
	if err := row.Scan(&s.TotalRuns, &s.PassedRuns, &s.DistinctIdentities); err != nil {
		return Stats{}, fmt.Errorf("ledger stats: %w", err)
	}
	return s, nil
}

// PurgeOldRuns deletes runs older than the specified duration.
// Returns the number of runs deleted.
func (db *DB) PurgeOldRuns(olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))
	result, err := db.Exec(`DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge old runs: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return count, nil
}

func (db *DB) queryRuns(query string, args ...any) ([]RunRecord, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var passed, uncommitted int
		var startedAt string
		if err := rows.Scan(&rec.ID, &rec.TreeIdentity, &passed, &rec.DurationMS,
			&rec.Branch, &rec.HeadCommit, &uncommitted, &rec.Summary, &startedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.Passed = passed != 0
		rec.Uncommitted = uncommitted != 0
		if ts, err := parseTime(startedAt); err == nil {
			rec.Timestamp = ts
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
