package library

import (
	"context"
	"database/sql"
	"time"
)

// historyLimit bounds how many check runs are retained.
const historyLimit = 50

// RecordCheck appends a completed check run to the history and trims old
// entries beyond the retention limit.
func (s *Store) RecordCheck(ctx context.Context, run CheckRun) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("begin record check", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO check_history (started_at, finished_at, titles_checked, chapters_downloaded, failures, notes)
         VALUES (?, ?, ?, ?, ?, ?)`,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.TitlesChecked,
		run.ChaptersDownloaded,
		run.Failures,
		nullableString(run.Notes),
	); err != nil {
		return persistErr("insert check run", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		`DELETE FROM check_history WHERE id NOT IN (
             SELECT id FROM check_history ORDER BY id DESC LIMIT ?
         )`,
		historyLimit,
	); err != nil {
		return persistErr("trim check history", err)
	}

	if err := tx.Commit(); err != nil {
		return persistErr("commit record check", err)
	}
	return nil
}

// CheckHistory returns retained check runs, newest first.
func (s *Store) CheckHistory(ctx context.Context, limit int) ([]CheckRun, error) {
	if limit <= 0 || limit > historyLimit {
		limit = historyLimit
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, started_at, finished_at, titles_checked, chapters_downloaded, failures, notes
         FROM check_history ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, persistErr("list check history", err)
	}
	defer rows.Close()

	var runs []CheckRun
	for rows.Next() {
		var (
			run         CheckRun
			startedRaw  string
			finishedRaw string
			notes       sql.NullString
		)
		if err := rows.Scan(&run.ID, &startedRaw, &finishedRaw, &run.TitlesChecked, &run.ChaptersDownloaded, &run.Failures, &notes); err != nil {
			return nil, persistErr("scan check run", err)
		}
		if started, err := parseTimeString(startedRaw); err == nil {
			run.StartedAt = started
		}
		if finished, err := parseTimeString(finishedRaw); err == nil {
			run.FinishedAt = finished
		}
		run.Notes = notes.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LastCheck returns the most recent check run, or nil when none is recorded.
func (s *Store) LastCheck(ctx context.Context) (*CheckRun, error) {
	runs, err := s.CheckHistory(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// Stats summarizes library contents for the status command.
type Stats struct {
	Titles        int
	Reading       int
	Records       int
	OpenWindows   int
	LastCheckedAt *time.Time
}

// Stats aggregates counts across the library.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM titles`).Scan(&stats.Titles); err != nil {
		return Stats{}, persistErr("count titles", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM titles WHERE status = ?`, StatusReading).Scan(&stats.Reading); err != nil {
		return Stats{}, persistErr("count reading", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM download_records`).Scan(&stats.Records); err != nil {
		return Stats{}, persistErr("count records", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM fallback_windows`).Scan(&stats.OpenWindows); err != nil {
		return Stats{}, persistErr("count windows", err)
	}

	last, err := s.LastCheck(ctx)
	if err != nil {
		return Stats{}, err
	}
	if last != nil {
		finished := last.FinishedAt
		stats.LastCheckedAt = &finished
	}
	return stats, nil
}
