package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Window returns the fallback window for a chapter, or nil when none is open.
func (s *Store) Window(ctx context.Context, titleID int64, ordinal float64) (*FallbackWindow, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT title_id, ordinal, source_id, opened_at FROM fallback_windows
         WHERE title_id = ? AND ordinal = ?`,
		titleID,
		ordinal,
	)
	window, err := scanWindow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("get window", err)
	}
	return &window, nil
}

// Windows returns every open window for a title in ordinal order.
func (s *Store) Windows(ctx context.Context, titleID int64) ([]FallbackWindow, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT title_id, ordinal, source_id, opened_at FROM fallback_windows
         WHERE title_id = ? ORDER BY ordinal`,
		titleID,
	)
	if err != nil {
		return nil, persistErr("list windows", err)
	}
	defer rows.Close()

	var windows []FallbackWindow
	for rows.Next() {
		window, err := scanWindow(rows)
		if err != nil {
			return nil, persistErr("scan window", err)
		}
		windows = append(windows, window)
	}
	return windows, rows.Err()
}

// OpenWindow starts the fallback waiting period for a chapter seen only on a
// backup source. Opening is idempotent: an existing window keeps its original
// source and first-seen timestamp no matter which backup observes the chapter
// later.
func (s *Store) OpenWindow(ctx context.Context, titleID int64, ordinal float64, sourceID int64, seenAt time.Time) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO fallback_windows (title_id, ordinal, source_id, opened_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT (title_id, ordinal) DO NOTHING`,
		titleID,
		ordinal,
		sourceID,
		formatTime(seenAt),
	)
	if err != nil {
		return persistErr("open window", err)
	}
	return nil
}

// ClearWindow removes an open window without recording a download. The
// decision engine clears windows when the primary source catches up.
func (s *Store) ClearWindow(ctx context.Context, titleID int64, ordinal float64) error {
	_, err := s.db.ExecContext(
		ctx,
		`DELETE FROM fallback_windows WHERE title_id = ? AND ordinal = ?`,
		titleID,
		ordinal,
	)
	if err != nil {
		return persistErr("clear window", err)
	}
	return nil
}

// PromoteWindow atomically converts an open window into a download record:
// the window is deleted and a record attributed to the window's source is
// committed in the same transaction. The returned Promotion carries what
// RevertPromotion needs to undo the conversion if the download then fails.
func (s *Store) PromoteWindow(ctx context.Context, titleID int64, ordinal float64, location string, now time.Time) (Promotion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Promotion{}, persistErr("begin promote", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(
		ctx,
		`SELECT title_id, ordinal, source_id, opened_at FROM fallback_windows
         WHERE title_id = ? AND ordinal = ?`,
		titleID,
		ordinal,
	)
	window, err := scanWindow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Promotion{}, fmt.Errorf("no open window for title %d chapter %s", titleID, FormatOrdinal(ordinal))
	}
	if err != nil {
		return Promotion{}, persistErr("read window", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		`DELETE FROM fallback_windows WHERE title_id = ? AND ordinal = ?`,
		titleID,
		ordinal,
	); err != nil {
		return Promotion{}, persistErr("delete window", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO download_records (title_id, ordinal, source_id, location, downloaded_at)
         VALUES (?, ?, ?, ?, ?)`,
		titleID,
		ordinal,
		window.SourceID,
		nullableString(location),
		formatTime(now),
	); err != nil {
		if isUniqueViolation(err) {
			return Promotion{}, fmt.Errorf("%w: title %d chapter %s", ErrDuplicateRecord, titleID, FormatOrdinal(ordinal))
		}
		return Promotion{}, persistErr("insert promoted record", err)
	}

	if err := tx.Commit(); err != nil {
		return Promotion{}, persistErr("commit promote", err)
	}

	return Promotion{SourceID: window.SourceID, OpenedAt: window.OpenedAt}, nil
}

// RevertPromotion undoes PromoteWindow after a failed download: the record is
// removed and the window restored with its original first-seen timestamp, so
// the chapter stays eligible on the next cycle.
func (s *Store) RevertPromotion(ctx context.Context, titleID int64, ordinal float64, promo Promotion) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("begin revert", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(
		ctx,
		`DELETE FROM download_records WHERE title_id = ? AND ordinal = ?`,
		titleID,
		ordinal,
	); err != nil {
		return persistErr("delete record", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO fallback_windows (title_id, ordinal, source_id, opened_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT (title_id, ordinal) DO NOTHING`,
		titleID,
		ordinal,
		promo.SourceID,
		formatTime(promo.OpenedAt),
	); err != nil {
		return persistErr("restore window", err)
	}

	if err := tx.Commit(); err != nil {
		return persistErr("commit revert", err)
	}
	return nil
}

func scanWindow(scanner interface{ Scan(dest ...any) error }) (FallbackWindow, error) {
	var (
		window    FallbackWindow
		openedRaw string
	)
	if err := scanner.Scan(&window.TitleID, &window.Ordinal, &window.SourceID, &openedRaw); err != nil {
		return FallbackWindow{}, err
	}
	if opened, err := parseTimeString(openedRaw); err == nil {
		window.OpenedAt = opened
	}
	return window, nil
}
