package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// HasRecord reports whether a chapter has already been handled for a title.
func (s *Store) HasRecord(ctx context.Context, titleID int64, ordinal float64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM download_records WHERE title_id = ? AND ordinal = ?`,
		titleID,
		ordinal,
	).Scan(&count)
	if err != nil {
		return false, persistErr("has record", err)
	}
	return count > 0, nil
}

// CommitRecord marks a chapter as permanently handled. A second commit for
// the same title and ordinal returns ErrDuplicateRecord and changes nothing.
func (s *Store) CommitRecord(ctx context.Context, record DownloadRecord) error {
	downloadedAt := record.DownloadedAt
	if downloadedAt.IsZero() {
		downloadedAt = time.Now()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO download_records (title_id, ordinal, source_id, location, downloaded_at)
         VALUES (?, ?, ?, ?, ?)`,
		record.TitleID,
		record.Ordinal,
		record.SourceID,
		nullableString(record.Location),
		formatTime(downloadedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: title %d chapter %s", ErrDuplicateRecord, record.TitleID, FormatOrdinal(record.Ordinal))
		}
		return persistErr("commit record", err)
	}
	return nil
}

// RecordedOrdinals returns the chapters already handled for a title, in
// ascending order.
func (s *Store) RecordedOrdinals(ctx context.Context, titleID int64) ([]float64, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT ordinal FROM download_records WHERE title_id = ? ORDER BY ordinal`,
		titleID,
	)
	if err != nil {
		return nil, persistErr("recorded ordinals", err)
	}
	defer rows.Close()

	var ordinals []float64
	for rows.Next() {
		var ordinal float64
		if err := rows.Scan(&ordinal); err != nil {
			return nil, persistErr("scan ordinal", err)
		}
		ordinals = append(ordinals, ordinal)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate ordinals", err)
	}
	return ordinals, nil
}

// Records returns the full download history for a title, newest first.
func (s *Store) Records(ctx context.Context, titleID int64) ([]DownloadRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT title_id, ordinal, source_id, location, downloaded_at
         FROM download_records WHERE title_id = ? ORDER BY downloaded_at DESC, ordinal DESC`,
		titleID,
	)
	if err != nil {
		return nil, persistErr("list records", err)
	}
	defer rows.Close()

	var records []DownloadRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, persistErr("scan record", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Record fetches a single download record, or nil when none exists.
func (s *Store) Record(ctx context.Context, titleID int64, ordinal float64) (*DownloadRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT title_id, ordinal, source_id, location, downloaded_at
         FROM download_records WHERE title_id = ? AND ordinal = ?`,
		titleID,
		ordinal,
	)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("get record", err)
	}
	return &record, nil
}

// SetRecordLocation updates where the assembled document ended up. Delivery
// can move or delete the file after the record is committed.
func (s *Store) SetRecordLocation(ctx context.Context, titleID int64, ordinal float64, location string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE download_records SET location = ? WHERE title_id = ? AND ordinal = ?`,
		nullableString(location),
		titleID,
		ordinal,
	)
	if err != nil {
		return persistErr("set record location", err)
	}
	return nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (DownloadRecord, error) {
	var (
		record   DownloadRecord
		location sql.NullString
		stampRaw string
	)
	if err := scanner.Scan(&record.TitleID, &record.Ordinal, &record.SourceID, &location, &stampRaw); err != nil {
		return DownloadRecord{}, err
	}
	record.Location = location.String
	if stamp, err := parseTimeString(stampRaw); err == nil {
		record.DownloadedAt = stamp
	}
	return record, nil
}
