package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const titleColumns = "id, slug, display_name, status, fallback_delay_days, created_at, updated_at"

func scanTitle(scanner interface{ Scan(dest ...any) error }) (*Title, error) {
	var (
		id         int64
		slug       string
		name       string
		statusStr  string
		delayDays  sql.NullInt64
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)

	if err := scanner.Scan(&id, &slug, &name, &statusStr, &delayDays, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	title := &Title{
		ID:          id,
		Slug:        slug,
		DisplayName: name,
		Status:      Status(statusStr),
	}
	if delayDays.Valid {
		days := int(delayDays.Int64)
		title.FallbackDelayDays = &days
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		title.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		title.UpdatedAt = updated
	}
	return title, nil
}

// AddTitle registers a new tracked title with its source URLs in preference
// order. The first URL becomes the primary source.
func (s *Store) AddTitle(ctx context.Context, displayName string, urls []string) (*Title, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, errors.New("title name must not be empty")
	}
	if len(urls) == 0 {
		return nil, errors.New("at least one source URL is required")
	}
	slug := Slugify(displayName)
	if slug == "" {
		return nil, fmt.Errorf("cannot derive slug from %q", displayName)
	}

	now := formatTime(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistErr("begin add title", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO titles (slug, display_name, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)`,
		slug,
		displayName,
		StatusReading,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("title %q is already tracked", slug)
		}
		return nil, persistErr("insert title", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, persistErr("last insert id", err)
	}

	if err := insertSources(ctx, tx, id, urls); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, persistErr("commit add title", err)
	}

	return s.TitleBySlug(ctx, slug)
}

// TitleBySlug fetches a title and its sources.
func (s *Store) TitleBySlug(ctx context.Context, slug string) (*Title, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+titleColumns+` FROM titles WHERE slug = ?`, slug)
	title, err := scanTitle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTitleNotFound, slug)
	}
	if err != nil {
		return nil, persistErr("get title", err)
	}
	if err := s.loadSources(ctx, title); err != nil {
		return nil, err
	}
	return title, nil
}

// Titles returns every tracked title, optionally filtered by status, ordered
// by slug.
func (s *Store) Titles(ctx context.Context, statuses ...Status) ([]*Title, error) {
	query := `SELECT ` + titleColumns + ` FROM titles`
	var args []any
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY slug`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("list titles", err)
	}
	defer rows.Close()

	var titles []*Title
	for rows.Next() {
		title, err := scanTitle(rows)
		if err != nil {
			return nil, persistErr("scan title", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate titles", err)
	}

	for _, title := range titles {
		if err := s.loadSources(ctx, title); err != nil {
			return nil, err
		}
	}
	return titles, nil
}

// SetStatus updates a title's reading status.
func (s *Store) SetStatus(ctx context.Context, slug string, status Status) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE titles SET status = ?, updated_at = ? WHERE slug = ?`,
		status,
		formatTime(time.Now()),
		slug,
	)
	if err != nil {
		return persistErr("set status", err)
	}
	return requireRow(res, slug)
}

// SetFallbackDelay overrides the title's fallback waiting period. A nil value
// reverts to the configured default.
func (s *Store) SetFallbackDelay(ctx context.Context, slug string, days *int) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE titles SET fallback_delay_days = ?, updated_at = ? WHERE slug = ?`,
		nullableInt(days),
		formatTime(time.Now()),
		slug,
	)
	if err != nil {
		return persistErr("set fallback delay", err)
	}
	return requireRow(res, slug)
}

// SetSources replaces a title's source list. The first URL becomes the new
// primary.
func (s *Store) SetSources(ctx context.Context, slug string, urls []string) error {
	if len(urls) == 0 {
		return errors.New("at least one source URL is required")
	}

	title, err := s.TitleBySlug(ctx, slug)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("begin set sources", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM title_sources WHERE title_id = ?`, title.ID); err != nil {
		return persistErr("clear sources", err)
	}
	if err := insertSources(ctx, tx, title.ID, urls); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE titles SET updated_at = ? WHERE id = ?`, formatTime(time.Now()), title.ID); err != nil {
		return persistErr("touch title", err)
	}

	if err := tx.Commit(); err != nil {
		return persistErr("commit set sources", err)
	}
	return nil
}

// RemoveTitle deletes a title and, via foreign keys, its sources, records,
// and windows.
func (s *Store) RemoveTitle(ctx context.Context, slug string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM titles WHERE slug = ?`, slug)
	if err != nil {
		return persistErr("remove title", err)
	}
	return requireRow(res, slug)
}

func (s *Store) loadSources(ctx context.Context, title *Title) error {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, title_id, position, url FROM title_sources WHERE title_id = ? ORDER BY position`,
		title.ID,
	)
	if err != nil {
		return persistErr("load sources", err)
	}
	defer rows.Close()

	title.Sources = nil
	for rows.Next() {
		var entry SourceEntry
		if err := rows.Scan(&entry.ID, &entry.TitleID, &entry.Position, &entry.URL); err != nil {
			return persistErr("scan source", err)
		}
		title.Sources = append(title.Sources, entry)
	}
	return rows.Err()
}

func insertSources(ctx context.Context, tx *sql.Tx, titleID int64, urls []string) error {
	for position, url := range urls {
		url = strings.TrimSpace(url)
		if url == "" {
			return fmt.Errorf("source url at position %d is empty", position)
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO title_sources (title_id, position, url) VALUES (?, ?, ?)`,
			titleID,
			position,
			url,
		); err != nil {
			return persistErr("insert source", err)
		}
	}
	return nil
}

func requireRow(res sql.Result, slug string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return persistErr("rows affected", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrTitleNotFound, slug)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
