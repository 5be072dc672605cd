package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"community_bot/internal/model"
	"community_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateAnnouncement inserts a new announcement and populates its ID and CreatedAt.
func (s *SQLite) CreateAnnouncement(ctx context.Context, a *model.Announcement) error {
	now := time.Now().UTC().Format(timeLayout)
	datetime, day, link, image := variantColumns(a)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO announcements (typ, title, description, datetime, day, link, image, visible_from, visible_to, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(a.Type), a.Title, a.Description, datetime, day, link, image, a.VisibleFrom, a.VisibleTo, now,
	)
	if err != nil {
		return fmt.Errorf("insert announcement: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	a.ID = id
	a.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetAnnouncement returns a single announcement by its ID.
func (s *SQLite) GetAnnouncement(ctx context.Context, id int64) (*model.Announcement, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, typ, title, description, datetime, day, link, image, visible_from, visible_to, created_at
		 FROM announcements WHERE id = ?`, id,
	)
	a, err := scanAnnouncement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// ListAnnouncements returns all announcements ordered by ID.
func (s *SQLite) ListAnnouncements(ctx context.Context) ([]model.Announcement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, typ, title, description, datetime, day, link, image, visible_from, visible_to, created_at
		 FROM announcements ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query announcements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var anns []model.Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		anns = append(anns, *a)
	}
	return anns, rows.Err()
}

// UpdateAnnouncement replaces the editable field subset of an existing
// announcement. ID, type, and created_at never change.
func (s *SQLite) UpdateAnnouncement(ctx context.Context, a *model.Announcement) error {
	datetime, day, link, image := variantColumns(a)
	res, err := s.db.ExecContext(ctx,
		`UPDATE announcements
		 SET title = ?, description = ?, datetime = ?, day = ?, link = ?, image = ?, visible_from = ?, visible_to = ?
		 WHERE id = ?`,
		a.Title, a.Description, datetime, day, link, image, a.VisibleFrom, a.VisibleTo, a.ID,
	)
	if err != nil {
		return fmt.Errorf("update announcement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAnnouncement removes an announcement by its ID.
func (s *SQLite) DeleteAnnouncement(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpired removes announcements whose visible_to is strictly before
// today. The DD.MM.YYYY column is rewritten to ISO inside SQLite; anything
// that does not survive the rewrite yields NULL and is skipped, never
// deleted.
func (s *SQLite) DeleteExpired(ctx context.Context, today time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM announcements
		 WHERE DATE(substr(visible_to, 7, 4) || '-' || substr(visible_to, 4, 2) || '-' || substr(visible_to, 1, 2)) < DATE(?)`,
		today.Format("2006-01-02"),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// GetSetting returns the raw JSON value stored under key.
// The second return value is false when the key has never been set.
func (s *SQLite) GetSetting(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get setting %q: %w", key, err)
	}
	return json.RawMessage(raw), true, nil
}

// SetSetting stores a raw JSON value under key, replacing any previous value.
func (s *SQLite) SetSetting(ctx context.Context, key string, value json.RawMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(value),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// variantColumns flattens the type-specific details into nullable columns.
func variantColumns(a *model.Announcement) (datetime, day, link, image sql.NullString) {
	if a.Event != nil {
		datetime = sql.NullString{String: a.Event.Datetime, Valid: true}
		day = sql.NullString{String: a.Event.Day, Valid: true}
	}
	if a.Info != nil {
		link = sql.NullString{String: a.Info.Link, Valid: true}
		image = sql.NullString{String: a.Info.Image, Valid: true}
	}
	return datetime, day, link, image
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAnnouncement(row scannable) (*model.Announcement, error) {
	var a model.Announcement
	var typ, created string
	var datetime, day, link, image sql.NullString
	err := row.Scan(&a.ID, &typ, &a.Title, &a.Description, &datetime, &day, &link, &image,
		&a.VisibleFrom, &a.VisibleTo, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan announcement: %w", err)
	}
	a.Type = model.Type(typ)
	if a.Type == model.TypeEvent {
		a.Event = &model.EventDetails{Datetime: datetime.String, Day: day.String}
	} else {
		a.Info = &model.InfoDetails{Link: link.String, Image: image.String}
	}
	a.CreatedAt, _ = time.Parse(timeLayout, created)
	return &a, nil
}
