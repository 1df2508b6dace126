package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"PaperPoster/internal/ports"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStore persists cursors and the posted ledger in one sqlite file.
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ ports.CursorStore  = (*SQLiteStore)(nil)
	_ ports.PostedLedger = (*SQLiteStore)(nil)
)

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; sqlite serializes anyway.
	db.SetMaxOpenConns(1)

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load returns the stored cursor for area.
func (s *SQLiteStore) Load(ctx context.Context, area string) (string, bool, error) {
	query, args, err := sq.Select("entry_id").From("cursors").Where(sq.Eq{"area": area}).ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build cursor query: %w", err)
	}

	var id string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query cursor %s: %w", area, err)
	}
	return id, id != "", nil
}

// Store upserts the cursor for area.
func (s *SQLiteStore) Store(ctx context.Context, area, id string) error {
	query, args, err := sq.Insert("cursors").
		Columns("area", "entry_id").
		Values(area, id).
		Suffix("ON CONFLICT(area) DO UPDATE SET entry_id = excluded.entry_id, updated_at = CURRENT_TIMESTAMP").
		ToSql()
	if err != nil {
		return fmt.Errorf("build cursor upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert cursor %s: %w", area, err)
	}
	return nil
}

// Posted reports whether url was already posted to channel.
func (s *SQLiteStore) Posted(ctx context.Context, channel, url string) (bool, error) {
	query, args, err := sq.Select("COUNT(*)").
		From("posted").
		Where(sq.Eq{"channel": channel, "url": url}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build posted query: %w", err)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("query posted: %w", err)
	}
	return n > 0, nil
}

// MarkPosted records url as posted to channel; repeated marks are no-ops.
func (s *SQLiteStore) MarkPosted(ctx context.Context, channel, url string) error {
	query, args, err := sq.Insert("posted").
		Columns("channel", "url").
		Values(channel, url).
		Suffix("ON CONFLICT(channel, url) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build posted insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert posted: %w", err)
	}
	return nil
}
