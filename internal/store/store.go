// Package store keeps a local SQLite cache of downloaded CardDAV
// resources, keyed by account and href. A resource whose etag is unchanged
// on the server is served from here instead of being downloaded again.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/rs/zerolog"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

//go:embed migrations
var migrationFiles embed.FS

type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(path string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if err := runMigrations(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache migrations: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func runMigrations(db *sql.DB, logger zerolog.Logger) error {
	sourceDriver, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return err
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	version, _, _ := m.Version()
	logger.Debug().Uint("version", version).Msg("cache schema ready")
	return nil
}

func (s *Store) Close() {
	_ = s.db.Close()
}

// Get returns the cached body for account/href when the stored etag still
// matches.
func (s *Store) Get(ctx context.Context, account, href, etag string) (string, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT data FROM resources
		WHERE account = ? AND href = ? AND etag = ?`, account, href, etag)
	var data string
	switch err := row.Scan(&data); err {
	case nil:
		return data, true, nil
	case sql.ErrNoRows:
		return "", false, nil
	default:
		return "", false, err
	}
}

// Put stores or refreshes a downloaded resource.
func (s *Store) Put(ctx context.Context, account, href, etag, data string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resources (account, href, etag, data, fetched_at)
		VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT (account, href) DO UPDATE SET
			etag = excluded.etag,
			data = excluded.data,
			fetched_at = excluded.fetched_at`, account, href, etag, data)
	return err
}

// Expire drops rows fetched longer than maxAge ago, capping how long a
// body is served from here even while its etag never changes.
func (s *Store) Expire(ctx context.Context, maxAge time.Duration) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM resources WHERE fetched_at <= datetime('now', ?)`,
		fmt.Sprintf("-%d seconds", int(maxAge.Seconds())))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.logger.Debug().Int64("count", n).Msg("expired cache entries")
	}
	return nil
}

// Prune drops cached rows of an account whose href is no longer present on
// the server.
func (s *Store) Prune(ctx context.Context, account string, keep []string) error {
	live := make(map[string]struct{}, len(keep))
	for _, h := range keep {
		live[h] = struct{}{}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT href FROM resources WHERE account = ?`, account)
	if err != nil {
		return err
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var href string
		if err := rows.Scan(&href); err != nil {
			return err
		}
		if _, ok := live[href]; !ok {
			stale = append(stale, href)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, href := range stale {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM resources WHERE account = ? AND href = ?`, account, href); err != nil {
			return err
		}
	}
	if len(stale) > 0 {
		s.logger.Debug().Int("count", len(stale)).Str("account", account).Msg("pruned cache entries")
	}
	return nil
}
