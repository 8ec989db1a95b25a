// Package bookmarks persists named attribute paths in a SQLite database in
// the data directory.
package bookmarks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound  = errors.New("bookmark not found")
	ErrEmptyName = errors.New("bookmark name is empty")
)

const schema = `CREATE TABLE IF NOT EXISTS bookmarks (
	name       TEXT PRIMARY KEY,
	path       TEXT NOT NULL,
	created_at INTEGER NOT NULL
)`

// Bookmark is a named path.
type Bookmark struct {
	Name      string
	Path      string
	CreatedAt time.Time
}

// Store is a bookmark database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at dsn. ":memory:" is accepted.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening bookmarks %s: %w", dsn, err)
	}
	// One connection keeps ":memory:" databases alive across calls and
	// serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening bookmarks %s: %w", dsn, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bookmarks table: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Add saves path under name, replacing an existing bookmark of that name.
func (s *Store) Add(ctx context.Context, name, path string) (Bookmark, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Bookmark{}, ErrEmptyName
	}
	b := Bookmark{Name: name, Path: path, CreatedAt: s.now().Truncate(time.Second)}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bookmarks (name, path, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET path = excluded.path, created_at = excluded.created_at`,
		b.Name, b.Path, b.CreatedAt.Unix())
	if err != nil {
		return Bookmark{}, fmt.Errorf("saving bookmark %q: %w", name, err)
	}
	return b, nil
}

func (s *Store) Get(ctx context.Context, name string) (Bookmark, error) {
	row := s.db.QueryRowContext(ctx, `SELECT name, path, created_at FROM bookmarks WHERE name = ?`, name)
	b, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Bookmark{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Bookmark{}, fmt.Errorf("reading bookmark %q: %w", name, err)
	}
	return b, nil
}

// List returns all bookmarks ordered by name.
func (s *Store) List(ctx context.Context) ([]Bookmark, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, path, created_at FROM bookmarks ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing bookmarks: %w", err)
	}
	defer rows.Close()

	var out []Bookmark
	for rows.Next() {
		b, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("listing bookmarks: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing bookmarks: %w", err)
	}
	return out, nil
}

func (s *Store) Remove(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("removing bookmark %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("removing bookmark %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(sc scanner) (Bookmark, error) {
	var (
		b       Bookmark
		created int64
	)
	if err := sc.Scan(&b.Name, &b.Path, &created); err != nil {
		return Bookmark{}, err
	}
	b.CreatedAt = time.Unix(created, 0)
	return b, nil
}
