package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"haru/internal/model"
)

// ErrNotFound is returned by Get when no record exists under the key.
var ErrNotFound = errors.New("storage: record not found")

// Store is the key-value record store behind the REST facade. Records are
// keyed by opaque string id and held as JSON blobs; the store enforces no
// schema of its own and offers last-write-wins per key.
type Store interface {
	Get(ctx context.Context, id string) (model.Todo, error)
	Put(ctx context.Context, todo model.Todo) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.Todo, error)
	Close() error
}

// SQLite persists records in a single-table sqlite database.
type SQLite struct {
	db *sql.DB
}

func Open(dbPath string) (*SQLite, error) {
	if dbPath == "" {
		return nil, errors.New("storage: db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, err
	}
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS records (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`
	_, err := s.db.Exec(ddl)
	return err
}

func (s *SQLite) Get(ctx context.Context, id string) (model.Todo, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM records WHERE key = ?;`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Todo{}, ErrNotFound
	}
	if err != nil {
		return model.Todo{}, err
	}
	return decodeRecord(id, []byte(raw))
}

func (s *SQLite) Put(ctx context.Context, todo model.Todo) error {
	raw, err := json.Marshal(todo)
	if err != nil {
		return fmt.Errorf("storage: encode record: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value;`,
		todo.ID, string(raw))
	return err
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE key = ?;`, id)
	return err
}

func (s *SQLite) List(ctx context.Context) ([]model.Todo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM records;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var todos []model.Todo
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		todo, err := decodeRecord(key, []byte(raw))
		if err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	model.SortCreatedDesc(todos)
	return todos, nil
}

func decodeRecord(key string, raw []byte) (model.Todo, error) {
	var todo model.Todo
	if err := json.Unmarshal(raw, &todo); err != nil {
		return model.Todo{}, fmt.Errorf("storage: decode record %q: %w", key, err)
	}
	if todo.ID == "" {
		todo.ID = key
	}
	return todo, nil
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
