package thread

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating thread directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening thread database: %w", err)
	}
	// one writer keeps sqlite free of SQLITE_BUSY between our own goroutines
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS thread_schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM thread_schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("checking schema version: %w", err)
	}

	for i, migration := range []string{migrationV1} {
		version := i + 1
		if version <= current {
			continue
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration transaction: %w", err)
		}
		for _, stmt := range splitStatements(migration) {
			if _, err := tx.Exec(stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("executing migration v%d: %w", version, err)
			}
		}
		if _, err := tx.Exec(
			"INSERT INTO thread_schema_migrations (version, applied_at) VALUES (?, ?)",
			version, time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration v%d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration v%d: %w", version, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Create(ctx context.Context, t Thread) (Thread, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	t.Turns = stamp(append([]Turn(nil), t.Turns...))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Thread{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO threads (id, source, item_title, item, created_at) VALUES (?, ?, ?, ?, ?)",
		t.ID, t.Source, t.ItemTitle, t.Item, formatTime(t.CreatedAt),
	); err != nil {
		return Thread{}, fmt.Errorf("inserting thread: %w", err)
	}
	if err := insertTurns(ctx, tx, t.ID, 0, t.Turns); err != nil {
		return Thread{}, err
	}
	if err := tx.Commit(); err != nil {
		return Thread{}, fmt.Errorf("committing thread: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Thread, error) {
	var (
		t       Thread
		created string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, source, item_title, item, created_at FROM threads WHERE id = ?", id,
	).Scan(&t.ID, &t.Source, &t.ItemTitle, &t.Item, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Thread{}, ErrNotFound
	}
	if err != nil {
		return Thread{}, fmt.Errorf("loading thread: %w", err)
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return Thread{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT role, content, created_at FROM turns WHERE thread_id = ? ORDER BY seq", id)
	if err != nil {
		return Thread{}, fmt.Errorf("loading turns: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var turn Turn
		if err := rows.Scan(&turn.Role, &turn.Content, &created); err != nil {
			return Thread{}, fmt.Errorf("scanning turn: %w", err)
		}
		if turn.CreatedAt, err = parseTime(created); err != nil {
			return Thread{}, err
		}
		t.Turns = append(t.Turns, turn)
	}
	if err := rows.Err(); err != nil {
		return Thread{}, fmt.Errorf("loading turns: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) Append(ctx context.Context, id string, turns ...Turn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM threads WHERE id = ?", id).Scan(&exists); err != nil {
		return fmt.Errorf("checking thread: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), -1) + 1 FROM turns WHERE thread_id = ?", id,
	).Scan(&next); err != nil {
		return fmt.Errorf("reading turn sequence: %w", err)
	}
	if err := insertTurns(ctx, tx, id, next, stamp(append([]Turn(nil), turns...))); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing turns: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func insertTurns(ctx context.Context, tx *sql.Tx, id string, start int, turns []Turn) error {
	for i, turn := range turns {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO turns (thread_id, seq, role, content, created_at) VALUES (?, ?, ?, ?, ?)",
			id, start+i, turn.Role, turn.Content, formatTime(turn.CreatedAt),
		); err != nil {
			return fmt.Errorf("inserting turn: %w", err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

// splitStatements splits a SQL script into statements, dropping comment lines.
func splitStatements(script string) []string {
	var statements []string
	for _, stmt := range strings.Split(script, ";") {
		var sqlLines []string
		for _, line := range strings.Split(stmt, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed != "" && !strings.HasPrefix(trimmed, "--") {
				sqlLines = append(sqlLines, line)
			}
		}
		if len(sqlLines) > 0 {
			statements = append(statements, strings.Join(sqlLines, "\n"))
		}
	}
	return statements
}
