package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"crerag/internal/domain"
)

const artifactSchema = `
CREATE TABLE IF NOT EXISTS artifacts (
    name TEXT PRIMARY KEY,
    payload BLOB NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteStore keeps the artifacts as rows of a single table and writes all
// of them in one transaction.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return initSQLite(db, path)
}

// OpenSQLiteInMemory creates an in-memory database (for testing).
func OpenSQLiteInMemory() (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	// Every pooled connection would otherwise get its own empty database.
	db.SetMaxOpenConns(1)
	return initSQLite(db, ":memory:")
}

func initSQLite(db *sql.DB, path string) (*SQLiteStore, error) {
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := db.Exec(artifactSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Save replaces all four artifacts in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	payloads, err := encode(snap)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.PersistenceError{Op: "save", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	for _, name := range AllArtifacts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO artifacts (name, payload, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
			name, payloads[name])
		if err != nil {
			return &domain.PersistenceError{Op: "save", Artifact: name, Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &domain.PersistenceError{Op: "save", Err: err}
	}
	return nil
}

// Load reads every stored artifact.
func (s *SQLiteStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, payload FROM artifacts`)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "load", Err: err}
	}
	defer rows.Close()

	payloads := make(map[string][]byte, len(AllArtifacts))
	for rows.Next() {
		var name string
		var payload []byte
		if err := rows.Scan(&name, &payload); err != nil {
			return nil, &domain.PersistenceError{Op: "load", Err: err}
		}
		payloads[name] = payload
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "load", Err: err}
	}
	return decode(payloads)
}
