// Package store persists the lineage graph in a relational database. It
// implements core.GraphStore over database/sql with two dialects: embedded
// SQLite (modernc.org/sqlite) and PostgreSQL (pgx via its stdlib driver).
// Temporal filtering is deliberately NOT pushed down into queries here; the
// traversal engine owns as-of semantics.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/lens-io/lens/pkg/core"
)

// Dialect selects the SQL flavor and driver.
type Dialect string

// Supported dialects.
const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Config holds connection settings for a graph store.
type Config struct {
	// Dialect is sqlite or postgres.
	Dialect Dialect

	// DSN is the database path for sqlite (":memory:" supported) or a
	// connection string for postgres.
	DSN string
}

// Store is the relational implementation of core.GraphStore.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

var _ core.GraphStore = (*Store)(nil)

// Open connects to the database and verifies the connection.
func Open(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var driver, dsn string
	switch cfg.Dialect {
	case DialectSQLite:
		driver = "sqlite"
		dsn = sqliteDSN(cfg.DSN)
	case DialectPostgres:
		driver = "pgx"
		dsn = cfg.DSN
	default:
		return nil, fmt.Errorf("unknown store dialect %q", cfg.Dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Dialect, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", cfg.Dialect, err)
	}

	if cfg.Dialect == DialectSQLite {
		// A single writer avoids SQLITE_BUSY under concurrent API calls.
		db.SetMaxOpenConns(1)
	}

	logger.Debug("store opened", slog.String("dialect", string(cfg.Dialect)))
	return &Store{db: db, dialect: cfg.Dialect, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw connection for migrations and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

func sqliteDSN(path string) string {
	if path == "" || path == ":memory:" {
		return ":memory:?_pragma=foreign_keys(1)"
	}
	return fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", path)
}

// rebind rewrites ? placeholders to $1..$n for postgres. Queries are written
// once in sqlite style and rebound per dialect.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// placeholders returns "?, ?, ..." for an IN clause of n values.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func newID() string {
	return uuid.New().String()
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// marshalMap encodes a free-form attribute map for a JSON column. Nil maps
// encode as an empty object so scans round-trip cleanly.
func marshalMap(m map[string]any) ([]byte, error) {
	if m == nil {
		m = map[string]any{}
	}
	return json.Marshal(m)
}

func unmarshalMap(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// nullStr maps empty strings to SQL NULL on writes.
func nullStr(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// rollback is a deferred-tx helper; a failed rollback after commit is normal.
func rollback(tx *sql.Tx) {
	_ = tx.Rollback()
}

// scanner abstracts *sql.Row and *sql.Rows for the shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}
