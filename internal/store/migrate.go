package store

import (
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var embedMigrations embed.FS

// Migrate applies all pending schema migrations for the store's dialect.
// Migrations are embedded, so a fresh binary can bootstrap an empty database.
func (s *Store) Migrate() error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	var gooseDialect, dir string
	switch s.dialect {
	case DialectSQLite:
		gooseDialect = "sqlite3"
		dir = "migrations/sqlite"
	case DialectPostgres:
		gooseDialect = "postgres"
		dir = "migrations/postgres"
	default:
		return fmt.Errorf("unknown store dialect %q", s.dialect)
	}

	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(s.db, dir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	s.logger.Debug("migrations applied", "dialect", string(s.dialect))
	return nil
}
