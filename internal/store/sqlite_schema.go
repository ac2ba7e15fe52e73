package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

// EnsureSQLiteSchema applies the embedded schema. Every statement is
// IF NOT EXISTS, so tables added later reach older files too.
func EnsureSQLiteSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("db is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin sqlite schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmts := splitSQLStatements(sqliteSchema)
	for i, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init sqlite schema (stmt %d/%d): %w", i+1, len(stmts), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sqlite schema: %w", err)
	}
	return ensureSQLiteUsersSessionVersionColumn(db)
}

// EnsureSchema picks the bootstrap path for the dialect.
func EnsureSchema(db *sql.DB, d Dialect) error {
	switch d {
	case DialectSQLite:
		return EnsureSQLiteSchema(db)
	case DialectMySQL, DialectPostgres:
		return ApplyMigrations(db, d)
	default:
		return fmt.Errorf("unknown dialect %q", d)
	}
}
