package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ensureSQLiteUsersSessionVersionColumn adds users.session_version to files
// created before cookie sessions were versioned.
func ensureSQLiteUsersSessionVersionColumn(db *sql.DB) error {
	if db == nil {
		return errors.New("db is nil")
	}

	ctx := context.Background()
	rows, err := db.QueryContext(ctx, `PRAGMA table_info(users)`)
	if err != nil {
		return fmt.Errorf("read users columns: %w", err)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		var (
			cid        int
			name       string
			typ        string
			notNull    int
			dfltValue  sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dfltValue, &primaryKey); err != nil {
			return fmt.Errorf("scan users columns: %w", err)
		}
		if name == "session_version" {
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate users columns: %w", err)
	}
	_ = rows.Close()
	if found {
		return nil
	}

	if _, err := db.ExecContext(ctx, `ALTER TABLE users ADD COLUMN session_version INTEGER NOT NULL DEFAULT 1`); err != nil {
		return fmt.Errorf("add users.session_version: %w", err)
	}
	return nil
}
