package api

import (
	"database/sql"
	"fmt"

	"step26/internal/logger"
)

// columnExists checks if a column exists on a given table (SQLite PRAGMA table_info)
func columnExists(db *sql.DB, table string, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	var cid int
	var name string
	var ctype string
	var notnull int
	var dflt sql.NullString
	var pk int

	for rows.Next() {
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

func addColumn(db *sql.DB, table, column, definition string) error {
	exists, err := columnExists(db, table, column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if _, err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)); err != nil {
		return fmt.Errorf("add %s.%s: %w", table, column, err)
	}
	logger.Info("Added column", "table", table, "column", column)
	return nil
}

// MigrateUserColumns adds the per-user settings columns to databases
// created before they existed. It is idempotent.
func MigrateUserColumns(db *sql.DB) error {
	if err := addColumn(db, "users", "email", "TEXT"); err != nil {
		return err
	}
	if err := addColumn(db, "users", "timezone", "TEXT NOT NULL DEFAULT 'UTC'"); err != nil {
		return err
	}
	return addColumn(db, "users", "last_reminded_on", "TEXT")
}

// MigrateNormalizeLogDates truncates habit log dates stored with a time
// part to plain YYYY-MM-DD. When that collides with an existing row for
// the same day, the existing row wins.
func MigrateNormalizeLogDates(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec("UPDATE OR IGNORE habit_logs SET date = substr(date, 1, 10) WHERE length(date) > 10")
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM habit_logs WHERE length(date) > 10"); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if n, _ := res.RowsAffected(); n > 0 {
		logger.Info("Normalized habit log dates", "rows", n)
	}
	return nil
}

// RunMigrations applies every migration in order.
func RunMigrations(db *sql.DB) error {
	if err := MigrateUserColumns(db); err != nil {
		return err
	}
	return MigrateNormalizeLogDates(db)
}
