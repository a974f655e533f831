package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// Initialize opens (creating if needed) the SQLite database at dbPath and
// ensures the schema exists. ":memory:" is supported for tests.
func Initialize(dbPath string, encryptionKey string) (*sql.DB, error) {
	memory := dbPath == ":memory:"

	if !memory {
		// Create data directory if it doesn't exist
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	var db *sql.DB
	if encryptionKey != "" {
		// The key has to precede every other statement on each connection,
		// so the remaining pragmas move into the connect hook as well.
		db = sql.OpenDB(newKeyedConnector(dbPath+"?_busy_timeout=5000", connectPragmas(encryptionKey, memory)))
	} else {
		// Pragmas in the DSN apply to every pooled connection.
		dsn := dbPath + "?_foreign_keys=on&_busy_timeout=5000"
		if !memory {
			dsn += "&_journal_mode=WAL"
		}
		var err error
		db, err = sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, err
		}
	}

	// Each connection to :memory: is a separate database.
	if memory {
		db.SetMaxOpenConns(1)
	}

	// PRAGMA key needs a SQLCipher-linked build and plain SQLite ignores it.
	// A wrong key only surfaces on the first read.
	if encryptionKey != "" {
		var count int
		if err := db.QueryRow("SELECT count(*) FROM sqlite_master;").Scan(&count); err != nil {
			db.Close()
			return nil, fmt.Errorf("database inaccessible with provided encryption key: %w", err)
		}
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// connectPragmas lists what a keyed connection runs on open, key first.
func connectPragmas(key string, memory bool) []string {
	stmts := []string{
		fmt.Sprintf("PRAGMA key = '%s';", strings.ReplaceAll(key, "'", "''")),
		"PRAGMA foreign_keys = ON;",
	}
	if !memory {
		stmts = append(stmts, "PRAGMA journal_mode = WAL;")
	}
	return stmts
}

// keyedConnector opens each pooled connection through a driver whose
// ConnectHook runs the given pragmas, so no connection is ever unkeyed.
type keyedConnector struct {
	dsn    string
	driver *sqlite3.SQLiteDriver
}

func newKeyedConnector(dsn string, pragmas []string) *keyedConnector {
	return &keyedConnector{
		dsn: dsn,
		driver: &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				for _, stmt := range pragmas {
					if _, err := conn.Exec(stmt, nil); err != nil {
						return fmt.Errorf("failed to configure keyed connection: %w", err)
					}
				}
				return nil
			},
		},
	}
}

func (k *keyedConnector) Connect(ctx context.Context) (driver.Conn, error) {
	return k.driver.Open(k.dsn)
}

func (k *keyedConnector) Driver() driver.Driver {
	return k.driver
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		email TEXT,
		timezone TEXT NOT NULL DEFAULT 'UTC',
		last_reminded_on TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- date columns are TEXT (YYYY-MM-DD local day) so the driver never turns them into timestamps
	CREATE TABLE IF NOT EXISTS habits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		target_days INTEGER,
		current_streak INTEGER NOT NULL DEFAULT 0,
		longest_streak INTEGER NOT NULL DEFAULT 0,
		start_date TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		color TEXT NOT NULL DEFAULT '#4f46e5',
		icon TEXT NOT NULL DEFAULT 'check',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS habit_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		habit_id INTEGER NOT NULL,
		date TEXT NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT 1,
		notes TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(habit_id, date),
		FOREIGN KEY (habit_id) REFERENCES habits(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS journal_categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, name),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		category_id INTEGER,
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		mood TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (category_id) REFERENCES journal_categories(id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		original_name TEXT NOT NULL,
		stored_name TEXT NOT NULL UNIQUE,
		content_type TEXT NOT NULL DEFAULT 'application/octet-stream',
		size INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'todo',
		priority INTEGER NOT NULL DEFAULT 0,
		due_date TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		amount_cents INTEGER NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS push_subscriptions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		endpoint TEXT NOT NULL,
		p256dh TEXT NOT NULL,
		auth TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, endpoint),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	-- Server-side refresh token store for rotating refresh tokens
	CREATE TABLE IF NOT EXISTS refresh_tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token_hash TEXT NOT NULL UNIQUE,
		expires_at INTEGER NOT NULL,
		ttl_days INTEGER NOT NULL DEFAULT 7,
		revoked BOOLEAN DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_habits_user_id ON habits(user_id);
	CREATE INDEX IF NOT EXISTS idx_habit_logs_habit_date ON habit_logs(habit_id, date);
	CREATE INDEX IF NOT EXISTS idx_notes_user_id ON notes(user_id);
	CREATE INDEX IF NOT EXISTS idx_links_user_id ON links(user_id);
	CREATE INDEX IF NOT EXISTS idx_files_user_id ON files(user_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks(user_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, date);
	CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_id ON refresh_tokens(user_id);
	`

	_, err := db.Exec(schema)
	return err
}
