// Package store holds the SQLite-backed persistence layer: conversation
// history, per-user config, credentials (with an in-process client
// cache), durable memory facts, and scheduled jobs. Each store wraps the
// same *sql.DB, generalizing the teacher's single HistoryStore (which
// held messages, tasks, plans, and steps together) into one type per
// concern, matching spec.md §6's external-interface split.
package store

import (
	"database/sql"

	_ "github.com/glebarez/go-sqlite"
)

// Open creates (if needed) and migrates the SQLite database at dbPath.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// modernc.org/sqlite (glebarez/go-sqlite's backend) serializes writers
	// at the file level; capping the pool at one connection avoids
	// spurious "database is locked" errors under concurrent store callers.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			channel TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_user_id ON messages(user_id);`,

		`CREATE TABLE IF NOT EXISTS user_config (
			phone TEXT PRIMARY KEY,
			name TEXT,
			timezone TEXT,
			feature_flags TEXT NOT NULL DEFAULT '{}',
			watcher_enabled INTEGER NOT NULL DEFAULT 0,
			watcher_checkpoint TEXT NOT NULL DEFAULT ''
		);`,

		`CREATE TABLE IF NOT EXISTS credentials (
			user_id TEXT NOT NULL,
			provider TEXT NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL DEFAULT '',
			expires_at DATETIME NOT NULL,
			PRIMARY KEY (user_id, provider)
		);`,

		`CREATE TABLE IF NOT EXISTS memory_facts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			fact TEXT NOT NULL,
			confidence REAL NOT NULL DEFAULT 1.0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_memory_facts_user_id ON memory_facts(user_id);`,

		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			phone_number TEXT NOT NULL,
			channel TEXT NOT NULL,
			user_request TEXT NOT NULL DEFAULT '',
			prompt TEXT NOT NULL,
			cron_expression TEXT NOT NULL,
			timezone TEXT NOT NULL DEFAULT '',
			next_run_at INTEGER NOT NULL DEFAULT 0,
			last_run_at INTEGER NOT NULL DEFAULT 0,
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_due ON jobs(enabled, next_run_at);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}
