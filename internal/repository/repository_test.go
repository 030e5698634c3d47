package repository

// The repositories speak portable SQL (? placeholders, timestamps supplied
// from Go), so the tests exercise the real statements against an in-memory
// sqlite database instead of mocking the driver.

import (
	"database/sql"
	"fmt"
	"testing"

	_ "modernc.org/sqlite"
)

const testSchema = `
CREATE TABLE users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id       TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	views         INTEGER NOT NULL DEFAULT 0,
	followers     INTEGER NOT NULL DEFAULT 0,
	followings    INTEGER NOT NULL DEFAULT 0,
	version       INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);
CREATE TABLE posts (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	content       TEXT NOT NULL,
	reference_id  INTEGER,
	status        INTEGER NOT NULL DEFAULT 0,
	stars         INTEGER NOT NULL DEFAULT 0,
	views         INTEGER NOT NULL DEFAULT 0,
	version       INTEGER NOT NULL DEFAULT 0,
	created_user  TEXT NOT NULL,
	updated_user  TEXT NOT NULL,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);
CREATE TABLE comments (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	post_id       INTEGER NOT NULL,
	content       TEXT NOT NULL,
	status        INTEGER NOT NULL DEFAULT 0,
	stars         INTEGER NOT NULL DEFAULT 0,
	views         INTEGER NOT NULL DEFAULT 0,
	version       INTEGER NOT NULL DEFAULT 0,
	created_user  TEXT NOT NULL,
	updated_user  TEXT NOT NULL,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);
`

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// A single connection keeps the shared in-memory database alive for the
	// whole test.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
