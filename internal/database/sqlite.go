// Package database opens the SQLite databases backing quotes and
// requisitions.
package database

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// DriverName is the database/sql driver registered by go-sqlite3.
const DriverName = "sqlite3"

const defaultParams = "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

// Open connects to the SQLite database at dsn. A bare file path gets WAL
// journaling and a busy timeout. In-memory databases are pinned to a single
// connection so every query sees the same data.
func Open(dsn string) (*sqlx.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite DSN is empty")
	}

	memory := IsMemory(dsn)
	if !memory && !strings.Contains(dsn, "?") {
		dsn += "?" + defaultParams
	}

	db, err := sqlx.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if memory {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}

// IsMemory reports whether dsn names an in-memory database.
func IsMemory(dsn string) bool {
	return strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
