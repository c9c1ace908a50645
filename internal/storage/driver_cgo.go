//go:build !purego

package storage

import (
	_ "github.com/mattn/go-sqlite3"
)

// driverName is the database/sql driver used by NewSQLiteStorage.
// Build with -tags purego to use the pure Go driver instead.
const driverName = "sqlite3"
