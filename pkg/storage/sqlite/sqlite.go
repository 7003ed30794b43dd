// Package sqlite provides a SQLite-backed conversation archive using ent.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/mattn/go-sqlite3"

	entdriver "github.com/papercomputeco/chatzilla/pkg/storage/ent/driver"
	"github.com/papercomputeco/chatzilla/pkg/storage/ent/migrate"
)

// SQLiteDriver implements storage.Driver using SQLite via the ent driver
type SQLiteDriver struct {
	*entdriver.EntDriver
}

// NewSQLiteDriver opens (or creates) the archive at dbPath.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDriver(dbPath string) (*SQLiteDriver, error) {
	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Pragmas are per connection, and every connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Wrap the database connection with ent's SQL driver
	drv := entsql.OpenDB(dialect.SQLite, db)

	if err := migrate.Create(context.Background(), drv); err != nil {
		drv.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteDriver{
		EntDriver: &entdriver.EntDriver{
			DB: drv,
		},
	}, nil
}
