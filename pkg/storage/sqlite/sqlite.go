// Package sqlite provides a SQLite-backed storage driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
	_ "github.com/mattn/go-sqlite3"

	entdriver "github.com/inkwellhq/inkwell/pkg/storage/ent/driver"
)

// Driver implements storage.Driver using SQLite via the ent driver.
type Driver struct {
	*entdriver.EntDriver
}

// NewDriver creates a SQLite-backed driver. dbPath is a file path or
// ":memory:" for an in-memory database.
func NewDriver(ctx context.Context, dbPath string) (*Driver, error) {
	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: writes are serialized by SQLite anyway, and every
	// connection to ":memory:" would otherwise see its own empty database.
	db.SetMaxOpenConns(1)

	ed, err := entdriver.New(ctx, dialect.SQLite, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Driver{EntDriver: ed}, nil
}

// dsn enables foreign keys, which ent's migration requires.
func dsn(path string) string {
	if strings.Contains(path, "?") {
		return "file:" + path + "&_fk=1"
	}
	return "file:" + path + "?_fk=1"
}
