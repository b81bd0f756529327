// Package mysql provides a MySQL-backed storage driver.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	mysqldrv "github.com/go-sql-driver/mysql"

	entdriver "github.com/inkwellhq/inkwell/pkg/storage/ent/driver"
)

// Driver implements storage.Driver using MySQL via the ent driver.
type Driver struct {
	*entdriver.EntDriver
}

// NewDriver creates a MySQL-backed driver from a go-sql-driver DSN such as
// "inkwell:inkwell@tcp(localhost:3306)/inkwell". parseTime is always enabled
// so timestamp columns scan into time.Time.
func NewDriver(ctx context.Context, dsn string) (*Driver, error) {
	cfg, err := mysqldrv.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true

	connector, err := mysqldrv.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}
	db := sql.OpenDB(connector)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	ed, err := entdriver.New(ctx, dialect.MySQL, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Driver{EntDriver: ed}, nil
}
