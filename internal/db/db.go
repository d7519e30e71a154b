package db

import (
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DB is a *sql.DB that remembers which driver it speaks to.
type DB struct {
	*sql.DB
	Driver string
}

func Connect(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	sqldb, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	// one writer at a time; also keeps ":memory:" databases on a single connection
	if driver == DriverSQLite {
		sqldb.SetMaxOpenConns(1)
	}

	if err := sqldb.Ping(); err != nil {
		sqldb.Close()
		return nil, err
	}

	return &DB{DB: sqldb, Driver: driver}, nil
}

var placeholderRe = regexp.MustCompile(`\$\d+`)

// Rebind rewrites $N placeholders for drivers that only take "?".
// Queries must use each placeholder once, in ascending order.
func (d *DB) Rebind(query string) string {
	if d.Driver != DriverSQLite {
		return query
	}
	return placeholderRe.ReplaceAllString(query, "?")
}
