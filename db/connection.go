package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"admissions-crm/config"
	"admissions-crm/logger"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DB is a connection pool bound to a dialect. It satisfies both DBTX and
// UnitOfWork.
type DB struct {
	sql     *sql.DB
	dialect Dialect
}

// Default is the process-wide handle set by InitDB.
var Default *DB

// InitDB opens the configured database, runs migrations and stores the
// handle in Default.
func InitDB() error {
	database, err := Open(config.AppConfig.DBDriver, config.GetDSN())
	if err != nil {
		return err
	}
	if err := database.Migrate(context.Background()); err != nil {
		database.Close()
		return fmt.Errorf("error creating tables: %w", err)
	}
	Default = database
	return nil
}

// Open connects to a postgres (lib/pq) or sqlite (modernc) database.
func Open(driver, dsn string) (*DB, error) {
	var (
		dialect Dialect
		conn    *sql.DB
		err     error
	)

	switch driver {
	case "postgres", "":
		dialect = Postgres
		conn, err = sql.Open("postgres", dsn)
	case "sqlite":
		dialect = SQLite
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("creating db directory: %w", err)
			}
		}
		conn, err = sql.Open("sqlite", sqliteDSN(dsn))
		if err == nil {
			// One writer at a time; a single connection also keeps
			// ":memory:" databases from splitting across the pool.
			conn.SetMaxOpenConns(1)
		}
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	logger.Info("Database connected (driver=%s)", dialect)
	return &DB{sql: conn, dialect: dialect}, nil
}

func sqliteDSN(path string) string {
	pragmas := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path == ":memory:" {
		return "file::memory:?" + pragmas
	}
	if strings.Contains(path, "?") {
		return path + "&" + pragmas
	}
	return "file:" + path + "?" + pragmas
}

// Dialect returns the SQL dialect of the pool.
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// SQL exposes the underlying pool.
func (d *DB) SQL() *sql.DB {
	return d.sql
}

// Close closes the pool.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.sql.ExecContext(ctx, d.dialect.Rebind(query), args...)
}

func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.sql.QueryContext(ctx, d.dialect.Rebind(query), args...)
}

func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.sql.QueryRowContext(ctx, d.dialect.Rebind(query), args...)
}
