package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported history drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// DB wraps the run-history database connection.
type DB struct {
	conn   *sql.DB
	driver string
}

// New opens (or creates) the history database. For sqlite, dsn is a file
// path; for postgres and mysql it is the driver's connection string.
func New(driver, dsn string) (*DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty %s dsn", driver)
	}

	var (
		conn *sql.DB
		err  error
	)
	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		conn, err = sql.Open("sqlite", dsn+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
		if err == nil {
			// SQLite only supports one writer
			conn.SetMaxOpenConns(1)
		}
	case DriverPostgres:
		conn, err = sql.Open("postgres", dsn)
	case DriverMySQL:
		conn, err = sql.Open("mysql", withParseTime(dsn))
	default:
		return nil, fmt.Errorf("unsupported history driver: %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver != DriverSQLite {
		conn.SetMaxOpenConns(5)
		conn.SetMaxIdleConns(2)
		conn.SetConnMaxLifetime(10 * time.Minute)
	}

	db := &DB{conn: conn, driver: driver}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Driver returns the driver name the DB was opened with.
func (db *DB) Driver() string {
	return db.driver
}

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// rebind rewrites ? placeholders to $n for postgres.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// withParseTime makes the mysql driver scan DATETIME columns into time.Time.
func withParseTime(dsn string) string {
	if strings.Contains(dsn, "parseTime=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true"
	}
	return dsn + "?parseTime=true"
}

func (db *DB) migrate() error {
	for _, m := range migrations(db.driver) {
		if _, err := db.conn.Exec(m); err != nil {
			// mysql has no CREATE INDEX IF NOT EXISTS
			if db.driver == DriverMySQL && strings.Contains(err.Error(), "Duplicate key name") {
				continue
			}
			return fmt.Errorf("migration failed: %s: %w", m[:min(40, len(m))], err)
		}
	}
	return nil
}

func migrations(driver string) []string {
	idType, tsType := "TEXT", "DATETIME"
	switch driver {
	case DriverPostgres:
		tsType = "TIMESTAMPTZ"
	case DriverMySQL:
		idType, tsType = "VARCHAR(64)", "DATETIME(6)"
	}

	createIndex := `CREATE INDEX IF NOT EXISTS idx_export_runs_started ON export_runs(started_at)`
	if driver == DriverMySQL {
		createIndex = `CREATE INDEX idx_export_runs_started ON export_runs(started_at)`
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS export_runs (
			id ` + idType + ` PRIMARY KEY,
			started_at ` + tsType + ` NOT NULL,
			finished_at ` + tsType + ` NOT NULL,
			status VARCHAR(16) NOT NULL,
			collections TEXT NOT NULL,
			failed_collections TEXT NOT NULL,
			rows_read INTEGER NOT NULL DEFAULT 0,
			rows_written INTEGER NOT NULL DEFAULT 0,
			rows_skipped INTEGER NOT NULL DEFAULT 0,
			output TEXT NOT NULL,
			error TEXT NOT NULL
		)`,
		createIndex,
	}
}
