package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
)

func ParseDialect(driver string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(driver))); d {
	case DialectPostgres, DialectMySQL, DialectSQLite:
		return d, nil
	case "postgresql", "supabase":
		return DialectPostgres, nil
	case "sqlite3":
		return DialectSQLite, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", driver)
}

// rebind rewrites ? placeholders into $1, $2, ... for postgres.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
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

func (d Dialect) schema() []string {
	switch d {
	case DialectMySQL:
		return []string{
			`CREATE TABLE IF NOT EXISTS pantry_items (
				id VARCHAR(36) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				quantity INT NOT NULL DEFAULT 1,
				expiration_date VARCHAR(10) NOT NULL,
				location VARCHAR(255) NULL,
				created_at VARCHAR(40) NOT NULL,
				INDEX idx_pantry_items_expiration (expiration_date)
			)`,
			`CREATE TABLE IF NOT EXISTS pantry_events (
				id VARCHAR(36) PRIMARY KEY,
				kind VARCHAR(16) NOT NULL,
				item_id VARCHAR(36) NOT NULL,
				item_name VARCHAR(255) NOT NULL,
				source VARCHAR(16) NOT NULL,
				utterance TEXT NULL,
				created_at VARCHAR(40) NOT NULL
			)`,
		}
	default:
		return []string{
			`CREATE TABLE IF NOT EXISTS pantry_items (
				id VARCHAR(36) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				quantity INTEGER NOT NULL DEFAULT 1,
				expiration_date VARCHAR(10) NOT NULL,
				location VARCHAR(255) NULL,
				created_at VARCHAR(40) NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_pantry_items_expiration ON pantry_items (expiration_date)`,
			`CREATE TABLE IF NOT EXISTS pantry_events (
				id VARCHAR(36) PRIMARY KEY,
				kind VARCHAR(16) NOT NULL,
				item_id VARCHAR(36) NOT NULL,
				item_name VARCHAR(255) NOT NULL,
				source VARCHAR(16) NOT NULL,
				utterance TEXT NULL,
				created_at VARCHAR(40) NOT NULL
			)`,
		}
	}
}

type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to the database for the given dialect and verifies the
// connection with a ping.
func Open(ctx context.Context, dialect Dialect, dsn string, pool PoolOptions) (*sql.DB, error) {
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}

	if dialect == DialectSQLite {
		// one writer at a time; in-memory databases are per connection
		db.SetMaxOpenConns(1)
	} else {
		if pool.MaxOpenConns > 0 {
			db.SetMaxOpenConns(pool.MaxOpenConns)
		}
		if pool.MaxIdleConns > 0 {
			db.SetMaxIdleConns(pool.MaxIdleConns)
		}
		if pool.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(pool.ConnMaxLifetime)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return db, nil
}
