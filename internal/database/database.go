// Package database opens the database described by the database section
// and probes it.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "modernc.org/sqlite"             // registers "sqlite"

	"github.com/wesleyorama2/testbench/internal/config"
)

var (
	// ErrDriverUnavailable is returned for database types that are valid
	// configuration but have no driver linked into this binary.
	ErrDriverUnavailable = errors.New("database driver unavailable")
	// ErrUnsupportedType is returned for an unknown database type.
	ErrUnsupportedType = errors.New("unsupported database type")
)

const defaultTimeout = 30 * time.Second

// DB wraps a connection pool together with its configured type.
type DB struct {
	*sql.DB
	Type string
}

// DriverName maps a configured database type to a database/sql driver.
func DriverName(dbType string) (string, error) {
	switch dbType {
	case "sqlite":
		return "sqlite", nil
	case "postgresql":
		return "pgx", nil
	case "mysql", "mongodb":
		return "", fmt.Errorf("%w: %s", ErrDriverUnavailable, dbType)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, dbType)
	}
}

// DSN builds the connection string for cfg. Password is included for
// postgresql, so never log the result.
func DSN(cfg config.DatabaseConfig) (string, error) {
	switch cfg.Type {
	case "sqlite":
		path := cfg.Database
		if path == "" {
			path = ":memory:"
		}
		return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", path, timeout(cfg).Milliseconds()), nil
	case "postgresql":
		u := url.URL{
			Scheme: "postgres",
			Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Path:   "/" + cfg.Database,
		}
		if cfg.Username != "" {
			if cfg.Password != "" {
				u.User = url.UserPassword(cfg.Username, cfg.Password)
			} else {
				u.User = url.User(cfg.Username)
			}
		}
		q := url.Values{}
		q.Set("connect_timeout", strconv.Itoa(int(timeout(cfg).Seconds())))
		u.RawQuery = q.Encode()
		return u.String(), nil
	default:
		_, err := DriverName(cfg.Type)
		return "", err
	}
}

// Open creates a pool for cfg, applies the pool size and verifies the
// connection within the configured timeout.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	driver, err := DriverName(cfg.Type)
	if err != nil {
		return nil, err
	}
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open failed: %w", cfg.Type, err)
	}
	if cfg.ConnectionPoolSize > 0 {
		db.SetMaxOpenConns(cfg.ConnectionPoolSize)
		db.SetMaxIdleConns(cfg.ConnectionPoolSize)
	}
	db.SetConnMaxLifetime(time.Hour)

	d := &DB{DB: db, Type: cfg.Type}
	if _, err := d.Ping(ctx, timeout(cfg)); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

// Ping checks connectivity and returns the round trip time.
func (d *DB) Ping(ctx context.Context, limit time.Duration) (time.Duration, error) {
	if limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}
	start := time.Now()
	if err := d.PingContext(ctx); err != nil {
		return 0, fmt.Errorf("%s: ping failed: %w", d.Type, err)
	}
	return time.Since(start), nil
}

// ServerVersion asks the server for its version string.
func (d *DB) ServerVersion(ctx context.Context) (string, error) {
	query := "SELECT version()"
	if d.Type == "sqlite" {
		query = "SELECT sqlite_version()"
	}
	var version string
	if err := d.QueryRowContext(ctx, query).Scan(&version); err != nil {
		return "", fmt.Errorf("%s: version query failed: %w", d.Type, err)
	}
	return version, nil
}

func timeout(cfg config.DatabaseConfig) time.Duration {
	if cfg.Timeout <= 0 {
		return defaultTimeout
	}
	return time.Duration(cfg.Timeout) * time.Second
}
