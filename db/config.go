package db

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/quailyquaily/spoolkeeper/internal/pathutil"
)

const DefaultSQLitePath = "~/.spoolkeeper/spoolkeeper.db"

type Config struct {
	Driver      string
	DSN         string
	AutoMigrate bool
	Pool        PoolConfig
	SQLite      SQLiteConfig
}

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type SQLiteConfig struct {
	BusyTimeoutMs int
	WAL           bool
	ForeignKeys   bool
}

func DefaultConfig() Config {
	return Config{
		Driver:      "sqlite",
		DSN:         DefaultSQLitePath,
		AutoMigrate: true,
		Pool: PoolConfig{
			MaxOpenConns: 4,
			MaxIdleConns: 2,
		},
		SQLite: SQLiteConfig{
			BusyTimeoutMs: 5000,
			WAL:           true,
		},
	}
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.HasPrefix(dsn, "file::memory:")
}

// SQLitePath turns a configured DSN into a database file path, expanding
// "~" and creating the parent directory.
func SQLitePath(dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = DefaultSQLitePath
	}
	if isMemoryDSN(dsn) {
		return dsn, nil
	}
	dsn = strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(dsn, '?'); i >= 0 {
		dsn = dsn[:i]
	}
	path := pathutil.ExpandHomePath(dsn)
	if path == "" {
		return "", fmt.Errorf("empty sqlite path")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return "", fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	return path, nil
}

// ResolveSQLiteDSN builds the driver DSN. Per-connection pragmas ride on
// the DSN so every pooled connection gets them; writers take the lock at
// BEGIN so concurrent writes queue on busy_timeout instead of failing.
func ResolveSQLiteDSN(dsn string, cfg SQLiteConfig) (string, error) {
	path, err := SQLitePath(dsn)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	if cfg.BusyTimeoutMs > 0 {
		q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeoutMs))
	}
	if cfg.ForeignKeys {
		q.Add("_pragma", "foreign_keys(1)")
	}
	q.Set("_txlock", "immediate")
	q.Set("_time_format", "sqlite")
	return path + "?" + q.Encode(), nil
}
