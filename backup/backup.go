// Package backup takes point-in-time copies of the inventory database
// before writes and prunes old copies.
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"
)

const stampLayout = "20060102T150405.000000000Z"

type Config struct {
	Enabled bool
	// Dir holds the copies. Empty means "backups" next to the database.
	Dir string
	// RetentionDays drops copies older than this many days. Zero keeps all.
	RetentionDays int
}

// SnapshotFunc writes a consistent copy of the database to dest.
type SnapshotFunc func(ctx context.Context, dest string) error

type Manager struct {
	Config
	DBPath   string
	Snapshot SnapshotFunc
	Logger   *slog.Logger
	Now      func() time.Time
}

// NewSQLite returns a Manager that snapshots with VACUUM INTO, which is
// safe while other connections read or write.
func NewSQLite(gdb *gorm.DB, dbPath string, cfg Config) *Manager {
	return &Manager{
		Config: cfg,
		DBPath: dbPath,
		Snapshot: func(ctx context.Context, dest string) error {
			return gdb.WithContext(ctx).Exec("VACUUM INTO ?", dest).Error
		},
	}
}

func (m *Manager) dir() string {
	if d := strings.TrimSpace(m.Dir); d != "" {
		return d
	}
	return filepath.Join(filepath.Dir(m.DBPath), "backups")
}

func (m *Manager) prefix() string {
	base := filepath.Base(m.DBPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_"
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now().UTC()
	}
	return time.Now().UTC()
}

func (m *Manager) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

// Backup writes a new copy and prunes expired ones. It returns "" when
// backups are disabled or the database has no file.
func (m *Manager) Backup(ctx context.Context) (string, error) {
	if m == nil || !m.Enabled || m.Snapshot == nil {
		return "", nil
	}
	if m.DBPath == "" || strings.Contains(m.DBPath, ":memory:") {
		return "", nil
	}
	if _, err := os.Stat(m.DBPath); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("backup: stat db: %w", err)
	}
	dir := m.dir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("backup: mkdir: %w", err)
	}
	now := m.now()
	dest := filepath.Join(dir, m.prefix()+now.Format(stampLayout)+".db")
	if err := m.Snapshot(ctx, dest); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("backup: snapshot: %w", err)
	}
	m.logger().Debug("backup_written", "path", dest)

	if removed, err := m.Prune(now); err != nil {
		m.logger().Warn("backup_prune_error", "dir", dir, "error", err.Error())
	} else if removed > 0 {
		m.logger().Debug("backup_pruned", "dir", dir, "removed", removed)
	}
	return dest, nil
}

// Prune removes copies of this database older than RetentionDays.
func (m *Manager) Prune(now time.Time) (int, error) {
	if m.RetentionDays <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(m.dir())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	cutoff := now.Add(-time.Duration(m.RetentionDays) * 24 * time.Hour)
	prefix := m.prefix()
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".db") {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".db")
		ts, err := time.Parse(stampLayout, stamp)
		if err != nil {
			continue
		}
		if ts.Before(cutoff) {
			if err := os.Remove(filepath.Join(m.dir(), name)); err != nil && !os.IsNotExist(err) {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
