package db

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// applySQLitePragmas sets database-wide pragmas. journal_mode persists in
// the file, so running it on one connection is enough.
func applySQLitePragmas(gdb *gorm.DB, cfg SQLiteConfig) error {
	if gdb == nil {
		return fmt.Errorf("nil gorm db")
	}
	if !cfg.WAL {
		return nil
	}
	var mode string
	if err := gdb.Raw("PRAGMA journal_mode=WAL;").Scan(&mode).Error; err != nil {
		return fmt.Errorf("set journal_mode: %w", err)
	}
	// In-memory databases report "memory" and cannot switch.
	if m := strings.ToLower(mode); m != "wal" && m != "memory" {
		return fmt.Errorf("set journal_mode: got %q", mode)
	}
	if err := gdb.Exec("PRAGMA synchronous=NORMAL;").Error; err != nil {
		return err
	}
	return nil
}

// JournalMode reports the current journal mode, mostly for diagnostics.
func JournalMode(gdb *gorm.DB) (string, error) {
	var mode string
	if err := gdb.Raw("PRAGMA journal_mode;").Scan(&mode).Error; err != nil {
		return "", err
	}
	return strings.ToLower(mode), nil
}
