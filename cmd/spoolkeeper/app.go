package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quailyquaily/spoolkeeper/backup"
	"github.com/quailyquaily/spoolkeeper/barcode"
	"github.com/quailyquaily/spoolkeeper/catalog"
	"github.com/quailyquaily/spoolkeeper/db"
	"github.com/quailyquaily/spoolkeeper/inventory"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

// app holds everything a command needs. It is built lazily so commands
// that only read catalogs never open the database.
type app struct {
	v   *viper.Viper
	log *slog.Logger

	catalogs *catalog.Registry
	codec    *barcode.Codec

	gdb     *gorm.DB
	store   *inventory.Store
	journal *inventory.JSONLJournal
	backups *backup.Manager
}

func newApp(v *viper.Viper, log *slog.Logger) *app {
	reg := catalog.NewRegistry(pathFromViper(v, "catalog.dir"), log)
	return &app{
		v:        v,
		log:      log,
		catalogs: reg,
		codec:    barcode.NewCodec(reg),
	}
}

// Store opens the database, runs pending schema passes and imports the
// legacy workbook on first use.
func (a *app) Store(ctx context.Context) (*inventory.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	cfg := dbConfigFromViper(a.v)
	gdb, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	dbPath, err := db.SQLitePath(cfg.DSN)
	if err != nil {
		_ = db.Close(gdb)
		return nil, err
	}

	a.backups = backup.NewSQLite(gdb, dbPath, backupConfigFromViper(a.v))
	a.backups.Logger = a.log

	opts := inventory.Options{
		Canonicalizer: catalog.NewCanonicalizer(a.catalogs),
		Codec:         a.codec,
		Settings:      settingsFromViper(a.v, a.log),
		Backup:        a.backups,
		Logger:        a.log,
	}
	if path := strings.TrimSpace(a.v.GetString("journal.jsonl_path")); path != "" {
		j, err := inventory.NewJSONLJournal(pathFromViper(a.v, "journal.jsonl_path"), a.v.GetInt64("journal.rotate_max_bytes"))
		if err != nil {
			a.log.Warn("journal_open_error", "path", path, "error", err.Error())
		} else {
			a.journal = j
			opts.Journal = j
		}
	}

	st := inventory.New(gdb, opts)
	res, err := st.Bootstrap(ctx, pathFromViper(a.v, "legacy.xlsx_path"))
	if err != nil {
		_ = db.Close(gdb)
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	if res != nil && res.Rolls+res.Events > 0 {
		a.log.Info("legacy_workbook_imported", "rolls", res.Rolls, "events", res.Events)
	}
	a.gdb = gdb
	a.store = st
	return st, nil
}

func (a *app) Close() error {
	if a == nil {
		return nil
	}
	if a.journal != nil {
		_ = a.journal.Close()
	}
	return db.Close(a.gdb)
}
