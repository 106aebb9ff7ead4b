// Package inventory is the roll store: rolls, their usage events, the
// reports built on them and the one-time import of the legacy workbook.
package inventory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/quailyquaily/spoolkeeper/barcode"
	"github.com/quailyquaily/spoolkeeper/catalog"
	"github.com/quailyquaily/spoolkeeper/db/models"
	"gorm.io/gorm"
)

// Backuper copies the database before a write.
type Backuper interface {
	Backup(ctx context.Context) (string, error)
}

// Journal mirrors committed usage events somewhere outside the database.
type Journal interface {
	Emit(ctx context.Context, opID string, e models.UsageEvent) error
}

type Options struct {
	Canonicalizer *catalog.Canonicalizer
	Codec         *barcode.Codec
	Settings      Settings
	Backup        Backuper
	Journal       Journal
	Logger        *slog.Logger
	Now           func() time.Time
}

type Store struct {
	DB *gorm.DB

	canon    *catalog.Canonicalizer
	codec    *barcode.Codec
	settings Settings
	backup   Backuper
	journal  Journal
	log      *slog.Logger
	now      func() time.Time
}

func New(gdb *gorm.DB, opts Options) *Store {
	s := &Store{
		DB:       gdb,
		canon:    opts.Canonicalizer,
		codec:    opts.Codec,
		settings: opts.Settings.withDefaults(),
		backup:   opts.Backup,
		journal:  opts.Journal,
		log:      opts.Logger,
		now:      opts.Now,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.canon == nil {
		s.canon = catalog.NewCanonicalizer(nil)
	}
	if s.codec == nil {
		s.codec = barcode.NewCodec(s.canon.Catalogs)
	}
	return s
}

func (s *Store) Settings() Settings { return s.settings }

// write runs fn in one transaction. A backup is attempted first and the
// returned events are journaled after commit; neither can fail the write.
func (s *Store) write(ctx context.Context, op string, fn func(tx *gorm.DB) ([]models.UsageEvent, error)) error {
	opID := uuid.NewString()
	log := s.log.With("op", op, "op_id", opID)

	if s.backup != nil {
		if path, err := s.backup.Backup(ctx); err != nil {
			log.Warn("backup_failed", "error", err.Error())
		} else if path != "" {
			log.Debug("backup_done", "path", path)
		}
	}

	var events []models.UsageEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		evs, err := fn(tx)
		if err != nil {
			return err
		}
		events = evs
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalid) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrBarcodeExists) {
			log.Debug("write_rejected", "error", err.Error())
		} else {
			log.Warn("write_failed", "error", err.Error())
		}
		return err
	}

	if s.journal != nil {
		for _, e := range events {
			if jerr := s.journal.Emit(ctx, opID, e); jerr != nil {
				log.Warn("journal_emit_failed", "barcode", e.Barcode, "error", jerr.Error())
			}
		}
	}
	log.Info("write_committed", "events", len(events))
	return nil
}

// timestamp is stored in UTC so text ordering in SQLite is chronological.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

func findRoll(tx *gorm.DB, code string) (models.Roll, error) {
	var roll models.Roll
	if err := tx.Where("barcode = ?", code).Take(&roll).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Roll{}, ErrNotFound
		}
		return models.Roll{}, err
	}
	return roll, nil
}

func eventFor(roll models.Roll, eventType string) models.UsageEvent {
	return models.UsageEvent{
		Timestamp:      roll.Timestamp,
		EventType:      eventType,
		Barcode:        roll.Barcode,
		Brand:          roll.Brand,
		Color:          roll.Color,
		Material:       roll.Material,
		Attribute1:     roll.Attribute1,
		Attribute2:     roll.Attribute2,
		Location:       roll.Location,
		RollWeight:     roll.RollWeight,
		FilamentAmount: roll.FilamentAmount,
		TimesLoggedOut: roll.TimesLoggedOut,
	}
}
