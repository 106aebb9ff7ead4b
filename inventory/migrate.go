package inventory

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/quailyquaily/spoolkeeper/catalog"
	"github.com/quailyquaily/spoolkeeper/db"
	"github.com/quailyquaily/spoolkeeper/db/models"
	"gorm.io/gorm"
)

const (
	schemaVersionTables    = 1
	schemaVersionCanonical = 2
)

type migration struct {
	version int
	name    string
	apply   func(s *Store, tx *gorm.DB) error
}

var migrations = []migration{
	{version: schemaVersionTables, name: "tables", apply: func(*Store, *gorm.DB) error { return nil }},
	{version: schemaVersionCanonical, name: "canonical_labels", apply: (*Store).canonicalizeAll},
}

// Migrate creates the tables and runs every schema pass not yet recorded.
// Each pass commits together with its version row.
func (s *Store) Migrate(ctx context.Context) error {
	gdb := s.DB.WithContext(ctx)
	if err := db.AutoMigrate(gdb); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	applied, err := db.AppliedVersions(gdb)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		err := gdb.Transaction(func(tx *gorm.DB) error {
			if err := m.apply(s, tx); err != nil {
				return err
			}
			return tx.Create(&models.SchemaMigration{Version: m.version, AppliedAt: s.now().Unix()}).Error
		})
		if err != nil {
			return fmt.Errorf("schema pass %d (%s): %w", m.version, m.name, err)
		}
		s.log.Info("schema_pass_applied", "version", m.version, "name", m.name)
	}
	return nil
}

// canonicalizeAll rewrites every stored label into its canonical form.
func (s *Store) canonicalizeAll(tx *gorm.DB) error {
	fields := []struct {
		col   string
		field catalog.Field
	}{
		{"brand", catalog.FieldBrand},
		{"color", catalog.FieldColor},
		{"material", catalog.FieldMaterial},
		{"attribute_1", catalog.FieldAttribute1},
		{"attribute_2", catalog.FieldAttribute2},
		{"location", catalog.FieldLocation},
	}
	for _, model := range []any{&models.Roll{}, &models.UsageEvent{}} {
		for _, f := range fields {
			var values []string
			if err := tx.Model(model).Distinct().Pluck(f.col, &values).Error; err != nil {
				return err
			}
			for _, v := range values {
				canon := s.canon.Canonicalize(v, f.field)
				if canon == v {
					continue
				}
				if err := tx.Model(model).Where(f.col+" = ?", v).Update(f.col, canon).Error; err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Bootstrap prepares the database and, on a fresh store, imports the
// legacy workbook when one exists at legacyPath. A populated store is
// detected with a plain read, so the workbook is not opened and no backup
// is taken.
func (s *Store) Bootstrap(ctx context.Context, legacyPath string) (*ImportResult, error) {
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}
	legacyPath = strings.TrimSpace(legacyPath)
	if legacyPath == "" {
		return nil, nil
	}
	empty, err := storeIsEmpty(s.DB.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	if !empty {
		return &ImportResult{AlreadyPopulated: true}, nil
	}
	if _, err := os.Stat(legacyPath); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat legacy workbook: %w", err)
	}
	res, err := s.ImportLegacy(ctx, legacyPath)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
