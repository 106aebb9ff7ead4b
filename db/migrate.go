package db

import (
	"fmt"

	"github.com/quailyquaily/spoolkeeper/db/models"
	"gorm.io/gorm"
)

func AutoMigrate(gdb *gorm.DB) error {
	if gdb == nil {
		return fmt.Errorf("nil gorm db")
	}
	return gdb.AutoMigrate(
		&models.Roll{},
		&models.UsageEvent{},
		&models.SchemaMigration{},
	)
}

// AppliedVersions returns the schema versions already recorded.
func AppliedVersions(gdb *gorm.DB) (map[int]bool, error) {
	var rows []models.SchemaMigration
	if err := gdb.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load schema versions: %w", err)
	}
	applied := make(map[int]bool, len(rows))
	for _, r := range rows {
		applied[r.Version] = true
	}
	return applied, nil
}
