package models

type SchemaMigration struct {
	Version   int   `gorm:"column:version;primaryKey;autoIncrement:false"`
	AppliedAt int64 `gorm:"column:applied_at;not null"`
}

func (SchemaMigration) TableName() string { return "schema_migrations" }
