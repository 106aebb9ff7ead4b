package models

import "time"

// Roll is one physical spool, keyed by its barcode.
type Roll struct {
	Barcode        string    `gorm:"column:barcode;type:text;primaryKey" json:"barcode" yaml:"barcode"`
	Timestamp      time.Time `gorm:"column:timestamp;not null" json:"timestamp" yaml:"timestamp"`
	Brand          string    `gorm:"column:brand;type:text;not null;default:''" json:"brand" yaml:"brand"`
	Color          string    `gorm:"column:color;type:text;not null;default:''" json:"color" yaml:"color"`
	Material       string    `gorm:"column:material;type:text;not null;default:''" json:"material" yaml:"material"`
	Attribute1     string    `gorm:"column:attribute_1;type:text;not null;default:''" json:"attribute_1" yaml:"attribute_1"`
	Attribute2     string    `gorm:"column:attribute_2;type:text;not null;default:''" json:"attribute_2" yaml:"attribute_2"`
	FilamentAmount float64   `gorm:"column:filament_amount;not null;default:0" json:"filament_amount" yaml:"filament_amount"`
	Location       string    `gorm:"column:location;type:text;not null;default:''" json:"location" yaml:"location"`
	RollWeight     *float64  `gorm:"column:roll_weight" json:"roll_weight,omitempty" yaml:"roll_weight,omitempty"`
	TimesLoggedOut int       `gorm:"column:times_logged_out;not null;default:0" json:"times_logged_out" yaml:"times_logged_out"`
	IsEmpty        bool      `gorm:"column:is_empty;not null;default:false;index:idx_inventory_is_empty" json:"is_empty" yaml:"is_empty"`
	IsFavorite     bool      `gorm:"column:is_favorite;not null;default:false" json:"is_favorite" yaml:"is_favorite"`
}

func (Roll) TableName() string { return "inventory" }
