package models

import "time"

const (
	EventNewRoll  = "new_roll"
	EventLogUsage = "log_usage"
)

// UsageEvent is an append-only snapshot written on every roll mutation.
// Barcode is a plain column, not a foreign key.
type UsageEvent struct {
	ID             int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id" yaml:"id"`
	Timestamp      time.Time `gorm:"column:timestamp;not null;index:idx_usage_events_type_time,priority:2" json:"timestamp" yaml:"timestamp"`
	EventType      string    `gorm:"column:event_type;type:text;not null;index:idx_usage_events_type_time,priority:1" json:"event_type" yaml:"event_type"`
	Barcode        string    `gorm:"column:barcode;type:text;not null;index:idx_usage_events_barcode" json:"barcode" yaml:"barcode"`
	Brand          string    `gorm:"column:brand;type:text;not null;default:''" json:"brand" yaml:"brand"`
	Color          string    `gorm:"column:color;type:text;not null;default:''" json:"color" yaml:"color"`
	Material       string    `gorm:"column:material;type:text;not null;default:''" json:"material" yaml:"material"`
	Attribute1     string    `gorm:"column:attribute_1;type:text;not null;default:''" json:"attribute_1" yaml:"attribute_1"`
	Attribute2     string    `gorm:"column:attribute_2;type:text;not null;default:''" json:"attribute_2" yaml:"attribute_2"`
	Location       string    `gorm:"column:location;type:text;not null;default:''" json:"location" yaml:"location"`
	InputWeight    *float64  `gorm:"column:input_weight" json:"input_weight,omitempty" yaml:"input_weight,omitempty"`
	RollWeight     *float64  `gorm:"column:roll_weight" json:"roll_weight,omitempty" yaml:"roll_weight,omitempty"`
	FilamentAmount float64   `gorm:"column:filament_amount;not null;default:0" json:"filament_amount" yaml:"filament_amount"`
	DeltaUsed      float64   `gorm:"column:delta_used;not null;default:0" json:"delta_used" yaml:"delta_used"`
	TimesLoggedOut int       `gorm:"column:times_logged_out;not null;default:0" json:"times_logged_out" yaml:"times_logged_out"`
	Source         string    `gorm:"column:source;type:text;not null;default:''" json:"source" yaml:"source"`
}

func (UsageEvent) TableName() string { return "usage_events" }
