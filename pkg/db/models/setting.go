package models

import "time"

// Setting is one named numeric configuration value, read per-operation so the
// pricing engine never caches process-wide state.
type Setting struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
