package models

import (
	"time"
)

// SystemSetting is a key-value configuration row for platform features
// (provider keys, upload limits, branding).
type SystemSetting struct {
	Key         string    `gorm:"column:key;size:100;primaryKey" json:"key"`
	Value       string    `gorm:"column:value;type:text" json:"value"`
	Description string    `gorm:"column:description;size:255" json:"description,omitempty"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}
