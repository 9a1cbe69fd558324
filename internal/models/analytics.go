package models

import (
	"time"
)

// Download is an immutable audit row recording one granted download
type Download struct {
	ID         uint      `gorm:"column:id;primaryKey" json:"id"`
	UserID     uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	DocumentID uint      `gorm:"column:document_id;not null;index" json:"document_id"`
	IPAddress  string    `gorm:"column:ip_address;size:45" json:"ip_address,omitempty"`
	UserAgent  string    `gorm:"column:user_agent;size:500" json:"user_agent,omitempty"`
	CreatedAt  time.Time `gorm:"column:created_at;index" json:"created_at"`
}

func (Download) TableName() string {
	return "downloads"
}
