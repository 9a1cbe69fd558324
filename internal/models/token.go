package models

import (
	"time"
)

// ShareToken grants time-limited, optionally password-gated access to a
// single document without authentication. The secret is a shared access
// gate handed out together with the link, not a credential, so it is
// stored and compared as plaintext.
type ShareToken struct {
	Token      string    `gorm:"column:token;size:64;primaryKey" json:"token"`
	DocumentID uint      `gorm:"column:document_id;not null;index" json:"document_id"`
	Secret     string    `gorm:"column:secret;size:255" json:"-"`
	ExpiresAt  time.Time `gorm:"column:expires_at;not null" json:"expires_at"`

	// Single-use is not enforced; the column is kept so the product can
	// turn it on without a migration.
	IsUsed bool `gorm:"column:is_used;default:false" json:"is_used"`

	CreatedBy uint      `gorm:"column:created_by;not null" json:"created_by"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

// RequiresSecret reports whether opening the token needs a password
func (t *ShareToken) RequiresSecret() bool {
	return t.Secret != ""
}

func (ShareToken) TableName() string {
	return "share_tokens"
}
