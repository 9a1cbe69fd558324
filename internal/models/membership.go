package models

import (
	"time"
)

// MembershipTier represents the entitlement level of a membership
type MembershipTier string

const (
	TierFree     MembershipTier = "free"
	TierNormal   MembershipTier = "normal"
	TierLifetime MembershipTier = "lifetime"
)

const (
	// FreeDownloadQuota is granted when a membership is first provisioned
	FreeDownloadQuota = 5
	// NormalDownloadQuota is granted when a normal code is redeemed
	NormalDownloadQuota = 100
	// LifetimeDownloadQuota is the effectively-unlimited sentinel for lifetime members
	LifetimeDownloadQuota = 999999
	// NormalMembershipDays is the fixed extension applied by a normal code
	NormalMembershipDays = 30
)

// Membership represents a user's entitlement state. One row per user,
// created lazily on first access with free-tier defaults.
type Membership struct {
	ID            uint           `gorm:"column:id;primaryKey" json:"id"`
	UserID        uint           `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	User          *User          `gorm:"-" json:"user,omitempty"`
	Tier          MembershipTier `gorm:"column:tier;size:20;default:free;index" json:"tier"`
	ExpiresAt     *time.Time     `gorm:"column:expires_at;index" json:"expires_at"`
	DownloadQuota int            `gorm:"column:download_quota;default:0" json:"download_quota"`
	DownloadUsed  int            `gorm:"column:download_used;default:0" json:"download_used"`
	CreatedAt     time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

// Expired reports whether the membership's expiry has passed.
// A null expires_at means no expiry is enforced, regardless of tier.
func (m *Membership) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && m.ExpiresAt.Before(now)
}

// RedeemCode represents a pre-provisioned voucher that upgrades a membership.
// uses_total, uses_remaining and is_active carry no default tags: a zero
// value with a default tag is dropped from the insert, so an admin could
// never store a disabled code or one with zero remaining uses.
type RedeemCode struct {
	ID            uint           `gorm:"column:id;primaryKey" json:"id"`
	Code          string         `gorm:"column:code;size:50;uniqueIndex;not null" json:"code"`
	Tier          MembershipTier `gorm:"column:tier;size:20;not null" json:"tier"`
	UsesTotal     int            `gorm:"column:uses_total" json:"uses_total"`
	UsesRemaining int            `gorm:"column:uses_remaining" json:"uses_remaining"`
	ExpiresAt     *time.Time     `gorm:"column:expires_at" json:"expires_at"`
	IsActive      bool           `gorm:"column:is_active" json:"is_active"`
	BatchID       string         `gorm:"column:batch_id;size:50;index" json:"batch_id,omitempty"`
	CreatedBy     uint           `gorm:"column:created_by;not null" json:"created_by"`
	CreatedAt     time.Time      `gorm:"column:created_at" json:"created_at"`
}

// Redemption is an append-only audit row recording a code redemption.
// Never mutated after creation.
type Redemption struct {
	ID             uint           `gorm:"column:id;primaryKey" json:"id"`
	UserID         uint           `gorm:"column:user_id;not null;index" json:"user_id"`
	RedeemCodeID   uint           `gorm:"column:redeem_code_id;not null;index" json:"redeem_code_id"`
	MembershipTier MembershipTier `gorm:"column:membership_tier;size:20;not null" json:"membership_tier"`
	OldExpiresAt   *time.Time     `gorm:"column:old_expires_at" json:"old_expires_at"`
	NewExpiresAt   *time.Time     `gorm:"column:new_expires_at" json:"new_expires_at"`
	OldQuota       int            `gorm:"column:old_quota" json:"old_quota"`
	NewQuota       int            `gorm:"column:new_quota" json:"new_quota"`
	CreatedAt      time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (Membership) TableName() string {
	return "memberships"
}

func (RedeemCode) TableName() string {
	return "redeem_codes"
}

func (Redemption) TableName() string {
	return "redemptions"
}
