package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docvault/backend/internal/metrics"
	"github.com/docvault/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MembershipService owns membership state and the redeem-code ledger.
// All tier/expiry/quota-total changes flow through Redeem; quota
// consumption is owned by DownloadService.
type MembershipService struct {
	db *gorm.DB
}

func NewMembershipService(db *gorm.DB) *MembershipService {
	return &MembershipService{db: db}
}

// GetOrCreate returns the user's membership, provisioning free-tier
// defaults on first access. Safe under concurrent first-access: if two
// requests race the insert, the loser re-reads the winner's row.
func (s *MembershipService) GetOrCreate(userID uint) (*models.Membership, error) {
	var m models.Membership
	err := s.db.Where("user_id = ?", userID).First(&m).Error
	if err == nil {
		return &m, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("fetch membership: %w", err)
	}

	m = models.Membership{
		UserID:        userID,
		Tier:          models.TierFree,
		DownloadQuota: models.FreeDownloadQuota,
		DownloadUsed:  0,
	}
	if createErr := s.db.Create(&m).Error; createErr != nil {
		// Unique index on user_id: a concurrent request won the insert
		var existing models.Membership
		if retryErr := s.db.Where("user_id = ?", userID).First(&existing).Error; retryErr == nil {
			return &existing, nil
		}
		return nil, fmt.Errorf("create membership: %w", createErr)
	}
	return &m, nil
}

// ValidateCode checks a redeem code against the ledger without consuming
// it. Checks run in a fixed order so error messages are deterministic:
// not-found, inactive, expired, exhausted.
func (s *MembershipService) ValidateCode(code string) (*models.RedeemCode, error) {
	var rc models.RedeemCode
	if err := s.db.Where("code = ?", code).First(&rc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("fetch redeem code: %w", err)
	}
	if !rc.IsActive {
		return nil, ErrCodeInactive
	}
	if rc.ExpiresAt != nil && rc.ExpiresAt.Before(time.Now().UTC()) {
		return nil, ErrCodeExpired
	}
	if rc.UsesRemaining <= 0 {
		return nil, ErrCodeExhausted
	}
	return &rc, nil
}

// Redeem consumes one use of a code and applies its benefit to the user's
// membership as a single transaction. The guarded decrement on
// uses_remaining makes the last use race-safe: of two concurrent callers
// exactly one wins, the other sees ErrCodeExhausted.
//
// Merge rules:
//   - effective current expiry = max(now, membership expiry)
//   - lifetime code: tier lifetime, expiry null, quota 999999
//   - normal code: tier normal, expiry = effective + 30 days, quota 100
//
// download_used is never touched; redemption extends capability, it does
// not refund consumed downloads. Tier is overwritten unconditionally,
// including lifetime -> normal.
func (s *MembershipService) Redeem(userID uint, code string) (*models.Membership, *models.Redemption, error) {
	var membership models.Membership
	var redemption models.Redemption

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var rc models.RedeemCode
		if err := tx.Where("code = ?", code).First(&rc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCodeNotFound
			}
			return fmt.Errorf("fetch redeem code: %w", err)
		}

		now := time.Now().UTC()
		if !rc.IsActive {
			return ErrCodeInactive
		}
		if rc.ExpiresAt != nil && rc.ExpiresAt.Before(now) {
			return ErrCodeExpired
		}
		if rc.UsesRemaining <= 0 {
			return ErrCodeExhausted
		}

		// Atomic compare-and-decrement; RowsAffected == 0 means a
		// concurrent redemption took the last use between our read and
		// this write.
		res := tx.Model(&models.RedeemCode{}).
			Where("id = ? AND uses_remaining > 0", rc.ID).
			UpdateColumn("uses_remaining", gorm.Expr("uses_remaining - 1"))
		if res.Error != nil {
			return fmt.Errorf("decrement code uses: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrCodeExhausted
		}
		if err := tx.Model(&models.RedeemCode{}).
			Where("id = ? AND uses_remaining <= 0", rc.ID).
			UpdateColumn("is_active", false).Error; err != nil {
			return fmt.Errorf("deactivate exhausted code: %w", err)
		}

		var m models.Membership
		if err := tx.Where("user_id = ?", userID).First(&m).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("fetch membership: %w", err)
			}
			m = models.Membership{
				UserID:        userID,
				Tier:          models.TierFree,
				DownloadQuota: models.FreeDownloadQuota,
			}
			if createErr := tx.Create(&m).Error; createErr != nil {
				// Unique index on user_id: a concurrent request won the insert
				if rerr := tx.Where("user_id = ?", userID).First(&m).Error; rerr != nil {
					return fmt.Errorf("create membership: %w", createErr)
				}
			}
		}

		// A lapsed expiry counts as "now" before extension, never as a
		// negative offset.
		currentExpiry := now
		if m.ExpiresAt != nil && m.ExpiresAt.After(now) {
			currentExpiry = *m.ExpiresAt
		}

		var newTier models.MembershipTier
		var newExpiry *time.Time
		var newQuota int
		if rc.Tier == models.TierLifetime {
			newTier = models.TierLifetime
			newExpiry = nil
			newQuota = models.LifetimeDownloadQuota
		} else {
			newTier = models.TierNormal
			e := currentExpiry.AddDate(0, 0, models.NormalMembershipDays)
			newExpiry = &e
			newQuota = models.NormalDownloadQuota
		}

		redemption = models.Redemption{
			UserID:         userID,
			RedeemCodeID:   rc.ID,
			MembershipTier: rc.Tier,
			OldExpiresAt:   m.ExpiresAt,
			NewExpiresAt:   newExpiry,
			OldQuota:       m.DownloadQuota,
			NewQuota:       newQuota,
		}
		if err := tx.Create(&redemption).Error; err != nil {
			return fmt.Errorf("record redemption: %w", err)
		}

		// Map form so a nil expiry writes SQL NULL
		if err := tx.Model(&models.Membership{}).Where("id = ?", m.ID).Updates(map[string]interface{}{
			"tier":           newTier,
			"expires_at":     newExpiry,
			"download_quota": newQuota,
		}).Error; err != nil {
			return fmt.Errorf("update membership: %w", err)
		}

		m.Tier = newTier
		m.ExpiresAt = newExpiry
		m.DownloadQuota = newQuota
		membership = m
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	metrics.RedemptionsTotal.Inc()
	return &membership, &redemption, nil
}

// CreateCodeInput carries the privileged code-creation parameters
type CreateCodeInput struct {
	Code      string
	Tier      models.MembershipTier
	UsesTotal int
	ExpiresAt *time.Time
	IsActive  *bool
}

// CreateCode provisions a single redeem code. Returns ErrCodeExists when
// the code string is taken.
func (s *MembershipService) CreateCode(in CreateCodeInput, createdBy uint) (*models.RedeemCode, error) {
	var existing models.RedeemCode
	if err := s.db.Where("code = ?", in.Code).First(&existing).Error; err == nil {
		return nil, ErrCodeExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check code: %w", err)
	}

	usesTotal := in.UsesTotal
	if usesTotal < 1 {
		usesTotal = 1
	}
	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}

	rc := models.RedeemCode{
		Code:          strings.TrimSpace(in.Code),
		Tier:          in.Tier,
		UsesTotal:     usesTotal,
		UsesRemaining: usesTotal,
		ExpiresAt:     in.ExpiresAt,
		IsActive:      isActive,
		CreatedBy:     createdBy,
	}
	if err := s.db.Create(&rc).Error; err != nil {
		// Concurrent create of the same code slips past the pre-check and
		// hits the unique index instead
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCodeExists
		}
		return nil, fmt.Errorf("create code: %w", err)
	}
	return &rc, nil
}

// GenerateCodes mints a batch of random codes sharing one batch id
func (s *MembershipService) GenerateCodes(tier models.MembershipTier, count, usesTotal int, expiresAt *time.Time, prefix string, createdBy uint) (string, []models.RedeemCode, error) {
	if count < 1 || count > 1000 {
		return "", nil, fmt.Errorf("count must be between 1 and 1000")
	}
	if usesTotal < 1 {
		usesTotal = 1
	}

	batchID := uuid.NewString()
	codes := make([]models.RedeemCode, 0, count)
	for i := 0; i < count; i++ {
		codes = append(codes, models.RedeemCode{
			Code:          generateCode(prefix, 12),
			Tier:          tier,
			UsesTotal:     usesTotal,
			UsesRemaining: usesTotal,
			ExpiresAt:     expiresAt,
			IsActive:      true,
			BatchID:       batchID,
			CreatedBy:     createdBy,
		})
	}
	if err := s.db.Create(&codes).Error; err != nil {
		return "", nil, fmt.Errorf("generate codes: %w", err)
	}
	return batchID, codes, nil
}

// ListCodes returns redeem codes newest first with a total count
func (s *MembershipService) ListCodes(page, limit int) ([]models.RedeemCode, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 25
	}

	var total int64
	if err := s.db.Model(&models.RedeemCode{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count codes: %w", err)
	}

	var codes []models.RedeemCode
	if err := s.db.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&codes).Error; err != nil {
		return nil, 0, fmt.Errorf("list codes: %w", err)
	}
	return codes, total, nil
}

func generateCode(prefix string, length int) string {
	bytes := make([]byte, (length+1)/2)
	rand.Read(bytes)
	code := strings.ToUpper(hex.EncodeToString(bytes))[:length]
	if prefix != "" {
		return strings.ToUpper(prefix) + "-" + code
	}
	return code
}
