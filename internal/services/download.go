package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/docvault/backend/internal/metrics"
	"github.com/docvault/backend/internal/models"
	"gorm.io/gorm"
)

// DownloadService is the quota enforcement engine. It is the only writer
// of download_used.
type DownloadService struct {
	db *gorm.DB
}

func NewDownloadService(db *gorm.DB) *DownloadService {
	return &DownloadService{db: db}
}

// DownloadMeta carries optional network metadata for the audit record
type DownloadMeta struct {
	IPAddress string
	UserAgent string
}

// Grant is a successful download authorization
type Grant struct {
	URL        string
	DocumentID uint
}

// Authorize checks the caller's entitlement and records the download.
// Membership update, document counter, and audit row commit as one
// transaction; a denial rolls back without touching any counter.
//
// Lifetime members bypass both the expiry and the quota check. For
// everyone else the quota increment is a guarded conditional update, so
// two concurrent requests cannot both spend the last unit.
func (s *DownloadService) Authorize(userID, documentID uint, meta DownloadMeta) (*Grant, error) {
	var grant Grant

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var doc models.Document
		if err := tx.First(&doc, documentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDocumentNotFound
			}
			return fmt.Errorf("fetch document: %w", err)
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

		if m.Tier == models.TierLifetime {
			if err := tx.Model(&models.Membership{}).
				Where("id = ?", m.ID).
				UpdateColumn("download_used", gorm.Expr("download_used + 1")).Error; err != nil {
				return fmt.Errorf("record download use: %w", err)
			}
		} else {
			if m.Expired(time.Now().UTC()) {
				return ErrMembershipExpired
			}
			if m.DownloadUsed >= m.DownloadQuota {
				return ErrQuotaExceeded
			}
			// Guarded increment; RowsAffected == 0 means a concurrent
			// download spent the last unit first.
			res := tx.Model(&models.Membership{}).
				Where("id = ? AND download_used < download_quota", m.ID).
				UpdateColumn("download_used", gorm.Expr("download_used + 1"))
			if res.Error != nil {
				return fmt.Errorf("record download use: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return ErrQuotaExceeded
			}
		}

		if err := tx.Model(&models.Document{}).
			Where("id = ?", doc.ID).
			UpdateColumn("download_count", gorm.Expr("download_count + 1")).Error; err != nil {
			return fmt.Errorf("update download count: %w", err)
		}

		record := models.Download{
			UserID:     userID,
			DocumentID: doc.ID,
			IPAddress:  meta.IPAddress,
			UserAgent:  meta.UserAgent,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("record download: %w", err)
		}

		grant = Grant{URL: doc.FilePath, DocumentID: doc.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.DownloadsTotal.Inc()
	return &grant, nil
}
