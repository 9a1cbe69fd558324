package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/docvault/backend/internal/models"
	"github.com/docvault/backend/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newMembershipService(t *testing.T) (*MembershipService, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t,
		&models.Membership{},
		&models.RedeemCode{},
		&models.Redemption{},
	)
	return NewMembershipService(db), db
}

func seedCode(t *testing.T, db *gorm.DB, code models.RedeemCode) models.RedeemCode {
	t.Helper()
	require.NoError(t, db.Create(&code).Error)
	return code
}

func TestGetOrCreateProvisionsFreeTier(t *testing.T) {
	svc, _ := newMembershipService(t)

	m, err := svc.GetOrCreate(1)
	require.NoError(t, err)
	require.Equal(t, models.TierFree, m.Tier)
	require.Equal(t, models.FreeDownloadQuota, m.DownloadQuota)
	require.Equal(t, 0, m.DownloadUsed)
	require.Nil(t, m.ExpiresAt)
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	svc, db := newMembershipService(t)

	first, err := svc.GetOrCreate(1)
	require.NoError(t, err)

	second, err := svc.GetOrCreate(1)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var count int64
	db.Model(&models.Membership{}).Where("user_id = ?", 1).Count(&count)
	require.EqualValues(t, 1, count)
}

func TestValidateCodeOrdering(t *testing.T) {
	svc, db := newMembershipService(t)

	past := time.Now().UTC().Add(-time.Hour)

	seedCode(t, db, models.RedeemCode{
		Code: "INACTIVE", Tier: models.TierNormal,
		UsesTotal: 1, UsesRemaining: 1, IsActive: false, CreatedBy: 1,
	})
	seedCode(t, db, models.RedeemCode{
		Code: "EXPIRED", Tier: models.TierNormal,
		UsesTotal: 1, UsesRemaining: 1, ExpiresAt: &past, IsActive: true, CreatedBy: 1,
	})
	seedCode(t, db, models.RedeemCode{
		Code: "EXHAUSTED", Tier: models.TierNormal,
		UsesTotal: 1, UsesRemaining: 0, IsActive: true, CreatedBy: 1,
	})
	// Inactive takes precedence over expired and exhausted
	seedCode(t, db, models.RedeemCode{
		Code: "INACTIVE-EXPIRED", Tier: models.TierNormal,
		UsesTotal: 1, UsesRemaining: 0, ExpiresAt: &past, IsActive: false, CreatedBy: 1,
	})

	_, err := svc.ValidateCode("MISSING")
	require.ErrorIs(t, err, ErrCodeNotFound)

	_, err = svc.ValidateCode("INACTIVE")
	require.ErrorIs(t, err, ErrCodeInactive)

	_, err = svc.ValidateCode("EXPIRED")
	require.ErrorIs(t, err, ErrCodeExpired)

	_, err = svc.ValidateCode("EXHAUSTED")
	require.ErrorIs(t, err, ErrCodeExhausted)

	_, err = svc.ValidateCode("INACTIVE-EXPIRED")
	require.ErrorIs(t, err, ErrCodeInactive)
}

func TestRedeemNormalCodeOnFreshUser(t *testing.T) {
	svc, db := newMembershipService(t)

	seedCode(t, db, models.RedeemCode{
		Code: "NORMAL-1", Tier: models.TierNormal,
		UsesTotal: 1, UsesRemaining: 1, IsActive: true, CreatedBy: 1,
	})

	before := time.Now().UTC()
	m, redemption, err := svc.Redeem(42, "NORMAL-1")
	require.NoError(t, err)

	require.Equal(t, models.TierNormal, m.Tier)
	require.Equal(t, models.NormalDownloadQuota, m.DownloadQuota)
	require.Equal(t, 0, m.DownloadUsed)
	require.NotNil(t, m.ExpiresAt)

	// Expiry lands 30 days out from redemption time
	expected := before.AddDate(0, 0, models.NormalMembershipDays)
	require.WithinDuration(t, expected, *m.ExpiresAt, 5*time.Second)

	require.EqualValues(t, 42, redemption.UserID)
	require.Equal(t, models.TierNormal, redemption.MembershipTier)
	require.Equal(t, models.FreeDownloadQuota, redemption.OldQuota)
	require.Equal(t, models.NormalDownloadQuota, redemption.NewQuota)
	require.Nil(t, redemption.OldExpiresAt)
}

func TestRedeemExtendsActiveExpiry(t *testing.T) {
	svc, db := newMembershipService(t)

	future := time.Now().UTC().Add(10 * 24 * time.Hour)
	require.NoError(t, db.Create(&models.Membership{
		UserID: 7, Tier: models.TierNormal, ExpiresAt: &future,
		DownloadQuota: models.NormalDownloadQuota, DownloadUsed: 3,
	}).Error)

	seedCode(t, db, models.RedeemCode{
		Code: "EXTEND", Tier: models.TierNormal,
		UsesTotal: 1, UsesRemaining: 1, IsActive: true, CreatedBy: 1,
	})

	m, _, err := svc.Redeem(7, "EXTEND")
	require.NoError(t, err)

	// Stacks on the remaining time, not on now
	expected := future.AddDate(0, 0, models.NormalMembershipDays)
	require.WithinDuration(t, expected, *m.ExpiresAt, time.Second)
	require.Equal(t, 3, m.DownloadUsed)
}

func TestRedeemLapsedExpiryCountsFromNow(t *testing.T) {
	svc, db := newMembershipService(t)

	past := time.Now().UTC().Add(-40 * 24 * time.Hour)
	require.NoError(t, db.Create(&models.Membership{
		UserID: 8, Tier: models.TierNormal, ExpiresAt: &past,
		DownloadQuota: models.NormalDownloadQuota, DownloadUsed: 90,
	}).Error)

	seedCode(t, db, models.RedeemCode{
		Code: "REVIVE", Tier: models.TierNormal,
		UsesTotal: 1, UsesRemaining: 1, IsActive: true, CreatedBy: 1,
	})

	before := time.Now().UTC()
	m, _, err := svc.Redeem(8, "REVIVE")
	require.NoError(t, err)

	expected := before.AddDate(0, 0, models.NormalMembershipDays)
	require.WithinDuration(t, expected, *m.ExpiresAt, 5*time.Second)
	require.Equal(t, 90, m.DownloadUsed)
}

func TestRedeemLifetimeCode(t *testing.T) {
	svc, db := newMembershipService(t)

	future := time.Now().UTC().Add(24 * time.Hour)
	require.NoError(t, db.Create(&models.Membership{
		UserID: 9, Tier: models.TierNormal, ExpiresAt: &future,
		DownloadQuota: models.NormalDownloadQuota, DownloadUsed: 50,
	}).Error)

	seedCode(t, db, models.RedeemCode{
		Code: "LIFE", Tier: models.TierLifetime,
		UsesTotal: 1, UsesRemaining: 1, IsActive: true, CreatedBy: 1,
	})

	m, _, err := svc.Redeem(9, "LIFE")
	require.NoError(t, err)
	require.Equal(t, models.TierLifetime, m.Tier)
	require.Nil(t, m.ExpiresAt)
	require.Equal(t, models.LifetimeDownloadQuota, m.DownloadQuota)
	require.Equal(t, 50, m.DownloadUsed)

	var stored models.Membership
	require.NoError(t, db.Where("user_id = ?", 9).First(&stored).Error)
	require.Nil(t, stored.ExpiresAt)
}

func TestRedeemNormalOverwritesLifetime(t *testing.T) {
	svc, db := newMembershipService(t)

	require.NoError(t, db.Create(&models.Membership{
		UserID: 10, Tier: models.TierLifetime,
		DownloadQuota: models.LifetimeDownloadQuota,
	}).Error)

	seedCode(t, db, models.RedeemCode{
		Code: "DOWN", Tier: models.TierNormal,
		UsesTotal: 1, UsesRemaining: 1, IsActive: true, CreatedBy: 1,
	})

	m, _, err := svc.Redeem(10, "DOWN")
	require.NoError(t, err)
	require.Equal(t, models.TierNormal, m.Tier)
	require.NotNil(t, m.ExpiresAt)
	require.Equal(t, models.NormalDownloadQuota, m.DownloadQuota)
}

func TestRedeemDecrementsUsesAndDeactivatesAtZero(t *testing.T) {
	svc, db := newMembershipService(t)

	code := seedCode(t, db, models.RedeemCode{
		Code: "MULTI", Tier: models.TierNormal,
		UsesTotal: 2, UsesRemaining: 2, IsActive: true, CreatedBy: 1,
	})

	_, _, err := svc.Redeem(1, "MULTI")
	require.NoError(t, err)

	var after models.RedeemCode
	require.NoError(t, db.First(&after, code.ID).Error)
	require.Equal(t, 1, after.UsesRemaining)
	require.True(t, after.IsActive)

	_, _, err = svc.Redeem(2, "MULTI")
	require.NoError(t, err)

	require.NoError(t, db.First(&after, code.ID).Error)
	require.Equal(t, 0, after.UsesRemaining)
	require.False(t, after.IsActive)

	_, _, err = svc.Redeem(3, "MULTI")
	require.ErrorIs(t, err, ErrCodeInactive)
}

func TestRedeemLastUseHasOneWinner(t *testing.T) {
	svc, db := newMembershipService(t)

	seedCode(t, db, models.RedeemCode{
		Code: "LAST", Tier: models.TierNormal,
		UsesTotal: 1, UsesRemaining: 1, IsActive: true, CreatedBy: 1,
	})

	const contenders = 5
	errs := make(chan error, contenders)
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			_, _, err := svc.Redeem(userID, "LAST")
			errs <- err
		}(uint(100 + i))
	}
	wg.Wait()
	close(errs)

	var wins, losses int
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		losses++
		require.True(t,
			errors.Is(err, ErrCodeExhausted) || errors.Is(err, ErrCodeInactive),
			"unexpected error: %v", err)
	}
	require.Equal(t, 1, wins)
	require.Equal(t, contenders-1, losses)

	var redemptions int64
	db.Model(&models.Redemption{}).Count(&redemptions)
	require.EqualValues(t, 1, redemptions)
}

func TestRedeemFailureLeavesNoTrace(t *testing.T) {
	svc, db := newMembershipService(t)

	seedCode(t, db, models.RedeemCode{
		Code: "SPENT", Tier: models.TierNormal,
		UsesTotal: 1, UsesRemaining: 0, IsActive: true, CreatedBy: 1,
	})

	_, _, err := svc.Redeem(5, "SPENT")
	require.ErrorIs(t, err, ErrCodeExhausted)

	var redemptions int64
	db.Model(&models.Redemption{}).Count(&redemptions)
	require.EqualValues(t, 0, redemptions)

	var memberships int64
	db.Model(&models.Membership{}).Where("user_id = ?", 5).Count(&memberships)
	require.EqualValues(t, 0, memberships)
}

func TestRedeemRecordsAuditRow(t *testing.T) {
	svc, db := newMembershipService(t)

	code := seedCode(t, db, models.RedeemCode{
		Code: "AUDIT", Tier: models.TierLifetime,
		UsesTotal: 1, UsesRemaining: 1, IsActive: true, CreatedBy: 1,
	})

	_, _, err := svc.Redeem(6, "AUDIT")
	require.NoError(t, err)

	var rows []models.Redemption
	require.NoError(t, db.Where("user_id = ?", 6).Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, code.ID, rows[0].RedeemCodeID)
	require.Equal(t, models.TierLifetime, rows[0].MembershipTier)
	require.Nil(t, rows[0].NewExpiresAt)
	require.Equal(t, models.LifetimeDownloadQuota, rows[0].NewQuota)
}

func TestCreateCodeStoresInactiveAndZeroValues(t *testing.T) {
	svc, db := newMembershipService(t)

	// A disabled code must land disabled, not fall back to an active default
	inactive := false
	code, err := svc.CreateCode(CreateCodeInput{
		Code: "PREPROV", Tier: models.TierNormal, UsesTotal: 3, IsActive: &inactive,
	}, 1)
	require.NoError(t, err)
	require.False(t, code.IsActive)

	var stored models.RedeemCode
	require.NoError(t, db.First(&stored, code.ID).Error)
	require.False(t, stored.IsActive)
	require.Equal(t, 3, stored.UsesTotal)
	require.Equal(t, 3, stored.UsesRemaining)

	_, err = svc.ValidateCode("PREPROV")
	require.ErrorIs(t, err, ErrCodeInactive)

	_, _, err = svc.Redeem(1, "PREPROV")
	require.ErrorIs(t, err, ErrCodeInactive)

	// Zero remaining uses must survive the insert as written
	require.NoError(t, db.Create(&models.RedeemCode{
		Code: "ZERO", Tier: models.TierNormal,
		UsesTotal: 1, UsesRemaining: 0, IsActive: true, CreatedBy: 1,
	}).Error)
	stored = models.RedeemCode{}
	require.NoError(t, db.Where("code = ?", "ZERO").First(&stored).Error)
	require.Equal(t, 0, stored.UsesRemaining)
}

func TestRedeemFirstAccessRace(t *testing.T) {
	svc, db := newMembershipService(t)

	seedCode(t, db, models.RedeemCode{
		Code: "RACE", Tier: models.TierNormal,
		UsesTotal: 1, UsesRemaining: 1, IsActive: true, CreatedBy: 1,
	})

	// A concurrent request wins the membership insert between the read
	// and the write inside the transaction
	injected := false
	err := db.Callback().Create().Before("gorm:create").Register("membership_race", func(tx *gorm.DB) {
		m, ok := tx.Statement.Dest.(*models.Membership)
		if !ok || injected {
			return
		}
		injected = true
		_, execErr := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
			"INSERT INTO memberships (user_id, tier, download_quota, download_used) VALUES (?, ?, ?, 0)",
			m.UserID, models.TierFree, models.FreeDownloadQuota)
		require.NoError(t, execErr)
	})
	require.NoError(t, err)

	m, _, err := svc.Redeem(11, "RACE")
	require.NoError(t, err)
	require.True(t, injected)
	require.Equal(t, models.TierNormal, m.Tier)

	var count int64
	db.Model(&models.Membership{}).Where("user_id = ?", 11).Count(&count)
	require.EqualValues(t, 1, count)
}

func TestCreateCodeConcurrentDuplicate(t *testing.T) {
	svc, db := newMembershipService(t)

	// The same code lands via another connection after the pre-check but
	// before the insert; the unique index must surface as ErrCodeExists
	injected := false
	err := db.Callback().Create().Before("gorm:create").Register("duplicate_code", func(tx *gorm.DB) {
		rc, ok := tx.Statement.Dest.(*models.RedeemCode)
		if !ok || injected {
			return
		}
		injected = true
		_, execErr := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
			"INSERT INTO redeem_codes (code, tier, uses_total, uses_remaining, is_active, created_by) VALUES (?, ?, 1, 1, 1, 1)",
			rc.Code, models.TierNormal)
		require.NoError(t, execErr)
	})
	require.NoError(t, err)

	_, err = svc.CreateCode(CreateCodeInput{Code: "CLASH", Tier: models.TierNormal}, 1)
	require.True(t, injected)
	require.ErrorIs(t, err, ErrCodeExists)
}

func TestCreateCodeRejectsDuplicate(t *testing.T) {
	svc, _ := newMembershipService(t)

	_, err := svc.CreateCode(CreateCodeInput{
		Code: "UNIQUE", Tier: models.TierNormal, UsesTotal: 1,
	}, 1)
	require.NoError(t, err)

	_, err = svc.CreateCode(CreateCodeInput{
		Code: "UNIQUE", Tier: models.TierNormal, UsesTotal: 1,
	}, 1)
	require.ErrorIs(t, err, ErrCodeExists)
}

func TestCreateCodeDefaultsUsesToOne(t *testing.T) {
	svc, _ := newMembershipService(t)

	code, err := svc.CreateCode(CreateCodeInput{
		Code: "DEFAULTS", Tier: models.TierLifetime,
	}, 1)
	require.NoError(t, err)
	require.Equal(t, 1, code.UsesTotal)
	require.Equal(t, 1, code.UsesRemaining)
	require.True(t, code.IsActive)
}

func TestGenerateCodesBatch(t *testing.T) {
	svc, db := newMembershipService(t)

	batchID, codes, err := svc.GenerateCodes(models.TierNormal, 5, 1, nil, "PROMO", 1)
	require.NoError(t, err)
	require.NotEmpty(t, batchID)
	require.Len(t, codes, 5)

	seen := map[string]bool{}
	for _, c := range codes {
		require.Equal(t, batchID, c.BatchID)
		require.Contains(t, c.Code, "PROMO-")
		require.False(t, seen[c.Code])
		seen[c.Code] = true
	}

	var count int64
	db.Model(&models.RedeemCode{}).Where("batch_id = ?", batchID).Count(&count)
	require.EqualValues(t, 5, count)
}

func TestListCodesPagination(t *testing.T) {
	svc, db := newMembershipService(t)

	for i := 0; i < 7; i++ {
		seedCode(t, db, models.RedeemCode{
			Code: "LIST-" + string(rune('A'+i)), Tier: models.TierNormal,
			UsesTotal: 1, UsesRemaining: 1, IsActive: true, CreatedBy: 1,
		})
	}

	codes, total, err := svc.ListCodes(1, 5)
	require.NoError(t, err)
	require.EqualValues(t, 7, total)
	require.Len(t, codes, 5)

	codes, total, err = svc.ListCodes(2, 5)
	require.NoError(t, err)
	require.EqualValues(t, 7, total)
	require.Len(t, codes, 2)
}
