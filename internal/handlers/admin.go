package handlers

import (
	"strings"
	"time"

	"github.com/docvault/backend/internal/database"
	"github.com/docvault/backend/internal/middleware"
	"github.com/docvault/backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AdminHandler struct {
	db    *gorm.DB
	cache *database.Cache
}

func NewAdminHandler(db *gorm.DB, cache *database.Cache) *AdminHandler {
	return &AdminHandler{db: db, cache: cache}
}

// Stats returns platform-wide counters for the admin dashboard
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	var (
		totalUsers     int64
		totalDocuments int64
		totalDownloads int64
		activeCodes    int64
		redemptions    int64
		lifetimeCount  int64
		normalCount    int64
	)

	h.db.Model(&models.User{}).Count(&totalUsers)
	h.db.Model(&models.Document{}).Count(&totalDocuments)
	h.db.Model(&models.Download{}).Count(&totalDownloads)
	h.db.Model(&models.RedeemCode{}).Where("is_active = ? AND uses_remaining > 0", true).Count(&activeCodes)
	h.db.Model(&models.Redemption{}).Count(&redemptions)
	h.db.Model(&models.Membership{}).Where("tier = ?", models.TierLifetime).Count(&lifetimeCount)
	h.db.Model(&models.Membership{}).Where("tier = ?", models.TierNormal).Count(&normalCount)

	since := time.Now().AddDate(0, 0, -7)
	var recentDownloads int64
	h.db.Model(&models.Download{}).Where("created_at >= ?", since).Count(&recentDownloads)

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_users":         totalUsers,
			"total_documents":     totalDocuments,
			"total_downloads":     totalDownloads,
			"downloads_last_7d":   recentDownloads,
			"active_redeem_codes": activeCodes,
			"total_redemptions":   redemptions,
			"lifetime_members":    lifetimeCount,
			"normal_members":      normalCount,
		},
	})
}

// ListUsers returns users with their memberships, paginated
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := h.db.Model(&models.User{})
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		query = query.Where("username LIKE ? OR email LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var total int64
	query.Count(&total)

	var users []models.User
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to list users",
		})
	}

	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	memberships := map[uint]models.Membership{}
	if len(ids) > 0 {
		var rows []models.Membership
		h.db.Where("user_id IN ?", ids).Find(&rows)
		for _, m := range rows {
			memberships[m.UserID] = m
		}
	}

	out := make([]fiber.Map, 0, len(users))
	for _, u := range users {
		entry := fiber.Map{"user": u}
		if m, ok := memberships[u.ID]; ok {
			entry["membership"] = m
		}
		out = append(out, entry)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"users": out,
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// UpdateUserStatus activates, deactivates or bans a user
func (h *AdminHandler) UpdateUserStatus(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "Invalid user ID")
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	status := models.UserStatus(req.Status)
	if status != models.UserStatusActive && status != models.UserStatusInactive && status != models.UserStatusBanned {
		return badRequest(c, "Status must be active, inactive or banned")
	}

	if uint(id) == middleware.GetCurrentUserID(c) {
		return badRequest(c, "Cannot change your own status")
	}

	result := h.db.Model(&models.User{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update user",
		})
	}
	if result.RowsAffected == 0 {
		return notFound(c, "User not found")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "User status updated",
	})
}

// GetSettings returns all system settings, served from Redis when warm
func (h *AdminHandler) GetSettings(c *fiber.Ctx) error {
	var settings []models.SystemSetting
	if err := h.cache.Get(database.CacheKeySettings, &settings); err != nil {
		if err := h.db.Order("key ASC").Find(&settings).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to load settings",
			})
		}
		h.cache.Set(database.CacheKeySettings, settings, database.CacheTTLSettings)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    settings,
	})
}

// UpdateSettings upserts system settings and invalidates the cache
func (h *AdminHandler) UpdateSettings(c *fiber.Ctx) error {
	var req struct {
		Settings []struct {
			Key         string `json:"key"`
			Value       string `json:"value"`
			Description string `json:"description"`
		} `json:"settings"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if len(req.Settings) == 0 {
		return badRequest(c, "No settings provided")
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		for _, s := range req.Settings {
			key := strings.TrimSpace(s.Key)
			if key == "" {
				continue
			}
			setting := models.SystemSetting{
				Key:         key,
				Value:       s.Value,
				Description: s.Description,
			}
			if err := tx.Save(&setting).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to save settings",
		})
	}

	h.cache.InvalidateSettings()

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Settings updated",
	})
}

// ListAuditLogs returns the audit trail, paginated (admin)
func (h *AdminHandler) ListAuditLogs(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := h.db.Model(&models.AuditLog{})
	if entity := c.Query("entity_type"); entity != "" {
		query = query.Where("entity_type = ?", entity)
	}
	if userID := c.QueryInt("user_id", 0); userID > 0 {
		query = query.Where("user_id = ?", userID)
	}

	var total int64
	query.Count(&total)

	var logs []models.AuditLog
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&logs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to list audit logs",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"logs":  logs,
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}
