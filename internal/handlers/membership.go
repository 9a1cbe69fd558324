package handlers

import (
	"strings"
	"time"

	"github.com/docvault/backend/internal/middleware"
	"github.com/docvault/backend/internal/models"
	"github.com/docvault/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type MembershipHandler struct {
	memberships *services.MembershipService
}

func NewMembershipHandler(memberships *services.MembershipService) *MembershipHandler {
	return &MembershipHandler{memberships: memberships}
}

// Me returns the current user's membership, creating the free-tier row
// on first access
func (h *MembershipHandler) Me(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)

	m, err := h.memberships.GetOrCreate(userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"tier":           m.Tier,
			"expires_at":     m.ExpiresAt,
			"download_quota": m.DownloadQuota,
			"download_used":  m.DownloadUsed,
			"quota_left":     m.DownloadQuota - m.DownloadUsed,
			"expired":        m.Expired(time.Now()),
		},
	})
}

// Redeem consumes a redeem code and applies its tier to the caller
func (h *MembershipHandler) Redeem(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" {
		return badRequest(c, "Code is required")
	}

	m, redemption, err := h.memberships.Redeem(userID, req.Code)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Code redeemed successfully",
		"data": fiber.Map{
			"tier":           m.Tier,
			"expires_at":     m.ExpiresAt,
			"download_quota": m.DownloadQuota,
			"download_used":  m.DownloadUsed,
			"redeemed_at":    redemption.CreatedAt,
		},
	})
}

// CreateCode provisions a single redeem code (admin)
func (h *MembershipHandler) CreateCode(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		Code      string     `json:"code"`
		Tier      string     `json:"tier"`
		UsesTotal int        `json:"uses_total"`
		ExpiresAt *time.Time `json:"expires_at"`
		IsActive  *bool      `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" {
		return badRequest(c, "Code is required")
	}
	tier, ok := parseTier(req.Tier)
	if !ok {
		return badRequest(c, "Tier must be normal or lifetime")
	}

	code, err := h.memberships.CreateCode(services.CreateCodeInput{
		Code:      req.Code,
		Tier:      tier,
		UsesTotal: req.UsesTotal,
		ExpiresAt: req.ExpiresAt,
		IsActive:  req.IsActive,
	}, userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    code,
	})
}

// GenerateCodes mints a batch of random redeem codes (admin)
func (h *MembershipHandler) GenerateCodes(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		Tier      string     `json:"tier"`
		Count     int        `json:"count"`
		UsesTotal int        `json:"uses_total"`
		ExpiresAt *time.Time `json:"expires_at"`
		Prefix    string     `json:"prefix"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	tier, ok := parseTier(req.Tier)
	if !ok {
		return badRequest(c, "Tier must be normal or lifetime")
	}
	if req.Count < 1 || req.Count > 1000 {
		return badRequest(c, "Count must be between 1 and 1000")
	}

	batchID, codes, err := h.memberships.GenerateCodes(tier, req.Count, req.UsesTotal, req.ExpiresAt, req.Prefix, userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"batch_id": batchID,
			"codes":    codes,
		},
	})
}

// ListCodes returns the redeem-code ledger, paginated (admin)
func (h *MembershipHandler) ListCodes(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)

	codes, total, err := h.memberships.ListCodes(page, limit)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"codes": codes,
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

func parseTier(s string) (models.MembershipTier, bool) {
	switch models.MembershipTier(strings.ToLower(strings.TrimSpace(s))) {
	case models.TierNormal:
		return models.TierNormal, true
	case models.TierLifetime:
		return models.TierLifetime, true
	default:
		return "", false
	}
}
