package handlers

import (
	"fmt"
	"time"

	"github.com/docvault/backend/internal/config"
	"github.com/docvault/backend/internal/middleware"
	"github.com/docvault/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ShareLinkHandler struct {
	cfg    *config.Config
	shares *services.ShareLinkService
}

func NewShareLinkHandler(cfg *config.Config, shares *services.ShareLinkService) *ShareLinkHandler {
	return &ShareLinkHandler{cfg: cfg, shares: shares}
}

// Issue mints a share link for a document (admin). The secret is
// returned in plaintext here and never again.
func (h *ShareLinkHandler) Issue(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)

	documentID, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "Invalid document ID")
	}

	var req struct {
		ExpiresInMinutes int    `json:"expires_in_minutes"`
		Password         string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if req.ExpiresInMinutes <= 0 {
		req.ExpiresInMinutes = 24 * 60
	}
	if req.ExpiresInMinutes > 30*24*60 {
		return badRequest(c, "Expiry must be at most 30 days")
	}

	token, err := h.shares.Issue(uint(documentID), userID,
		time.Duration(req.ExpiresInMinutes)*time.Minute, req.Password)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"token":      token.Token,
			"url":        fmt.Sprintf("%s/share/%s", h.cfg.PublicBaseURL, token.Token),
			"password":   token.Secret,
			"expires_at": token.ExpiresAt,
		},
	})
}

// Describe returns the public metadata of a share link
func (h *ShareLinkHandler) Describe(c *fiber.Ctx) error {
	info, err := h.shares.Describe(c.Params("token"))
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    info,
	})
}

// Open validates the password and returns the file location
func (h *ShareLinkHandler) Open(c *fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	url, err := h.shares.Open(c.Params("token"), req.Password)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"url": url,
		},
	})
}
