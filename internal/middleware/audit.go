package middleware

import (
	"strings"

	"github.com/docvault/backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AuditLogger records successful mutating API calls to the audit log
func AuditLogger(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := c.Method()
		if method == "GET" || method == "HEAD" || method == "OPTIONS" {
			return c.Next()
		}

		path := c.Path()
		skipPaths := []string{"/api/auth/login", "/api/auth/register", "/health"}
		for _, skip := range skipPaths {
			if strings.HasPrefix(path, skip) {
				return c.Next()
			}
		}

		user := GetCurrentUser(c)
		ip := c.IP()
		userAgent := c.Get("User-Agent")

		err := c.Next()

		statusCode := c.Response().StatusCode()
		if statusCode >= 200 && statusCode < 400 && user != nil {
			entry := models.AuditLog{
				UserID:      user.ID,
				Username:    user.Username,
				Role:        user.Role,
				Action:      actionForMethod(method),
				EntityType:  entityTypeFromPath(path),
				Description: strings.ToUpper(method) + " " + path,
				IPAddress:   ip,
				UserAgent:   userAgent,
			}
			db.Create(&entry)
		}

		return err
	}
}

func actionForMethod(method string) models.AuditAction {
	switch method {
	case "POST":
		return models.AuditActionCreate
	case "PUT", "PATCH":
		return models.AuditActionUpdate
	case "DELETE":
		return models.AuditActionDelete
	}
	return models.AuditAction(strings.ToLower(method))
}

func entityTypeFromPath(path string) string {
	parts := strings.Split(strings.TrimPrefix(path, "/api/"), "/")
	if len(parts) == 0 {
		return ""
	}

	entityMap := map[string]string{
		"documents":  "document",
		"membership": "membership",
		"categories": "category",
		"share":      "share_token",
		"admin":      "admin",
		"auth":       "auth",
	}
	if entity, ok := entityMap[parts[0]]; ok {
		if entity == "membership" && len(parts) > 1 && strings.HasPrefix(parts[1], "codes") {
			return "redeem_code"
		}
		if entity == "document" && len(parts) > 2 && parts[2] == "share" {
			return "share_token"
		}
		return entity
	}
	return parts[0]
}
