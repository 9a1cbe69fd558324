package handlers

import (
	"errors"

	"github.com/docvault/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// serviceError maps a business-level service error onto the HTTP envelope.
// Anything outside the known taxonomy is an internal failure and gets a
// generic 500 without leaking storage details.
func serviceError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, services.ErrCodeNotFound),
		errors.Is(err, services.ErrTokenNotFound),
		errors.Is(err, services.ErrDocumentNotFound):
		status = fiber.StatusNotFound
		message = capitalize(err.Error())

	case errors.Is(err, services.ErrCodeInactive),
		errors.Is(err, services.ErrCodeExpired),
		errors.Is(err, services.ErrCodeExhausted),
		errors.Is(err, services.ErrTokenExpired),
		errors.Is(err, services.ErrCodeExists):
		status = fiber.StatusBadRequest
		message = capitalize(err.Error())

	case errors.Is(err, services.ErrMembershipExpired),
		errors.Is(err, services.ErrQuotaExceeded),
		errors.Is(err, services.ErrWrongSecret):
		status = fiber.StatusForbidden
		message = capitalize(err.Error())
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

func notFound(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
