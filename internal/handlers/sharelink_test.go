package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/docvault/backend/internal/config"
	"github.com/docvault/backend/internal/models"
	"github.com/docvault/backend/internal/services"
	"github.com/docvault/backend/internal/testutil"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newShareApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t,
		&models.Document{},
		&models.ShareToken{},
	)

	cfg := &config.Config{PublicBaseURL: "https://docvault.example"}
	handler := NewShareLinkHandler(cfg, services.NewShareLinkService(db))

	app := fiber.New()
	app.Get("/api/share/:token", handler.Describe)
	app.Post("/api/share/:token", handler.Open)

	// Issue normally sits behind auth; the stub injects the issuer
	app.Post("/api/documents/:id/share", func(c *fiber.Ctx) error {
		c.Locals("userID", uint(1))
		return c.Next()
	}, handler.Issue)

	return app, db
}

func seedShareDocument(t *testing.T, db *gorm.DB) models.Document {
	t.Helper()
	doc := models.Document{
		Title:    "Quarterly Review",
		FilePath: "s3://docvault/reviews/q3.pdf",
		FileName: "q3.pdf",
		FileSize: 2048,
		Status:   models.DocumentStatusPublished,
	}
	require.NoError(t, db.Create(&doc).Error)
	return doc
}

func TestShareLinkFlow(t *testing.T) {
	app, db := newShareApp(t)
	doc := seedShareDocument(t, db)

	// Issue a link with an explicit password
	payload, _ := json.Marshal(fiber.Map{
		"expires_in_minutes": 120,
		"password":           "opensesame",
	})
	req := httptest.NewRequest("POST", "/api/documents/1/share", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var issued struct {
		Success bool `json:"success"`
		Data    struct {
			Token     string    `json:"token"`
			URL       string    `json:"url"`
			Password  string    `json:"password"`
			ExpiresAt time.Time `json:"expires_at"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&issued))
	require.True(t, issued.Success)
	require.NotEmpty(t, issued.Data.Token)
	require.Equal(t, "opensesame", issued.Data.Password)
	require.Equal(t, "https://docvault.example/share/"+issued.Data.Token, issued.Data.URL)

	// Describe is public and never leaks the password
	resp, err = app.Test(httptest.NewRequest("GET", "/api/share/"+issued.Data.Token, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var described struct {
		Success bool `json:"success"`
		Data    struct {
			Valid            bool   `json:"valid"`
			DocumentTitle    string `json:"document_title"`
			RequiresPassword bool   `json:"requires_password"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&described))
	require.True(t, described.Data.Valid)
	require.Equal(t, doc.Title, described.Data.DocumentTitle)
	require.True(t, described.Data.RequiresPassword)

	// Wrong password is rejected
	payload, _ = json.Marshal(fiber.Map{"password": "wrong"})
	req = httptest.NewRequest("POST", "/api/share/"+issued.Data.Token, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// Correct password resolves the file location
	payload, _ = json.Marshal(fiber.Map{"password": "opensesame"})
	req = httptest.NewRequest("POST", "/api/share/"+issued.Data.Token, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var opened struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&opened))
	require.Equal(t, doc.FilePath, opened.Data.URL)
}

func TestShareLinkUnknownToken(t *testing.T) {
	app, _ := newShareApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/share/nope", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	payload, _ := json.Marshal(fiber.Map{"password": "x"})
	req := httptest.NewRequest("POST", "/api/share/nope", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestShareLinkExpired(t *testing.T) {
	app, db := newShareApp(t)
	doc := seedShareDocument(t, db)

	st := models.ShareToken{
		Token:      "stale",
		DocumentID: doc.ID,
		Secret:     "pw",
		ExpiresAt:  time.Now().UTC().Add(-time.Minute),
		CreatedBy:  1,
	}
	require.NoError(t, db.Create(&st).Error)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/share/stale", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestIssueRejectsOverlongExpiry(t *testing.T) {
	app, db := newShareApp(t)
	seedShareDocument(t, db)

	payload, _ := json.Marshal(fiber.Map{"expires_in_minutes": 31 * 24 * 60})
	req := httptest.NewRequest("POST", "/api/documents/1/share", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
