package handlers

import (
	"strings"

	"github.com/docvault/backend/internal/middleware"
	"github.com/docvault/backend/internal/models"
	"github.com/docvault/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type DocumentHandler struct {
	db        *gorm.DB
	downloads *services.DownloadService
}

func NewDocumentHandler(db *gorm.DB, downloads *services.DownloadService) *DocumentHandler {
	return &DocumentHandler{db: db, downloads: downloads}
}

// List returns the document catalog with pagination and filters
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := h.db.Model(&models.Document{})

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		query = query.Where("title LIKE ?", "%"+search+"%")
	}
	if categoryID := c.QueryInt("category_id", 0); categoryID > 0 {
		query = query.Where("category_id = ?", categoryID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	} else if middleware.GetCurrentUser(c) == nil || !middleware.GetCurrentUser(c).IsAdmin() {
		query = query.Where("status = ?", models.DocumentStatusPublished)
	}

	var total int64
	query.Count(&total)

	var docs []models.Document
	if err := query.Preload("Tags").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&docs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to list documents",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"documents": docs,
			"total":     total,
			"page":      page,
			"limit":     limit,
		},
	})
}

// Get returns a single document and bumps its view counter
func (h *DocumentHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "Invalid document ID")
	}

	var doc models.Document
	if err := h.db.Preload("Tags").First(&doc, id).Error; err != nil {
		return notFound(c, "Document not found")
	}

	if doc.CategoryID != nil {
		var cat models.Category
		if err := h.db.First(&cat, *doc.CategoryID).Error; err == nil {
			doc.Category = &cat
		}
	}

	h.db.Model(&models.Document{}).Where("id = ?", doc.ID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))

	return c.JSON(fiber.Map{
		"success": true,
		"data":    doc,
	})
}

// Create adds a document to the catalog (admin)
func (h *DocumentHandler) Create(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		CategoryID  *uint    `json:"category_id"`
		CoverImage  string   `json:"cover_image"`
		FilePath    string   `json:"file_path"`
		FileName    string   `json:"file_name"`
		FileSize    int64    `json:"file_size"`
		PageCount   int      `json:"page_count"`
		Status      string   `json:"status"`
		Tags        []string `json:"tags"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.FilePath == "" || req.FileName == "" {
		return badRequest(c, "Title, file_path and file_name are required")
	}

	status := models.DocumentStatus(req.Status)
	if status == "" {
		status = models.DocumentStatusDraft
	}

	doc := models.Document{
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		CoverImage:  req.CoverImage,
		FilePath:    req.FilePath,
		FileName:    req.FileName,
		FileSize:    req.FileSize,
		PageCount:   req.PageCount,
		Status:      status,
		CreatedBy:   userID,
	}
	doc.Tags = h.resolveTags(req.Tags)

	if err := h.db.Create(&doc).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create document",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    doc,
	})
}

// Update modifies a document (admin)
func (h *DocumentHandler) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "Invalid document ID")
	}

	var doc models.Document
	if err := h.db.First(&doc, id).Error; err != nil {
		return notFound(c, "Document not found")
	}

	var req struct {
		Title       *string  `json:"title"`
		Description *string  `json:"description"`
		CategoryID  *uint    `json:"category_id"`
		CoverImage  *string  `json:"cover_image"`
		FilePath    *string  `json:"file_path"`
		FileName    *string  `json:"file_name"`
		FileSize    *int64   `json:"file_size"`
		PageCount   *int     `json:"page_count"`
		Status      *string  `json:"status"`
		Tags        []string `json:"tags"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.CategoryID != nil {
		updates["category_id"] = *req.CategoryID
	}
	if req.CoverImage != nil {
		updates["cover_image"] = *req.CoverImage
	}
	if req.FilePath != nil {
		updates["file_path"] = *req.FilePath
	}
	if req.FileName != nil {
		updates["file_name"] = *req.FileName
	}
	if req.FileSize != nil {
		updates["file_size"] = *req.FileSize
	}
	if req.PageCount != nil {
		updates["page_count"] = *req.PageCount
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}

	if len(updates) > 0 {
		if err := h.db.Model(&doc).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to update document",
			})
		}
	}

	if req.Tags != nil {
		tags := h.resolveTags(req.Tags)
		if err := h.db.Model(&doc).Association("Tags").Replace(tags); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to update tags",
			})
		}
	}

	h.db.Preload("Tags").First(&doc, doc.ID)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    doc,
	})
}

// Delete soft-deletes a document (admin)
func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "Invalid document ID")
	}

	result := h.db.Delete(&models.Document{}, id)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete document",
		})
	}
	if result.RowsAffected == 0 {
		return notFound(c, "Document not found")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Document deleted",
	})
}

// Download authorizes a download against the caller's membership and
// returns the file location
func (h *DocumentHandler) Download(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)

	id, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "Invalid document ID")
	}

	grant, err := h.downloads.Authorize(userID, uint(id), services.DownloadMeta{
		IPAddress: c.IP(),
		UserAgent: c.Get("User-Agent"),
	})
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"document_id": grant.DocumentID,
			"url":         grant.URL,
		},
	})
}

func (h *DocumentHandler) resolveTags(names []string) []models.Tag {
	var tags []models.Tag
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var tag models.Tag
		if err := h.db.Where("name = ?", name).First(&tag).Error; err != nil {
			tag = models.Tag{Name: name}
			h.db.Create(&tag)
		}
		tags = append(tags, tag)
	}
	return tags
}

type CategoryHandler struct {
	db *gorm.DB
}

func NewCategoryHandler(db *gorm.DB) *CategoryHandler {
	return &CategoryHandler{db: db}
}

// List returns all active categories ordered for display
func (h *CategoryHandler) List(c *fiber.Ctx) error {
	var categories []models.Category
	if err := h.db.Where("is_active = ?", true).
		Order("sort_order ASC, id ASC").
		Find(&categories).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to list categories",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    categories,
	})
}

// Create adds a category (admin)
func (h *CategoryHandler) Create(c *fiber.Ctx) error {
	var req struct {
		Name        string `json:"name"`
		Slug        string `json:"slug"`
		Description string `json:"description"`
		ParentID    *uint  `json:"parent_id"`
		Icon        string `json:"icon"`
		SortOrder   int    `json:"sort_order"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Slug = strings.TrimSpace(strings.ToLower(req.Slug))
	if req.Name == "" || req.Slug == "" {
		return badRequest(c, "Name and slug are required")
	}

	category := models.Category{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		ParentID:    req.ParentID,
		Icon:        req.Icon,
		SortOrder:   req.SortOrder,
		IsActive:    true,
	}
	if err := h.db.Create(&category).Error; err != nil {
		return badRequest(c, "Slug already in use")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    category,
	})
}

// Update modifies a category (admin)
func (h *CategoryHandler) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "Invalid category ID")
	}

	var category models.Category
	if err := h.db.First(&category, id).Error; err != nil {
		return notFound(c, "Category not found")
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Icon        *string `json:"icon"`
		SortOrder   *int    `json:"sort_order"`
		IsActive    *bool   `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Icon != nil {
		updates["icon"] = *req.Icon
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := h.db.Model(&category).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to update category",
			})
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    category,
	})
}

// Delete removes a category (admin)
func (h *CategoryHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "Invalid category ID")
	}

	var count int64
	h.db.Model(&models.Document{}).Where("category_id = ?", id).Count(&count)
	if count > 0 {
		return badRequest(c, "Category still has documents")
	}

	result := h.db.Delete(&models.Category{}, id)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete category",
		})
	}
	if result.RowsAffected == 0 {
		return notFound(c, "Category not found")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Category deleted",
	})
}
