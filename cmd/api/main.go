package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docvault/backend/internal/config"
	"github.com/docvault/backend/internal/database"
	"github.com/docvault/backend/internal/handlers"
	"github.com/docvault/backend/internal/middleware"
	"github.com/docvault/backend/internal/models"
	"github.com/docvault/backend/internal/services"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to database and Redis
	db, rdb, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db, rdb)

	cache := database.NewCache(rdb)

	// Run migrations
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed admin user if not exists
	seedAdminUser(db)

	// Initialize services
	membershipService := services.NewMembershipService(db)
	downloadService := services.NewDownloadService(db)
	shareLinkService := services.NewShareLinkService(db)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "DocVault API v1.0",
		ServerHeader: "DocVault",
		BodyLimit:    50 * 1024 * 1024, // 50MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(compress.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "docvault-api",
		})
	})

	// Prometheus metrics
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(cfg, db, cache)
	twoFAHandler := handlers.NewTwoFAHandler(db)
	membershipHandler := handlers.NewMembershipHandler(membershipService)
	documentHandler := handlers.NewDocumentHandler(db, downloadService)
	categoryHandler := handlers.NewCategoryHandler(db)
	shareLinkHandler := handlers.NewShareLinkHandler(cfg, shareLinkService)
	adminHandler := handlers.NewAdminHandler(db, cache)

	// API routes
	api := app.Group("/api")

	// Apply rate limiting to API routes (100 requests per minute by default)
	api.Use(middleware.RateLimiter(100, 1*time.Minute))

	// Public routes
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)

	// Public share link routes
	api.Get("/share/:token", shareLinkHandler.Describe)
	api.Post("/share/:token", shareLinkHandler.Open)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired(cfg, db, cache), middleware.AuditLogger(db))

	// Auth routes
	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/auth/me", authHandler.Me)
	protected.Put("/auth/password", authHandler.ChangePassword)

	// 2FA routes
	protected.Get("/auth/2fa/status", twoFAHandler.Status)
	protected.Post("/auth/2fa/setup", twoFAHandler.Setup)
	protected.Post("/auth/2fa/verify", twoFAHandler.Verify)
	protected.Post("/auth/2fa/disable", twoFAHandler.Disable)

	// Membership routes
	membership := protected.Group("/membership")
	membership.Get("/me", membershipHandler.Me)
	membership.Post("/redeem", membershipHandler.Redeem)
	membership.Get("/codes", middleware.AdminOnly(), membershipHandler.ListCodes)
	membership.Post("/codes", middleware.AdminOnly(), membershipHandler.CreateCode)
	membership.Post("/codes/generate", middleware.AdminOnly(), membershipHandler.GenerateCodes)

	// Document routes; /categories is registered before /:id so the
	// static segment wins
	documents := protected.Group("/documents")
	documents.Get("/categories", categoryHandler.List)
	documents.Post("/categories", middleware.AdminOnly(), categoryHandler.Create)
	documents.Put("/categories/:id", middleware.AdminOnly(), categoryHandler.Update)
	documents.Delete("/categories/:id", middleware.AdminOnly(), categoryHandler.Delete)
	documents.Get("/", documentHandler.List)
	documents.Get("/:id", documentHandler.Get)
	documents.Post("/", middleware.AdminOnly(), documentHandler.Create)
	documents.Put("/:id", middleware.AdminOnly(), documentHandler.Update)
	documents.Delete("/:id", middleware.AdminOnly(), documentHandler.Delete)
	documents.Get("/:id/download", documentHandler.Download)
	documents.Post("/:id/share", middleware.AdminOnly(), shareLinkHandler.Issue)

	// Admin routes
	admin := protected.Group("/admin", middleware.AdminOnly())
	admin.Get("/stats", adminHandler.Stats)
	admin.Get("/users", adminHandler.ListUsers)
	admin.Put("/users/:id/status", adminHandler.UpdateUserStatus)
	admin.Get("/settings", adminHandler.GetSettings)
	admin.Put("/settings", adminHandler.UpdateSettings)
	admin.Get("/audit-logs", adminHandler.ListAuditLogs)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		app.Shutdown()
	}()

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	log.Printf("Starting DocVault API server on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func seedAdminUser(db *gorm.DB) {
	var count int64
	db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count)

	if count == 0 {
		log.Println("Creating default admin user...")

		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)

		admin := models.User{
			Username: "admin",
			Password: string(hashedPassword),
			Email:    "admin@docvault.local",
			Role:     models.RoleAdmin,
			Status:   models.UserStatusActive,
		}

		if err := db.Create(&admin).Error; err != nil {
			log.Printf("Failed to create admin user: %v", err)
		} else {
			log.Println("Admin user created successfully (username: admin, password: admin123)")
		}
	}
}
