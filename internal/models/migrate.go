package models

import (
	_ "embed"
	"log"

	"gorm.io/gorm"
)

//go:embed schema.sql
var schemaSQL string

// AutoMigrate runs database migrations using the embedded SQL schema.
// Statements use IF NOT EXISTS so re-running on an existing database is safe.
func AutoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations using SQL schema...")

	if err := db.Exec(schemaSQL).Error; err != nil {
		return err
	}

	log.Println("Database migrations completed successfully")
	return nil
}
