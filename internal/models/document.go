package models

import (
	"time"

	"gorm.io/gorm"
)

// DocumentStatus represents the publication state of a document
type DocumentStatus string

const (
	DocumentStatusDraft     DocumentStatus = "draft"
	DocumentStatusPublished DocumentStatus = "published"
	DocumentStatusArchived  DocumentStatus = "archived"
)

// Category represents a document category, optionally nested
type Category struct {
	ID          uint      `gorm:"column:id;primaryKey" json:"id"`
	Name        string    `gorm:"column:name;size:50;not null" json:"name"`
	Slug        string    `gorm:"column:slug;size:50;uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"column:description;size:255" json:"description,omitempty"`
	ParentID    *uint     `gorm:"column:parent_id;index" json:"parent_id"`
	Icon        string    `gorm:"column:icon;size:100" json:"icon,omitempty"`
	SortOrder   int       `gorm:"column:sort_order;default:0" json:"sort_order"`
	IsActive    bool      `gorm:"column:is_active;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

// Tag represents a document tag
type Tag struct {
	ID        uint      `gorm:"column:id;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;size:30;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

// Document represents an entry in the document catalog. The file itself
// lives in external object storage; FilePath is the resolved location the
// download path hands back to clients.
type Document struct {
	ID          uint      `gorm:"column:id;primaryKey" json:"id"`
	Title       string    `gorm:"column:title;size:200;not null;index" json:"title"`
	Description string    `gorm:"column:description;type:text" json:"description,omitempty"`
	CategoryID  *uint     `gorm:"column:category_id;index" json:"category_id"`
	Category    *Category `gorm:"-" json:"category,omitempty"`
	CoverImage  string    `gorm:"column:cover_image;size:500" json:"cover_image,omitempty"`
	FilePath    string    `gorm:"column:file_path;size:500;not null" json:"-"`
	FileName    string    `gorm:"column:file_name;size:255;not null" json:"file_name"`
	FileSize    int64     `gorm:"column:file_size;not null" json:"file_size"`
	PageCount   int       `gorm:"column:page_count" json:"page_count,omitempty"`

	Status        DocumentStatus `gorm:"column:status;size:20;default:draft;index" json:"status"`
	ViewCount     int64          `gorm:"column:view_count;default:0" json:"view_count"`
	DownloadCount int64          `gorm:"column:download_count;default:0" json:"download_count"`

	Tags []Tag `gorm:"many2many:document_tags" json:"tags"`

	CreatedBy uint           `gorm:"column:created_by;not null;index" json:"created_by"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Category) TableName() string {
	return "categories"
}

func (Tag) TableName() string {
	return "tags"
}

func (Document) TableName() string {
	return "documents"
}
