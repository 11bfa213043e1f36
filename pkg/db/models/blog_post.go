package models

import (
	"time"

	"github.com/google/uuid"
)

// BlogPost is a CMS article. Unpublished posts are only visible to admins.
type BlogPost struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Title       string     `gorm:"type:text;not null"`
	Slug        string     `gorm:"type:text;not null;uniqueIndex"`
	Excerpt     string     `gorm:"type:text;not null"`
	Body        string     `gorm:"type:text;not null"`
	CoverURL    *string    `gorm:"column:cover_url"`
	Published   bool       `gorm:"column:published;not null;default:false"`
	PublishedAt *time.Time `gorm:"column:published_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
