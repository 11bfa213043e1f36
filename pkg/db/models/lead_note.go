package models

import (
	"time"

	"github.com/google/uuid"
)

// LeadNote is a free-form back-office annotation on a lead.
type LeadNote struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	LeadID    uuid.UUID `gorm:"column:lead_id;type:uuid;not null;index"`
	AuthorID  uuid.UUID `gorm:"column:author_id;type:uuid;not null"`
	Body      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
