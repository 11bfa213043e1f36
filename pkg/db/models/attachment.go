package models

import (
	"time"

	"github.com/google/uuid"
)

// Attachment tracks briefing assets (logo, clinic photos) uploaded straight
// to object storage via presigned URLs.
type Attachment struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	LeadID      uuid.UUID `gorm:"column:lead_id;type:uuid;not null;index"`
	Kind        string    `gorm:"type:text;not null"`
	ObjectKey   string    `gorm:"column:object_key;type:text;not null;uniqueIndex"`
	ContentType string    `gorm:"column:content_type;type:text;not null"`
	SizeBytes   int64     `gorm:"column:size_bytes;not null;default:0"`
	Uploaded    bool      `gorm:"column:uploaded;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
