package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
)

// Lead is a prospective client created from the public briefing form. The
// status column is only written by the reconciliation gateway (payment-driven
// moves) and the leads service (admin-driven moves); both bump Version so
// concurrent writers cannot silently clobber each other.
type Lead struct {
	ID              uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ClinicName      string           `gorm:"column:clinic_name;type:text;not null"`
	ResponsibleName string           `gorm:"column:responsible_name;type:text;not null"`
	Email           string           `gorm:"type:text;not null;index"`
	Whatsapp        string           `gorm:"type:text;not null"`
	City            *string          `gorm:"type:text"`
	Plan            *string          `gorm:"type:text"`
	Briefing        json.RawMessage  `gorm:"type:jsonb"`
	Status          enums.LeadStatus `gorm:"type:lead_status;not null;default:'novo';index"`
	TotalCents      int64            `gorm:"column:total_cents;not null;default:0"`
	Version         int              `gorm:"column:version;not null;default:1"`
	ApprovedAt      *time.Time       `gorm:"column:approved_at"`
	PaidAt          *time.Time       `gorm:"column:paid_at"`
	PublishedAt     *time.Time       `gorm:"column:published_at"`
	Archived        bool             `gorm:"column:archived;not null;default:false"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
