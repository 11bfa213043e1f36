package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
)

// LeadStatusHistory is an append-only audit trail of status moves.
type LeadStatusHistory struct {
	ID        uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	LeadID    uuid.UUID        `gorm:"column:lead_id;type:uuid;not null;index"`
	OldStatus enums.LeadStatus `gorm:"column:old_status;type:lead_status;not null"`
	NewStatus enums.LeadStatus `gorm:"column:new_status;type:lead_status;not null"`
	ChangedBy string           `gorm:"column:changed_by;type:text;not null"`
	Note      *string          `gorm:"column:note"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the default pluralization.
func (LeadStatusHistory) TableName() string {
	return "lead_status_history"
}
