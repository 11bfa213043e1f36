package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
)

// OrphanEvent holds authentic webhook events whose external reference matched
// no lead. They are acknowledged to the provider and parked here for manual
// review instead of being silently dropped.
type OrphanEvent struct {
	ID                uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Provider          enums.PaymentProvider `gorm:"type:payment_provider;not null"`
	EventID           string                `gorm:"column:event_id;type:text;not null"`
	ProviderPaymentID string                `gorm:"column:provider_payment_id;type:text"`
	ExternalReference *string               `gorm:"column:external_reference"`
	Reason            string                `gorm:"type:text;not null"`
	Payload           json.RawMessage       `gorm:"type:jsonb"`
	ResolvedAt        *time.Time            `gorm:"column:resolved_at"`
	ResolvedBy        *uuid.UUID            `gorm:"column:resolved_by;type:uuid"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
}
