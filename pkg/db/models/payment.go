package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
)

// Payment is the durable record of one provider charge. Amounts are always
// non-negative minor units; a refund is a status, not a sign flip.
// LastEventAt carries the provider-supplied occurred-at timestamp of the last
// applied event so out-of-order deliveries can be detected.
type Payment struct {
	ID                uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	LeadID            uuid.UUID             `gorm:"column:lead_id;type:uuid;not null;index"`
	Provider          enums.PaymentProvider `gorm:"type:payment_provider;not null;uniqueIndex:ux_payments_provider_payment"`
	ProviderPaymentID string                `gorm:"column:provider_payment_id;type:text;not null;uniqueIndex:ux_payments_provider_payment"`
	Type              enums.PaymentType     `gorm:"type:payment_type;not null;default:'total'"`
	AmountCents       int64                 `gorm:"column:amount_cents;not null"`
	Currency          string                `gorm:"type:text;not null;default:'brl'"`
	Status            enums.PaymentStatus   `gorm:"type:payment_status;not null;default:'pending'"`
	FailureReason     *string               `gorm:"column:failure_reason"`
	LastEventAt       *time.Time            `gorm:"column:last_event_at"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
