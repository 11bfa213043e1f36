package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
)

// WebhookEvent is the idempotency ledger: one row per (provider, event id).
// The unique index makes the claim a single atomic insert; a duplicate
// delivery surfaces as a unique violation, never as a second application.
type WebhookEvent struct {
	ID        uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Provider  enums.PaymentProvider `gorm:"type:payment_provider;not null;uniqueIndex:ux_webhook_events_provider_event"`
	EventID   string                `gorm:"column:event_id;type:text;not null;uniqueIndex:ux_webhook_events_provider_event"`
	Outcome   *enums.WebhookOutcome `gorm:"type:webhook_outcome"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
