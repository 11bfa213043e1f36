package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
)

// LeadCreatedEvent signals a new briefing submitted through the public form.
type LeadCreatedEvent struct {
	LeadID     uuid.UUID `json:"lead_id"`
	ClinicName string    `json:"clinic_name"`
	Email      string    `json:"email"`
	Plan       string    `json:"plan,omitempty"`
}

// LeadStatusChangedEvent is emitted on every lead status move, whether driven
// by an admin or by a payment event.
type LeadStatusChangedEvent struct {
	LeadID    uuid.UUID        `json:"lead_id"`
	OldStatus enums.LeadStatus `json:"old_status"`
	NewStatus enums.LeadStatus `json:"new_status"`
	ChangedBy string           `json:"changed_by"`
}

// PaymentConfirmedEvent is emitted when a provider confirms a charge.
type PaymentConfirmedEvent struct {
	LeadID            uuid.UUID             `json:"lead_id"`
	PaymentID         uuid.UUID             `json:"payment_id"`
	Provider          enums.PaymentProvider `json:"provider"`
	ProviderPaymentID string                `json:"provider_payment_id"`
	AmountCents       int64                 `json:"amount_cents"`
	Currency          string                `json:"currency"`
	PaidAt            time.Time             `json:"paid_at"`
}

// PaymentOverdueEvent is emitted when a boleto or invoice passes its due date.
type PaymentOverdueEvent struct {
	LeadID            uuid.UUID             `json:"lead_id"`
	PaymentID         uuid.UUID             `json:"payment_id"`
	Provider          enums.PaymentProvider `json:"provider"`
	ProviderPaymentID string                `json:"provider_payment_id"`
	AmountCents       int64                 `json:"amount_cents"`
}

// PaymentFailedEvent is emitted when a charge fails terminally.
type PaymentFailedEvent struct {
	LeadID            uuid.UUID             `json:"lead_id"`
	PaymentID         uuid.UUID             `json:"payment_id"`
	Provider          enums.PaymentProvider `json:"provider"`
	ProviderPaymentID string                `json:"provider_payment_id"`
	Reason            string                `json:"reason,omitempty"`
}

// PaymentRefundedEvent is emitted when a settled charge is refunded.
type PaymentRefundedEvent struct {
	LeadID            uuid.UUID             `json:"lead_id"`
	PaymentID         uuid.UUID             `json:"payment_id"`
	Provider          enums.PaymentProvider `json:"provider"`
	ProviderPaymentID string                `json:"provider_payment_id"`
	AmountCents       int64                 `json:"amount_cents"`
	RefundedAt        time.Time             `json:"refunded_at"`
}

// OrphanEventRecordedEvent flags an authentic delivery that matched no lead.
type OrphanEventRecordedEvent struct {
	OrphanID          uuid.UUID             `json:"orphan_id"`
	Provider          enums.PaymentProvider `json:"provider"`
	EventID           string                `json:"event_id"`
	ProviderPaymentID string                `json:"provider_payment_id,omitempty"`
	ExternalReference string                `json:"external_reference,omitempty"`
	Reason            string                `json:"reason"`
}
