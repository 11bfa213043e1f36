package reconcile

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
)

// PaymentEvent is the provider-neutral shape every webhook adapter normalizes
// into. Amounts are integer minor units; the adapter owns the conversion from
// whatever the provider reports.
type PaymentEvent struct {
	Provider          enums.PaymentProvider
	EventID           string
	ProviderPaymentID string
	ExternalReference string
	Kind              enums.PaymentEventKind
	AmountCents       int64
	Currency          string
	OccurredAt        time.Time
	FailureReason     string
	RawPayload        json.RawMessage
}

// LeadID parses the external reference the provider echoed back. A missing or
// malformed reference means the event cannot be tied to a lead.
func (e PaymentEvent) LeadID() (uuid.UUID, bool) {
	if e.ExternalReference == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(e.ExternalReference)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
