package asaaswebhook

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/brunotavares/sorrisodigital-backend/internal/reconcile"
	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
	pkgerrors "github.com/brunotavares/sorrisodigital-backend/pkg/errors"
	"github.com/brunotavares/sorrisodigital-backend/pkg/money"
)

// asaasDateLayout is the timestamp format Asaas sends in webhook bodies.
const asaasDateLayout = "2006-01-02 15:04:05"

type webhookBody struct {
	ID          string `json:"id"`
	Event       string `json:"event"`
	DateCreated string `json:"dateCreated"`
	Payment     struct {
		ID                string  `json:"id"`
		Value             float64 `json:"value"`
		ExternalReference string  `json:"externalReference"`
		BillingType       string  `json:"billingType"`
		PaymentDate       string  `json:"paymentDate"`
		Description       string  `json:"description"`
	} `json:"payment"`
}

// Adapter authenticates Asaas deliveries via the shared webhook token and
// normalizes their payloads.
type Adapter struct {
	token string
}

func NewAdapter(webhookToken string) (*Adapter, error) {
	if webhookToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "asaas webhook token required")
	}
	return &Adapter{token: webhookToken}, nil
}

// VerifyToken compares the asaas-access-token header in constant time.
func (a *Adapter) VerifyToken(headerToken string) error {
	if subtle.ConstantTimeCompare([]byte(headerToken), []byte(a.token)) != 1 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid asaas webhook token")
	}
	return nil
}

// Normalize parses an authenticated body. The value field arrives in reais;
// the conversion to cents happens here and nowhere else.
func (a *Adapter) Normalize(payload []byte) (reconcile.PaymentEvent, error) {
	var body webhookBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return reconcile.PaymentEvent{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode asaas webhook")
	}
	if body.Event == "" || body.Payment.ID == "" {
		return reconcile.PaymentEvent{}, pkgerrors.New(pkgerrors.CodeValidation, "asaas webhook missing event or payment id")
	}

	eventID := body.ID
	if eventID == "" {
		// Older Asaas accounts deliver without a webhook id.
		eventID = fmt.Sprintf("%s:%s", body.Event, body.Payment.ID)
	}

	amountCents, err := money.FromMajorUnits(body.Payment.Value)
	if err != nil {
		return reconcile.PaymentEvent{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "convert asaas value")
	}

	return reconcile.PaymentEvent{
		Provider:          enums.ProviderAsaas,
		EventID:           eventID,
		ProviderPaymentID: body.Payment.ID,
		ExternalReference: body.Payment.ExternalReference,
		Kind:              kindFromEvent(body.Event),
		AmountCents:       amountCents,
		Currency:          "brl",
		OccurredAt:        occurredAt(body),
		RawPayload:        json.RawMessage(payload),
	}, nil
}

func kindFromEvent(event string) enums.PaymentEventKind {
	switch strings.ToUpper(event) {
	case "PAYMENT_CREATED":
		return enums.EventKindCreated
	case "PAYMENT_CONFIRMED", "PAYMENT_RECEIVED":
		return enums.EventKindConfirmed
	case "PAYMENT_OVERDUE":
		return enums.EventKindOverdue
	case "PAYMENT_REFUNDED":
		return enums.EventKindRefunded
	default:
		return enums.EventKindIgnored
	}
}

func occurredAt(body webhookBody) time.Time {
	for _, candidate := range []string{body.DateCreated, body.Payment.PaymentDate} {
		if candidate == "" {
			continue
		}
		if ts, err := time.Parse(asaasDateLayout, candidate); err == nil {
			return ts.UTC()
		}
		// paymentDate sometimes arrives date-only
		if ts, err := time.Parse("2006-01-02", candidate); err == nil {
			return ts.UTC()
		}
	}
	return time.Now().UTC()
}
