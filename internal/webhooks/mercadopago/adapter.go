package mpwebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/brunotavares/sorrisodigital-backend/internal/reconcile"
	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
	pkgerrors "github.com/brunotavares/sorrisodigital-backend/pkg/errors"
	"github.com/brunotavares/sorrisodigital-backend/pkg/mercadopago"
	"github.com/brunotavares/sorrisodigital-backend/pkg/money"
)

// lookupTimeout bounds the secondary fetch so a slow provider API cannot hold
// the webhook handler open indefinitely.
const lookupTimeout = 10 * time.Second

type paymentClient interface {
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

type notification struct {
	ID     json.Number `json:"id"`
	Type   string      `json:"type"`
	Action string      `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Adapter handles Mercado Pago notifications. The body carries only a payment
// id; authenticity and all event data come from a lookup against the Payments
// API with our access token.
type Adapter struct {
	client paymentClient
}

func NewAdapter(client paymentClient) (*Adapter, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "mercadopago client required")
	}
	return &Adapter{client: client}, nil
}

// Resolve parses the notification and fetches the referenced payment. A
// payment id the API does not recognize is treated as an unauthentic
// delivery.
func (a *Adapter) Resolve(ctx context.Context, payload []byte) (reconcile.PaymentEvent, error) {
	var n notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return reconcile.PaymentEvent{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode mercadopago notification")
	}

	if !strings.EqualFold(n.Type, "payment") {
		return reconcile.PaymentEvent{
			Provider:   enums.ProviderMercadoPago,
			EventID:    eventID(n, ""),
			Kind:       enums.EventKindIgnored,
			OccurredAt: time.Now().UTC(),
			RawPayload: json.RawMessage(payload),
		}, nil
	}
	if n.Data.ID == "" {
		return reconcile.PaymentEvent{}, pkgerrors.New(pkgerrors.CodeValidation, "mercadopago notification missing payment id")
	}

	lookupCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()
	payment, err := a.client.GetPayment(lookupCtx, n.Data.ID)
	if err != nil {
		if pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound {
			return reconcile.PaymentEvent{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "payment id not recognized by mercadopago")
		}
		return reconcile.PaymentEvent{}, err
	}

	amountCents, err := money.FromMajorUnits(payment.TransactionAmount)
	if err != nil {
		return reconcile.PaymentEvent{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "convert mercadopago amount")
	}

	event := reconcile.PaymentEvent{
		Provider:          enums.ProviderMercadoPago,
		EventID:           eventID(n, payment.Status),
		ProviderPaymentID: fmt.Sprintf("%d", payment.ID),
		ExternalReference: payment.ExternalReference,
		Kind:              kindFromStatus(payment.Status),
		AmountCents:       amountCents,
		Currency:          strings.ToLower(payment.CurrencyID),
		OccurredAt:        occurredAt(payment),
		RawPayload:        json.RawMessage(payload),
	}
	if event.Kind == enums.EventKindFailed {
		event.FailureReason = payment.StatusDetail
	}
	return event, nil
}

// eventID prefers the notification id; without one, the payment id plus the
// resolved status still dedups redeliveries of the same state.
func eventID(n notification, status string) string {
	if n.ID.String() != "" {
		return n.ID.String()
	}
	if status != "" {
		return fmt.Sprintf("%s:%s", n.Data.ID, status)
	}
	return fmt.Sprintf("%s:%s", n.Data.ID, n.Action)
}

func kindFromStatus(status string) enums.PaymentEventKind {
	switch strings.ToLower(status) {
	case "pending", "in_process", "authorized":
		return enums.EventKindCreated
	case "approved":
		return enums.EventKindConfirmed
	case "rejected", "cancelled":
		return enums.EventKindFailed
	case "refunded", "charged_back":
		return enums.EventKindRefunded
	default:
		return enums.EventKindIgnored
	}
}

func occurredAt(payment *mercadopago.Payment) time.Time {
	if payment.DateLastUpdated != nil {
		return payment.DateLastUpdated.UTC()
	}
	if payment.DateApproved != nil {
		return payment.DateApproved.UTC()
	}
	if !payment.DateCreated.IsZero() {
		return payment.DateCreated.UTC()
	}
	return time.Now().UTC()
}
