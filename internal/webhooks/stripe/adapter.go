package stripewebhook

import (
	"encoding/json"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/brunotavares/sorrisodigital-backend/internal/reconcile"
	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
	pkgerrors "github.com/brunotavares/sorrisodigital-backend/pkg/errors"
)

// leadRefKey is the metadata key the checkout flow stamps on every intent.
const leadRefKey = "lead_id"

// Adapter verifies Stripe signatures and normalizes events into the
// provider-neutral shape.
type Adapter struct {
	secret string
}

func NewAdapter(webhookSecret string) (*Adapter, error) {
	if webhookSecret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe webhook secret required")
	}
	return &Adapter{secret: webhookSecret}, nil
}

// VerifyAndParse validates the Stripe-Signature header against the raw body.
func (a *Adapter) VerifyAndParse(payload []byte, signatureHeader string) (*stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, a.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "verify stripe signature")
	}
	return &event, nil
}

// Normalize maps a verified Stripe event onto the reconciliation shape.
// Event types outside the payment lifecycle come back as ignored.
func (a *Adapter) Normalize(event *stripe.Event) (reconcile.PaymentEvent, error) {
	if event == nil || event.Data == nil {
		return reconcile.PaymentEvent{}, pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	normalized := reconcile.PaymentEvent{
		Provider:   enums.ProviderStripe,
		EventID:    event.ID,
		Kind:       enums.EventKindIgnored,
		OccurredAt: time.Unix(event.Created, 0).UTC(),
		RawPayload: json.RawMessage(event.Data.Raw),
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentCreated,
		stripe.EventTypePaymentIntentSucceeded,
		stripe.EventTypePaymentIntentPaymentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return reconcile.PaymentEvent{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
		}
		normalized.ProviderPaymentID = intent.ID
		normalized.ExternalReference = intent.Metadata[leadRefKey]
		normalized.AmountCents = intent.Amount
		normalized.Currency = string(intent.Currency)
		switch event.Type {
		case stripe.EventTypePaymentIntentCreated:
			normalized.Kind = enums.EventKindCreated
		case stripe.EventTypePaymentIntentSucceeded:
			normalized.Kind = enums.EventKindConfirmed
		case stripe.EventTypePaymentIntentPaymentFailed:
			normalized.Kind = enums.EventKindFailed
			if intent.LastPaymentError != nil {
				normalized.FailureReason = intent.LastPaymentError.Msg
			}
		}

	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return reconcile.PaymentEvent{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
		}
		normalized.Kind = enums.EventKindConfirmed
		if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
			normalized.ProviderPaymentID = session.PaymentIntent.ID
		} else {
			normalized.ProviderPaymentID = session.ID
		}
		normalized.ExternalReference = session.ClientReferenceID
		if normalized.ExternalReference == "" {
			normalized.ExternalReference = session.Metadata[leadRefKey]
		}
		normalized.AmountCents = session.AmountTotal
		normalized.Currency = string(session.Currency)

	case stripe.EventTypeChargeRefunded:
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return reconcile.PaymentEvent{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode charge")
		}
		normalized.Kind = enums.EventKindRefunded
		normalized.ProviderPaymentID = charge.ID
		if charge.PaymentIntent != nil && charge.PaymentIntent.ID != "" {
			normalized.ProviderPaymentID = charge.PaymentIntent.ID
		}
		normalized.ExternalReference = charge.Metadata[leadRefKey]
		normalized.AmountCents = charge.AmountRefunded
		normalized.Currency = string(charge.Currency)
	}

	return normalized, nil
}
