package webhooks

import (
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"

	"github.com/brunotavares/sorrisodigital-backend/api/responses"
	"github.com/brunotavares/sorrisodigital-backend/internal/reconcile"
	pkgerrors "github.com/brunotavares/sorrisodigital-backend/pkg/errors"
	"github.com/brunotavares/sorrisodigital-backend/pkg/logger"
)

// maxWebhookBody caps provider payloads; real deliveries are a few KB.
const maxWebhookBody = 1 << 20

type stripeAdapter interface {
	VerifyAndParse(payload []byte, signatureHeader string) (*stripe.Event, error)
	Normalize(event *stripe.Event) (reconcile.PaymentEvent, error)
}

// StripeWebhook verifies the Stripe-Signature header and feeds the event into
// the reconciliation pipeline. The provider retries on any non-2xx status, so
// only authenticity failures, parse failures and infrastructure faults are
// allowed to return one.
func StripeWebhook(adapter stripeAdapter, proc Processor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if adapter == nil || proc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe webhook not configured"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "stripe signature missing"))
			return
		}

		stripeEvent, err := adapter.VerifyAndParse(payload, sigHeader)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		event, err := adapter.Normalize(stripeEvent)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		outcome, err := proc.Process(ctx, event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcomeResponse{Outcome: outcome.String()})
	}
}
