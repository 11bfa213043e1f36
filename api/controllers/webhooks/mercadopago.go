package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/brunotavares/sorrisodigital-backend/api/responses"
	"github.com/brunotavares/sorrisodigital-backend/internal/reconcile"
	pkgerrors "github.com/brunotavares/sorrisodigital-backend/pkg/errors"
	"github.com/brunotavares/sorrisodigital-backend/pkg/logger"
)

type mercadoPagoAdapter interface {
	Resolve(ctx context.Context, payload []byte) (reconcile.PaymentEvent, error)
}

// MercadoPagoWebhook resolves the thin notification against the provider API
// and feeds the result into the reconciliation pipeline. The authenticated
// lookup doubles as the authenticity check, so an unresolvable payment id
// comes back as an unauthorized error from the adapter.
func MercadoPagoWebhook(adapter mercadoPagoAdapter, proc Processor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if adapter == nil || proc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "mercadopago webhook not configured"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		event, err := adapter.Resolve(ctx, payload)
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
