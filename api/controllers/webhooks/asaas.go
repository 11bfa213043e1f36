package webhooks

import (
	"io"
	"net/http"

	"github.com/brunotavares/sorrisodigital-backend/api/responses"
	"github.com/brunotavares/sorrisodigital-backend/internal/reconcile"
	pkgerrors "github.com/brunotavares/sorrisodigital-backend/pkg/errors"
	"github.com/brunotavares/sorrisodigital-backend/pkg/logger"
)

const asaasTokenHeader = "asaas-access-token"

type asaasAdapter interface {
	VerifyToken(headerToken string) error
	Normalize(payload []byte) (reconcile.PaymentEvent, error)
}

// AsaasWebhook authenticates the shared webhook token and feeds the event
// into the reconciliation pipeline.
func AsaasWebhook(adapter asaasAdapter, proc Processor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if adapter == nil || proc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "asaas webhook not configured"))
			return
		}

		if err := adapter.VerifyToken(r.Header.Get(asaasTokenHeader)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		event, err := adapter.Normalize(payload)
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
