package webhooks

import (
	"context"

	"github.com/brunotavares/sorrisodigital-backend/internal/reconcile"
	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
)

// Processor is the single entry point every provider handler feeds after
// authenticity and parsing are done.
type Processor interface {
	Process(ctx context.Context, event reconcile.PaymentEvent) (enums.WebhookOutcome, error)
}

type outcomeResponse struct {
	Outcome string `json:"outcome"`
}
