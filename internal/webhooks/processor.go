package webhooks

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/brunotavares/sorrisodigital-backend/internal/ledger"
	"github.com/brunotavares/sorrisodigital-backend/internal/orphans"
	"github.com/brunotavares/sorrisodigital-backend/internal/reconcile"
	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
	pkgerrors "github.com/brunotavares/sorrisodigital-backend/pkg/errors"
	"github.com/brunotavares/sorrisodigital-backend/pkg/logger"
	"github.com/brunotavares/sorrisodigital-backend/pkg/metrics"
)

// maxCommitRetries bounds how often a losing optimistic commit re-reads state
// and re-decides before giving up and letting the provider retry.
const maxCommitRetries = 3

// ProcessorParams wires the provider-agnostic webhook processor.
type ProcessorParams struct {
	Ledger  ledger.Service
	Gateway *reconcile.Gateway
	Orphans orphans.Service
	Guard   *IdempotencyGuard
	Metrics *metrics.WebhookMetrics
	Logger  *logger.Logger
}

// Processor runs one normalized event through claim, decide and commit. Each
// provider package verifies and normalizes; everything after that is shared.
type Processor struct {
	ledger  ledger.Service
	gateway *reconcile.Gateway
	orphans orphans.Service
	guard   *IdempotencyGuard
	metrics *metrics.WebhookMetrics
	logg    *logger.Logger
}

func NewProcessor(params ProcessorParams) (*Processor, error) {
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger service required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconcile gateway required")
	}
	if params.Orphans == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orphan service required")
	}
	return &Processor{
		ledger:  params.Ledger,
		gateway: params.Gateway,
		orphans: params.Orphans,
		guard:   params.Guard,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

// Process applies an already-verified event. The returned outcome maps to a
// 200 acknowledgment; a non-nil error means the provider should retry.
func (p *Processor) Process(ctx context.Context, event reconcile.PaymentEvent) (enums.WebhookOutcome, error) {
	provider := event.Provider.String()
	p.metrics.IncReceived(provider)
	start := time.Now()
	defer func() {
		p.metrics.ObserveDuration(provider, time.Since(start))
	}()

	if p.guard != nil {
		seen, err := p.guard.CheckAndMark(ctx, provider, event.EventID)
		if err != nil {
			// Redis is advisory here; the ledger still dedups.
			p.warn(ctx, event, "webhook idempotency guard unavailable", err)
		} else if seen {
			// The Redis mark is volatile; only a ledger row proves the event
			// was durably claimed. Without one, fall through to TryClaim.
			prior, lookupErr := p.ledger.Lookup(ctx, event.Provider, event.EventID)
			if lookupErr == nil && prior != nil {
				p.finish(ctx, event, enums.OutcomeDuplicate)
				return enums.OutcomeDuplicate, nil
			}
			if lookupErr != nil && !errors.Is(lookupErr, gorm.ErrRecordNotFound) {
				p.warn(ctx, event, "confirm webhook duplicate against ledger", lookupErr)
			}
		}
	}

	claim, claimed, err := p.ledger.TryClaim(ctx, event.Provider, event.EventID)
	if err != nil {
		p.releaseGuard(ctx, event)
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim webhook event")
	}
	if !claimed {
		p.finish(ctx, event, enums.OutcomeDuplicate)
		return enums.OutcomeDuplicate, nil
	}

	outcome, err := p.decideAndCommit(ctx, event)
	if err != nil {
		// Drop the claim so the provider redelivery can reprocess.
		if releaseErr := p.ledger.Release(ctx, claim.ID); releaseErr != nil {
			p.warn(ctx, event, "release webhook claim", releaseErr)
		}
		p.releaseGuard(ctx, event)
		return "", err
	}

	if err := p.ledger.RecordOutcome(ctx, claim.ID, outcome); err != nil {
		// The state change is already committed; dedup holds without the
		// outcome column, so this is not worth a provider retry.
		p.warn(ctx, event, "record webhook outcome", err)
	}
	p.finish(ctx, event, outcome)
	return outcome, nil
}

func (p *Processor) decideAndCommit(ctx context.Context, event reconcile.PaymentEvent) (enums.WebhookOutcome, error) {
	for attempt := 0; attempt < maxCommitRetries; attempt++ {
		lead, payment, err := p.gateway.Load(ctx, event)
		if err != nil {
			return "", err
		}

		decision := reconcile.Decide(lead, payment, event)
		if decision.Outcome == enums.OutcomeOrphaned {
			if _, err := p.orphans.Record(ctx, orphans.RecordInput{
				Provider:          event.Provider,
				EventID:           event.EventID,
				ProviderPaymentID: event.ProviderPaymentID,
				ExternalReference: event.ExternalReference,
				Reason:            decision.Reason,
				Payload:           event.RawPayload,
			}); err != nil {
				return "", err
			}
			return enums.OutcomeOrphaned, nil
		}

		if !decision.Applies() {
			if decision.Outcome == enums.OutcomeRejected {
				p.warn(ctx, event, "webhook event rejected: "+decision.Reason, nil)
			}
			return decision.Outcome, nil
		}

		err = p.gateway.Commit(ctx, decision)
		if errors.Is(err, reconcile.ErrConflict) {
			continue
		}
		if err != nil {
			return "", err
		}
		return decision.Outcome, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeDependency, "commit contention exhausted retries")
}

func (p *Processor) releaseGuard(ctx context.Context, event reconcile.PaymentEvent) {
	if p.guard == nil {
		return
	}
	if err := p.guard.Delete(ctx, event.Provider.String(), event.EventID); err != nil {
		p.warn(ctx, event, "clear webhook idempotency mark", err)
	}
}

func (p *Processor) finish(ctx context.Context, event reconcile.PaymentEvent, outcome enums.WebhookOutcome) {
	p.metrics.IncOutcome(event.Provider.String(), outcome.String())
	if p.logg == nil {
		return
	}
	logCtx := p.logg.WithFields(ctx, map[string]any{
		"provider":            event.Provider.String(),
		"event_id":            event.EventID,
		"provider_payment_id": event.ProviderPaymentID,
		"kind":                event.Kind.String(),
		"outcome":             outcome.String(),
	})
	p.logg.Info(logCtx, "webhook event processed")
}

func (p *Processor) warn(ctx context.Context, event reconcile.PaymentEvent, msg string, err error) {
	if p.logg == nil {
		return
	}
	fields := map[string]any{
		"provider": event.Provider.String(),
		"event_id": event.EventID,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	p.logg.Warn(p.logg.WithFields(ctx, fields), msg)
}
