package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brunotavares/sorrisodigital-backend/pkg/db"
	"github.com/brunotavares/sorrisodigital-backend/pkg/db/models"
	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
)

// Service claims and resolves webhook deliveries. A claim is an insert into
// the webhook_events table; the unique (provider, event_id) index guarantees
// only one delivery of a given event is ever processed.
type Service interface {
	WithTx(tx *gorm.DB) Service
	TryClaim(ctx context.Context, provider enums.PaymentProvider, eventID string) (*models.WebhookEvent, bool, error)
	RecordOutcome(ctx context.Context, claimID uuid.UUID, outcome enums.WebhookOutcome) error
	Release(ctx context.Context, claimID uuid.UUID) error
	Lookup(ctx context.Context, provider enums.PaymentProvider, eventID string) (*models.WebhookEvent, error)
}

type service struct {
	repo Repository
}

// NewService wires a webhook ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

// TryClaim records the delivery and reports whether this call won the claim.
// A false return means another delivery of the same event already holds it.
func (s *service) TryClaim(ctx context.Context, provider enums.PaymentProvider, eventID string) (*models.WebhookEvent, bool, error) {
	if !provider.IsValid() {
		return nil, false, fmt.Errorf("invalid payment provider %q", provider)
	}
	if eventID == "" {
		return nil, false, fmt.Errorf("event id is required")
	}

	event := &models.WebhookEvent{
		ID:       uuid.New(),
		Provider: provider,
		EventID:  eventID,
	}
	if err := s.repo.Insert(ctx, event); err != nil {
		if db.IsUniqueViolation(err, "ux_webhook_events_provider_event") {
			return nil, false, nil
		}
		return nil, false, err
	}
	return event, true, nil
}

// RecordOutcome marks how the claimed event ended up. The claim row keeps the
// event permanently deduplicated once an outcome is written.
func (s *service) RecordOutcome(ctx context.Context, claimID uuid.UUID, outcome enums.WebhookOutcome) error {
	if claimID == uuid.Nil {
		return fmt.Errorf("claim id is required")
	}
	if !outcome.IsValid() {
		return fmt.Errorf("invalid webhook outcome %q", outcome)
	}
	return s.repo.UpdateOutcome(ctx, claimID, outcome)
}

// Release drops the claim so a provider redelivery can reprocess the event.
// Used when processing failed for a retryable reason and no outcome applies.
func (s *service) Release(ctx context.Context, claimID uuid.UUID) error {
	if claimID == uuid.Nil {
		return fmt.Errorf("claim id is required")
	}
	return s.repo.Delete(ctx, claimID)
}

func (s *service) Lookup(ctx context.Context, provider enums.PaymentProvider, eventID string) (*models.WebhookEvent, error) {
	if !provider.IsValid() {
		return nil, fmt.Errorf("invalid payment provider %q", provider)
	}
	if eventID == "" {
		return nil, fmt.Errorf("event id is required")
	}
	return s.repo.FindByProviderEvent(ctx, provider, eventID)
}
