package orphans

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brunotavares/sorrisodigital-backend/pkg/db/models"
	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
	pkgerrors "github.com/brunotavares/sorrisodigital-backend/pkg/errors"
	"github.com/brunotavares/sorrisodigital-backend/pkg/outbox"
	"github.com/brunotavares/sorrisodigital-backend/pkg/outbox/payloads"
	"github.com/brunotavares/sorrisodigital-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RecordInput carries an authentic delivery that matched no lead.
type RecordInput struct {
	Provider          enums.PaymentProvider
	EventID           string
	ProviderPaymentID string
	ExternalReference string
	Reason            string
	Payload           json.RawMessage
}

// ListParams are the admin review queue inputs.
type ListParams struct {
	Limit           int
	Cursor          string
	IncludeResolved bool
}

// ListResult is one page of the review queue.
type ListResult struct {
	Orphans    []models.OrphanEvent
	NextCursor string
}

// Service persists and resolves orphan events.
type Service interface {
	Record(ctx context.Context, input RecordInput) (*models.OrphanEvent, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Resolve(ctx context.Context, orphanID, adminID uuid.UUID) (*models.OrphanEvent, error)
}

// ServiceParams wires the orphan service.
type ServiceParams struct {
	Repo              Repository
	Outbox            *outbox.Service
	TransactionRunner txRunner
}

type service struct {
	repo     Repository
	outbox   *outbox.Service
	txRunner txRunner
}

// NewService validates dependencies and returns a ready service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orphan repo required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox service required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &service{
		repo:     params.Repo,
		outbox:   params.Outbox,
		txRunner: params.TransactionRunner,
	}, nil
}

// Record parks the event for manual review and announces it, atomically.
func (s *service) Record(ctx context.Context, input RecordInput) (*models.OrphanEvent, error) {
	if !input.Provider.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment provider")
	}
	if input.EventID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}

	orphan := &models.OrphanEvent{
		ID:                uuid.New(),
		Provider:          input.Provider,
		EventID:           input.EventID,
		ProviderPaymentID: input.ProviderPaymentID,
		Reason:            input.Reason,
		Payload:           input.Payload,
	}
	if input.ExternalReference != "" {
		ref := input.ExternalReference
		orphan.ExternalReference = &ref
	}

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Insert(ctx, orphan); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert orphan event")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrphanRecorded,
			AggregateType: enums.AggregateOrphan,
			AggregateID:   orphan.ID,
			Actor:         &outbox.ActorRef{Source: "webhook:" + input.Provider.String()},
			Data: payloads.OrphanEventRecordedEvent{
				OrphanID:          orphan.ID,
				Provider:          input.Provider,
				EventID:           input.EventID,
				ProviderPaymentID: input.ProviderPaymentID,
				ExternalReference: input.ExternalReference,
				Reason:            input.Reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return orphan, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := ListQuery{
		Limit:           limit + 1,
		IncludeResolved: params.IncludeResolved,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orphan events")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: rows[limit-1].CreatedAt,
			ID:        rows[limit-1].ID,
		})
		rows = rows[:limit]
	}
	return &ListResult{Orphans: rows, NextCursor: nextCursor}, nil
}

func (s *service) Resolve(ctx context.Context, orphanID, adminID uuid.UUID) (*models.OrphanEvent, error) {
	if orphanID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orphan id is required")
	}
	if adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin id is required")
	}

	updated, err := s.repo.MarkResolved(ctx, orphanID, adminID, time.Now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve orphan event")
	}
	if updated == 0 {
		orphan, err := s.repo.FindByID(ctx, orphanID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "orphan event not found")
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load orphan event")
		}
		if orphan.ResolvedAt != nil {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "orphan event already resolved")
		}
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orphan event not resolved")
	}
	return s.repo.FindByID(ctx, orphanID)
}
