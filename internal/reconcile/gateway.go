package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brunotavares/sorrisodigital-backend/pkg/db"
	"github.com/brunotavares/sorrisodigital-backend/pkg/db/models"
	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
	pkgerrors "github.com/brunotavares/sorrisodigital-backend/pkg/errors"
	"github.com/brunotavares/sorrisodigital-backend/pkg/logger"
	"github.com/brunotavares/sorrisodigital-backend/pkg/outbox"
	"github.com/brunotavares/sorrisodigital-backend/pkg/outbox/payloads"
)

// ErrConflict signals that another writer changed the lead or payment between
// the read and the commit. The caller re-reads state, re-runs Decide and
// commits again.
var ErrConflict = errors.New("reconcile: concurrent modification")

// GatewayParams wires the persistence gateway.
type GatewayParams struct {
	DB     *gorm.DB
	Outbox *outbox.Service
	Logger *logger.Logger
}

// Gateway commits reconciliation decisions atomically: payment row, lead row,
// status history and outbox emit succeed or fail as one transaction.
type Gateway struct {
	db     *gorm.DB
	outbox *outbox.Service
	logg   *logger.Logger
}

// NewGateway validates dependencies and returns a ready gateway.
func NewGateway(params GatewayParams) (*Gateway, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconcile gateway requires a database")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconcile gateway requires an outbox service")
	}
	return &Gateway{db: params.DB, outbox: params.Outbox, logg: params.Logger}, nil
}

// Load reads the state Decide needs: the lead referenced by the event and the
// payment row for the provider-native payment id. Either may be nil.
func (g *Gateway) Load(ctx context.Context, event PaymentEvent) (*models.Lead, *models.Payment, error) {
	var lead *models.Lead
	if leadID, ok := event.LeadID(); ok {
		var row models.Lead
		err := g.db.WithContext(ctx).Where("id = ?", leadID).First(&row).Error
		switch {
		case err == nil:
			lead = &row
		case errors.Is(err, gorm.ErrRecordNotFound):
			// stays nil; Decide parks the event as an orphan
		default:
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lead")
		}
	}

	var payment *models.Payment
	if event.ProviderPaymentID != "" {
		var row models.Payment
		err := g.db.WithContext(ctx).
			Where("provider = ? AND provider_payment_id = ?", event.Provider, event.ProviderPaymentID).
			First(&row).Error
		switch {
		case err == nil:
			payment = &row
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
	}
	return lead, payment, nil
}

// Commit persists an applied decision. Returns ErrConflict when optimistic
// guards lose; any other error is an infrastructure fault.
func (g *Gateway) Commit(ctx context.Context, decision Decision) error {
	if !decision.Applies() {
		return nil
	}
	if decision.Lead == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "applied decision without a lead")
	}

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := g.applyPayment(ctx, tx, decision)
		if err != nil {
			return err
		}
		if err := g.applyLead(ctx, tx, decision); err != nil {
			return err
		}
		return g.emit(ctx, tx, decision, payment)
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return ErrConflict
		}
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit reconciliation decision")
	}

	if g.logg != nil {
		logCtx := g.logg.WithFields(ctx, map[string]any{
			"provider":            decision.Event.Provider.String(),
			"event_id":            decision.Event.EventID,
			"provider_payment_id": decision.Event.ProviderPaymentID,
			"lead_id":             decision.Lead.ID.String(),
			"payment_status":      decision.PaymentStatus.String(),
		})
		g.logg.Info(logCtx, "reconciliation decision committed")
	}
	return nil
}

func (g *Gateway) applyPayment(ctx context.Context, tx *gorm.DB, decision Decision) (*models.Payment, error) {
	event := decision.Event
	occurredAt := event.OccurredAt

	switch decision.Action {
	case ActionInsertPayment:
		row := &models.Payment{
			ID:                uuid.New(),
			LeadID:            decision.Lead.ID,
			Provider:          event.Provider,
			ProviderPaymentID: event.ProviderPaymentID,
			Type:              enums.PaymentTypeTotal,
			AmountCents:       event.AmountCents,
			Currency:          event.Currency,
			Status:            decision.PaymentStatus,
			LastEventAt:       &occurredAt,
		}
		if row.Currency == "" {
			row.Currency = "brl"
		}
		if err := tx.WithContext(ctx).Create(row).Error; err != nil {
			if db.IsUniqueViolation(err, "ux_payments_provider_payment") {
				return nil, ErrConflict
			}
			return nil, err
		}
		return row, nil

	case ActionUpdatePayment:
		if decision.Payment == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment update without a loaded payment")
		}
		updates := map[string]interface{}{
			"status":        decision.PaymentStatus,
			"last_event_at": occurredAt,
		}
		if decision.FailureReason != "" {
			updates["failure_reason"] = decision.FailureReason
		}
		// Guarded by the status observed at decision time so a concurrent
		// commit forces a re-read instead of a lost update.
		res := tx.WithContext(ctx).
			Model(&models.Payment{}).
			Where("id = ? AND status = ?", decision.Payment.ID, decision.Payment.Status).
			Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrConflict
		}
		updated := *decision.Payment
		updated.Status = decision.PaymentStatus
		updated.LastEventAt = &occurredAt
		return &updated, nil
	}
	return decision.Payment, nil
}

func (g *Gateway) applyLead(ctx context.Context, tx *gorm.DB, decision Decision) error {
	if decision.LeadStatus == nil {
		return nil
	}
	lead := decision.Lead
	target := *decision.LeadStatus

	updates := map[string]interface{}{
		"status":  target,
		"version": lead.Version + 1,
	}
	if target == enums.LeadStatusAprovadoPagamento {
		updates["paid_at"] = decision.Event.OccurredAt
	}
	if target == enums.LeadStatusAguardandoAprovacao {
		// Refund reverts drop the lead back to awaiting payment, so the
		// paid marker must go with it.
		updates["paid_at"] = nil
	}
	res := tx.WithContext(ctx).
		Model(&models.Lead{}).
		Where("id = ? AND version = ?", lead.ID, lead.Version).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}

	history := &models.LeadStatusHistory{
		ID:        uuid.New(),
		LeadID:    lead.ID,
		OldStatus: lead.Status,
		NewStatus: target,
		ChangedBy: fmt.Sprintf("system:%s", decision.Event.Provider),
	}
	return tx.WithContext(ctx).Create(history).Error
}

func (g *Gateway) emit(ctx context.Context, tx *gorm.DB, decision Decision, payment *models.Payment) error {
	if payment == nil {
		return nil
	}
	event := decision.Event
	actor := &outbox.ActorRef{Source: fmt.Sprintf("webhook:%s", event.Provider)}

	var domain outbox.DomainEvent
	switch decision.PaymentStatus {
	case enums.PaymentStatusSucceeded:
		domain = outbox.DomainEvent{
			EventType:     enums.EventPaymentConfirmed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         actor,
			OccurredAt:    event.OccurredAt,
			Data: payloads.PaymentConfirmedEvent{
				LeadID:            decision.Lead.ID,
				PaymentID:         payment.ID,
				Provider:          event.Provider,
				ProviderPaymentID: event.ProviderPaymentID,
				AmountCents:       payment.AmountCents,
				Currency:          payment.Currency,
				PaidAt:            event.OccurredAt,
			},
		}
	case enums.PaymentStatusFailed:
		eventType := enums.EventPaymentFailed
		var data interface{} = payloads.PaymentFailedEvent{
			LeadID:            decision.Lead.ID,
			PaymentID:         payment.ID,
			Provider:          event.Provider,
			ProviderPaymentID: event.ProviderPaymentID,
			Reason:            decision.FailureReason,
		}
		if event.Kind == enums.EventKindOverdue {
			eventType = enums.EventPaymentOverdue
			data = payloads.PaymentOverdueEvent{
				LeadID:            decision.Lead.ID,
				PaymentID:         payment.ID,
				Provider:          event.Provider,
				ProviderPaymentID: event.ProviderPaymentID,
				AmountCents:       payment.AmountCents,
			}
		}
		domain = outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         actor,
			OccurredAt:    event.OccurredAt,
			Data:          data,
		}
	case enums.PaymentStatusRefunded:
		domain = outbox.DomainEvent{
			EventType:     enums.EventPaymentRefunded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         actor,
			OccurredAt:    event.OccurredAt,
			Data: payloads.PaymentRefundedEvent{
				LeadID:            decision.Lead.ID,
				PaymentID:         payment.ID,
				Provider:          event.Provider,
				ProviderPaymentID: event.ProviderPaymentID,
				AmountCents:       payment.AmountCents,
				RefundedAt:        event.OccurredAt,
			},
		}
	case enums.PaymentStatusPending:
		// created events only insert the pending row; nothing to announce
		domain = outbox.DomainEvent{}
	}

	if domain.EventType != "" {
		if err := g.outbox.Emit(ctx, tx, domain); err != nil {
			return err
		}
	}

	if decision.LeadStatus != nil {
		return g.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLeadStatusChanged,
			AggregateType: enums.AggregateLead,
			AggregateID:   decision.Lead.ID,
			Actor:         actor,
			OccurredAt:    event.OccurredAt,
			Data: payloads.LeadStatusChangedEvent{
				LeadID:    decision.Lead.ID,
				OldStatus: decision.Lead.Status,
				NewStatus: *decision.LeadStatus,
				ChangedBy: fmt.Sprintf("system:%s", event.Provider),
			},
		})
	}
	return nil
}
