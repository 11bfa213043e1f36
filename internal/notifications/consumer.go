package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/brunotavares/sorrisodigital-backend/pkg/config"
	"github.com/brunotavares/sorrisodigital-backend/pkg/db/models"
	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
	"github.com/brunotavares/sorrisodigital-backend/pkg/logger"
	"github.com/brunotavares/sorrisodigital-backend/pkg/money"
	"github.com/brunotavares/sorrisodigital-backend/pkg/outbox"
	"github.com/brunotavares/sorrisodigital-backend/pkg/outbox/idempotency"
	"github.com/brunotavares/sorrisodigital-backend/pkg/outbox/payloads"
)

const notifyConsumer = "notify-worker"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer turns published domain events into back-office notifications and
// admin email.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	mailer       Mailer
	cfg          config.NotifyConfig
	logg         *logger.Logger
}

// NewConsumer builds the notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, mailer Mailer, cfg config.NotifyConfig, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		mailer:       mailer,
		cfg:          cfg,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	parsed, err := enums.ParseOutboxEventType(eventType)
	if err != nil {
		c.logg.Info(logCtx, "skipping unknown event type")
		return processResult{ack: true}
	}
	// Admin-driven Kanban moves originate in the back office; nobody needs to
	// be told about their own click.
	if parsed == enums.EventLeadStatusChanged {
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, notifyConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handle(ctx, parsed, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, notifyConsumer, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage, logCtx context.Context) error {
	switch eventType {
	case enums.EventLeadCreated:
		var payload payloads.LeadCreatedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse lead_created payload: %w", err)
		}
		return c.notifyLeadCreated(ctx, payload, logCtx)
	case enums.EventPaymentConfirmed:
		var payload payloads.PaymentConfirmedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse payment_confirmed payload: %w", err)
		}
		return c.notifyPaymentConfirmed(ctx, payload, logCtx)
	case enums.EventPaymentOverdue:
		var payload payloads.PaymentOverdueEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse payment_overdue payload: %w", err)
		}
		return c.record(ctx, &models.Notification{
			Type:    enums.NotificationTypePaymentOverdue,
			Title:   "Pagamento vencido",
			Message: fmt.Sprintf("Cobranca de R$ %s via %s venceu sem pagamento.", money.ToMajorUnits(payload.AmountCents), payload.Provider),
			LeadID:  &payload.LeadID,
		}, logCtx)
	case enums.EventPaymentFailed:
		var payload payloads.PaymentFailedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse payment_failed payload: %w", err)
		}
		message := fmt.Sprintf("Pagamento via %s falhou.", payload.Provider)
		if payload.Reason != "" {
			message = fmt.Sprintf("Pagamento via %s falhou: %s.", payload.Provider, payload.Reason)
		}
		return c.record(ctx, &models.Notification{
			Type:    enums.NotificationTypePaymentFailed,
			Title:   "Pagamento falhou",
			Message: message,
			LeadID:  &payload.LeadID,
		}, logCtx)
	case enums.EventPaymentRefunded:
		var payload payloads.PaymentRefundedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse payment_refunded payload: %w", err)
		}
		return c.record(ctx, &models.Notification{
			Type:    enums.NotificationTypePaymentRefunded,
			Title:   "Pagamento estornado",
			Message: fmt.Sprintf("Estorno de R$ %s via %s. O lead voltou para aguardando aprovacao.", money.ToMajorUnits(payload.AmountCents), payload.Provider),
			LeadID:  &payload.LeadID,
		}, logCtx)
	case enums.EventOrphanRecorded:
		var payload payloads.OrphanEventRecordedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse orphan payload: %w", err)
		}
		return c.notifyOrphan(ctx, payload, logCtx)
	default:
		c.logg.Info(logCtx, "event type not handled")
		return nil
	}
}

func (c *Consumer) notifyLeadCreated(ctx context.Context, payload payloads.LeadCreatedEvent, logCtx context.Context) error {
	notification := &models.Notification{
		Type:    enums.NotificationTypeLeadCreated,
		Title:   "Novo briefing recebido",
		Message: fmt.Sprintf("%s (%s) enviou um briefing pelo site.", payload.ClinicName, payload.Email),
		LeadID:  &payload.LeadID,
	}
	if err := c.record(ctx, notification, logCtx); err != nil {
		return err
	}
	return c.sendAdminEmail(ctx, Email{
		Subject: "Novo briefing: " + payload.ClinicName,
		Body:    notification.Message,
	}, logCtx)
}

func (c *Consumer) notifyPaymentConfirmed(ctx context.Context, payload payloads.PaymentConfirmedEvent, logCtx context.Context) error {
	notification := &models.Notification{
		Type:    enums.NotificationTypePaymentConfirmed,
		Title:   "Pagamento confirmado",
		Message: fmt.Sprintf("Pagamento de R$ %s confirmado via %s. O lead esta pronto para producao.", money.ToMajorUnits(payload.AmountCents), payload.Provider),
		LeadID:  &payload.LeadID,
	}
	if err := c.record(ctx, notification, logCtx); err != nil {
		return err
	}
	return c.sendAdminEmail(ctx, Email{
		Subject: "Pagamento confirmado",
		Body:    notification.Message,
	}, logCtx)
}

func (c *Consumer) notifyOrphan(ctx context.Context, payload payloads.OrphanEventRecordedEvent, logCtx context.Context) error {
	notification := &models.Notification{
		Type:  enums.NotificationTypeOrphanEvent,
		Title: "Evento de pagamento sem lead",
		Message: fmt.Sprintf(
			"Evento %s do provedor %s nao corresponde a nenhum lead (%s). Verifique a fila de orfaos.",
			payload.EventID, payload.Provider, payload.Reason,
		),
	}
	if err := c.record(ctx, notification, logCtx); err != nil {
		return err
	}
	return c.sendAdminEmail(ctx, Email{
		Subject: "Pagamento sem lead correspondente",
		Body:    notification.Message,
	}, logCtx)
}

func (c *Consumer) record(ctx context.Context, notification *models.Notification, logCtx context.Context) error {
	notification.ID = uuid.New()
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "notification recorded")
	return nil
}

func (c *Consumer) sendAdminEmail(ctx context.Context, email Email, logCtx context.Context) error {
	if c.cfg.AdminEmail == "" {
		return nil
	}
	email.To = c.cfg.AdminEmail
	if err := c.mailer.Send(ctx, email); err != nil {
		// Email is best effort; the in-app notification already landed.
		c.logg.Error(logCtx, "admin email failed", err)
	}
	return nil
}
