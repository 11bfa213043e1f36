package reconcile

import (
	"fmt"

	"github.com/brunotavares/sorrisodigital-backend/pkg/db/models"
	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
)

// Action tells the gateway which rows a decision touches.
type Action string

const (
	ActionNone          Action = "none"
	ActionInsertPayment Action = "insert_payment"
	ActionUpdatePayment Action = "update_payment"
)

// Decision is the outcome of running one normalized event against current
// state. It is a pure value; nothing is persisted until the gateway commits
// it.
type Decision struct {
	Outcome enums.WebhookOutcome
	Action  Action
	Reason  string

	// Populated for ActionInsertPayment and ActionUpdatePayment.
	PaymentStatus enums.PaymentStatus
	FailureReason string

	// Non-nil when the lead moves as part of the commit.
	LeadStatus *enums.LeadStatus

	Event   PaymentEvent
	Lead    *models.Lead
	Payment *models.Payment
}

// Applies reports whether the gateway has anything to commit.
func (d Decision) Applies() bool {
	return d.Outcome == enums.OutcomeApplied
}

func noop(outcome enums.WebhookOutcome, reason string, event PaymentEvent, lead *models.Lead, payment *models.Payment) Decision {
	return Decision{
		Outcome: outcome,
		Action:  ActionNone,
		Reason:  reason,
		Event:   event,
		Lead:    lead,
		Payment: payment,
	}
}

// Decide maps (current lead, current payment, incoming event) to a decision.
// Preconditions that do not hold produce rejected or converged no-ops, never
// errors; only the gateway can fail, and only on infrastructure faults.
//
// Out-of-order deliveries are resolved by the provider occurred-at timestamp:
// an event older than the payment's last applied event is a stale no-op.
func Decide(lead *models.Lead, payment *models.Payment, event PaymentEvent) Decision {
	if event.Kind == enums.EventKindIgnored || !event.Kind.IsValid() {
		return noop(enums.OutcomeIgnored, "unrecognized provider event type", event, lead, payment)
	}
	if lead == nil {
		return noop(enums.OutcomeOrphaned, "no lead matches the external reference", event, nil, payment)
	}
	if payment != nil && payment.LastEventAt != nil && event.OccurredAt.Before(*payment.LastEventAt) {
		return noop(enums.OutcomeStale, "event predates the payment's last applied event", event, lead, payment)
	}

	switch event.Kind {
	case enums.EventKindCreated:
		if payment != nil {
			return noop(enums.OutcomeDuplicate, "payment already exists for this provider payment id", event, lead, payment)
		}
		return Decision{
			Outcome:       enums.OutcomeApplied,
			Action:        ActionInsertPayment,
			PaymentStatus: enums.PaymentStatusPending,
			Event:         event,
			Lead:          lead,
		}

	case enums.EventKindConfirmed:
		if payment == nil {
			return noop(enums.OutcomeRejected, "confirmation for a payment that was never created", event, lead, nil)
		}
		if payment.Status == enums.PaymentStatusSucceeded {
			return noop(enums.OutcomeDuplicate, "payment already succeeded", event, lead, payment)
		}
		if payment.Status != enums.PaymentStatusPending {
			return noop(enums.OutcomeRejected, fmt.Sprintf("confirmation on %s payment", payment.Status), event, lead, payment)
		}
		d := Decision{
			Outcome:       enums.OutcomeApplied,
			Action:        ActionUpdatePayment,
			PaymentStatus: enums.PaymentStatusSucceeded,
			Event:         event,
			Lead:          lead,
			Payment:       payment,
		}
		if lead.Status == enums.LeadStatusAguardandoAprovacao {
			target := enums.LeadStatusAprovadoPagamento
			d.LeadStatus = &target
		}
		return d

	case enums.EventKindOverdue, enums.EventKindFailed:
		if payment == nil {
			return noop(enums.OutcomeRejected, "failure event for a payment that was never created", event, lead, nil)
		}
		if payment.Status == enums.PaymentStatusFailed {
			return noop(enums.OutcomeDuplicate, "payment already failed", event, lead, payment)
		}
		if payment.Status != enums.PaymentStatusPending {
			return noop(enums.OutcomeRejected, fmt.Sprintf("failure event on %s payment", payment.Status), event, lead, payment)
		}
		reason := event.FailureReason
		if reason == "" && event.Kind == enums.EventKindOverdue {
			reason = "overdue"
		}
		return Decision{
			Outcome:       enums.OutcomeApplied,
			Action:        ActionUpdatePayment,
			PaymentStatus: enums.PaymentStatusFailed,
			FailureReason: reason,
			Event:         event,
			Lead:          lead,
			Payment:       payment,
		}

	case enums.EventKindRefunded:
		if payment == nil {
			return noop(enums.OutcomeRejected, "refund for a payment that was never created", event, lead, nil)
		}
		if payment.Status == enums.PaymentStatusRefunded {
			return noop(enums.OutcomeDuplicate, "payment already refunded", event, lead, payment)
		}
		// A refund on a still-pending payment happens when the refund
		// delivery beats the confirmation. It is applied directly; the late
		// confirmation then lands as stale against the newer occurred-at.
		if payment.Status != enums.PaymentStatusSucceeded && payment.Status != enums.PaymentStatusPending {
			return noop(enums.OutcomeRejected, fmt.Sprintf("refund on %s payment", payment.Status), event, lead, payment)
		}
		d := Decision{
			Outcome:       enums.OutcomeApplied,
			Action:        ActionUpdatePayment,
			PaymentStatus: enums.PaymentStatusRefunded,
			Event:         event,
			Lead:          lead,
			Payment:       payment,
		}
		if lead.Status != enums.LeadStatusAguardandoAprovacao {
			target := enums.LeadStatusAguardandoAprovacao
			d.LeadStatus = &target
		}
		return d
	}

	return noop(enums.OutcomeIgnored, "unhandled event kind", event, lead, payment)
}
