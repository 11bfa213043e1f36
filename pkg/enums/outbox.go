package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateLead    OutboxAggregateType = "lead"
	AggregatePayment OutboxAggregateType = "payment"
	AggregateOrphan  OutboxAggregateType = "orphan_event"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateLead,
	AggregatePayment,
	AggregateOrphan,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventLeadCreated       OutboxEventType = "lead_created"
	EventLeadStatusChanged OutboxEventType = "lead_status_changed"
	EventPaymentConfirmed  OutboxEventType = "payment_confirmed"
	EventPaymentOverdue    OutboxEventType = "payment_overdue"
	EventPaymentFailed     OutboxEventType = "payment_failed"
	EventPaymentRefunded   OutboxEventType = "payment_refunded"
	EventOrphanRecorded    OutboxEventType = "orphan_event_recorded"
)

var validOutboxEventTypes = []OutboxEventType{
	EventLeadCreated,
	EventLeadStatusChanged,
	EventPaymentConfirmed,
	EventPaymentOverdue,
	EventPaymentFailed,
	EventPaymentRefunded,
	EventOrphanRecorded,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
