package enums

import "fmt"

// PaymentEventKind is the normalized classification of a provider webhook
// notification. Unrecognized provider event types map to Ignored rather than
// failing the delivery.
type PaymentEventKind string

const (
	EventKindCreated   PaymentEventKind = "created"
	EventKindConfirmed PaymentEventKind = "confirmed"
	EventKindOverdue   PaymentEventKind = "overdue"
	EventKindFailed    PaymentEventKind = "failed"
	EventKindRefunded  PaymentEventKind = "refunded"
	EventKindIgnored   PaymentEventKind = "ignored"
)

var validPaymentEventKinds = []PaymentEventKind{
	EventKindCreated,
	EventKindConfirmed,
	EventKindOverdue,
	EventKindFailed,
	EventKindRefunded,
	EventKindIgnored,
}

// String implements fmt.Stringer.
func (k PaymentEventKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known PaymentEventKind.
func (k PaymentEventKind) IsValid() bool {
	for _, candidate := range validPaymentEventKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParsePaymentEventKind converts raw input into a PaymentEventKind.
func ParsePaymentEventKind(value string) (PaymentEventKind, error) {
	for _, candidate := range validPaymentEventKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment event kind %q", value)
}
