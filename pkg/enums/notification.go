package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeLeadCreated      NotificationType = "lead_created"
	NotificationTypePaymentConfirmed NotificationType = "payment_confirmed"
	NotificationTypePaymentOverdue   NotificationType = "payment_overdue"
	NotificationTypePaymentFailed    NotificationType = "payment_failed"
	NotificationTypePaymentRefunded  NotificationType = "payment_refunded"
	NotificationTypeOrphanEvent      NotificationType = "orphan_event"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeLeadCreated,
	NotificationTypePaymentConfirmed,
	NotificationTypePaymentOverdue,
	NotificationTypePaymentFailed,
	NotificationTypePaymentRefunded,
	NotificationTypeOrphanEvent,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
