package enums

import "fmt"

// OutboxDLQErrorReason classifies why an outbox event went terminal.
type OutboxDLQErrorReason string

const (
	DLQReasonMaxAttempts   OutboxDLQErrorReason = "max_attempts_exceeded"
	DLQReasonUnresolvable  OutboxDLQErrorReason = "unresolvable_event"
	DLQReasonPublishFailed OutboxDLQErrorReason = "publish_failed"
)

var validDLQErrorReasons = []OutboxDLQErrorReason{
	DLQReasonMaxAttempts,
	DLQReasonUnresolvable,
	DLQReasonPublishFailed,
}

// IsValid reports whether the value is a known OutboxDLQErrorReason.
func (r OutboxDLQErrorReason) IsValid() bool {
	for _, candidate := range validDLQErrorReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseOutboxDLQErrorReason converts raw input into OutboxDLQErrorReason.
func ParseOutboxDLQErrorReason(value string) (OutboxDLQErrorReason, error) {
	for _, candidate := range validDLQErrorReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dlq error reason %q", value)
}
