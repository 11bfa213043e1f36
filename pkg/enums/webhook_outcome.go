package enums

import "fmt"

// WebhookOutcome records how a claimed webhook event ended up.
type WebhookOutcome string

const (
	OutcomeApplied   WebhookOutcome = "applied"
	OutcomeDuplicate WebhookOutcome = "duplicate"
	OutcomeIgnored   WebhookOutcome = "ignored"
	OutcomeStale     WebhookOutcome = "stale"
	OutcomeOrphaned  WebhookOutcome = "orphaned"
	OutcomeRejected  WebhookOutcome = "rejected"
)

var validWebhookOutcomes = []WebhookOutcome{
	OutcomeApplied,
	OutcomeDuplicate,
	OutcomeIgnored,
	OutcomeStale,
	OutcomeOrphaned,
	OutcomeRejected,
}

// String implements fmt.Stringer.
func (o WebhookOutcome) String() string {
	return string(o)
}

// IsValid reports whether the value is a known WebhookOutcome.
func (o WebhookOutcome) IsValid() bool {
	for _, candidate := range validWebhookOutcomes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseWebhookOutcome converts raw input into a WebhookOutcome.
func ParseWebhookOutcome(value string) (WebhookOutcome, error) {
	for _, candidate := range validWebhookOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid webhook outcome %q", value)
}
