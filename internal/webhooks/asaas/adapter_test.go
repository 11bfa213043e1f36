package asaaswebhook

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
	pkgerrors "github.com/brunotavares/sorrisodigital-backend/pkg/errors"
)

const testToken = "asaas-webhook-token"

func TestAdapterVerifyToken(t *testing.T) {
	adapter, err := NewAdapter(testToken)
	if err != nil {
		t.Fatalf("NewAdapter error: %v", err)
	}

	if err := adapter.VerifyToken(testToken); err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	if err := adapter.VerifyToken("wrong"); pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := adapter.VerifyToken(""); pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for empty header, got %v", err)
	}
}

func TestAdapterNormalizeConfirmed(t *testing.T) {
	adapter, _ := NewAdapter(testToken)
	leadID := uuid.New()

	payload := fmt.Sprintf(`{
		"id": "evt_asaas_1",
		"event": "PAYMENT_CONFIRMED",
		"dateCreated": "2026-03-10 09:30:00",
		"payment": {
			"id": "pay_000123",
			"value": 497.00,
			"externalReference": "%s",
			"billingType": "PIX"
		}
	}`, leadID)

	event, err := adapter.Normalize([]byte(payload))
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if event.Kind != enums.EventKindConfirmed {
		t.Fatalf("expected confirmed, got %s", event.Kind)
	}
	if event.AmountCents != 49700 {
		t.Fatalf("497.00 reais must become 49700 cents, got %d", event.AmountCents)
	}
	if event.EventID != "evt_asaas_1" || event.ProviderPaymentID != "pay_000123" {
		t.Fatalf("identifiers lost: %+v", event)
	}
	if got, ok := event.LeadID(); !ok || got != leadID {
		t.Fatalf("external reference lost: %v %v", got, ok)
	}
	want := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	if !event.OccurredAt.Equal(want) {
		t.Fatalf("occurred-at mismatch: %s", event.OccurredAt)
	}
}

func TestAdapterNormalizeEventMapping(t *testing.T) {
	adapter, _ := NewAdapter(testToken)

	tests := []struct {
		event string
		want  enums.PaymentEventKind
	}{
		{"PAYMENT_CREATED", enums.EventKindCreated},
		{"PAYMENT_RECEIVED", enums.EventKindConfirmed},
		{"PAYMENT_OVERDUE", enums.EventKindOverdue},
		{"PAYMENT_REFUNDED", enums.EventKindRefunded},
		{"PAYMENT_ANTICIPATED", enums.EventKindIgnored},
	}
	for _, tc := range tests {
		t.Run(tc.event, func(t *testing.T) {
			payload := fmt.Sprintf(`{"id":"evt_1","event":"%s","payment":{"id":"pay_1","value":10}}`, tc.event)
			got, err := adapter.Normalize([]byte(payload))
			if err != nil {
				t.Fatalf("Normalize error: %v", err)
			}
			if got.Kind != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got.Kind)
			}
		})
	}
}

func TestAdapterNormalizeFallbackEventID(t *testing.T) {
	adapter, _ := NewAdapter(testToken)

	payload := `{"event":"PAYMENT_CREATED","payment":{"id":"pay_9","value":10}}`
	event, err := adapter.Normalize([]byte(payload))
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if event.EventID != "PAYMENT_CREATED:pay_9" {
		t.Fatalf("expected composite event id, got %q", event.EventID)
	}
}

func TestAdapterNormalizeRejectsGarbage(t *testing.T) {
	adapter, _ := NewAdapter(testToken)

	cases := []string{
		`not json`,
		`{"event":"","payment":{"id":"pay_1"}}`,
		`{"event":"PAYMENT_CREATED","payment":{"id":""}}`,
		`{"event":"PAYMENT_CREATED","payment":{"id":"pay_1","value":10.001}}`,
	}
	for _, payload := range cases {
		if _, err := adapter.Normalize([]byte(payload)); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for %q, got %v", payload, err)
		}
	}
}
