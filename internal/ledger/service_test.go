package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS webhook_events (
  id TEXT PRIMARY KEY,
  provider TEXT NOT NULL,
  event_id TEXT NOT NULL,
  outcome TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_webhook_events_provider_event
  ON webhook_events (provider, event_id);`
	if err := gdb.Exec(schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		gdb.Exec("DELETE FROM webhook_events")
	})
	return gdb
}

func newLedgerService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(setupLedgerTestDB(t)))
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_TryClaim(t *testing.T) {
	svc := newLedgerService(t)
	ctx := context.Background()

	claim, claimed, err := svc.TryClaim(ctx, enums.ProviderStripe, "evt_claim_1")
	if err != nil {
		t.Fatalf("TryClaim error: %v", err)
	}
	if !claimed {
		t.Fatal("first delivery should win the claim")
	}
	if claim == nil || claim.ID == uuid.Nil {
		t.Fatalf("expected persisted claim, got %+v", claim)
	}

	dup, claimed, err := svc.TryClaim(ctx, enums.ProviderStripe, "evt_claim_1")
	if err != nil {
		t.Fatalf("duplicate TryClaim error: %v", err)
	}
	if claimed || dup != nil {
		t.Fatalf("duplicate delivery must not win the claim: claimed=%v claim=%+v", claimed, dup)
	}
}

func TestService_TryClaimDistinctProviders(t *testing.T) {
	svc := newLedgerService(t)
	ctx := context.Background()

	if _, claimed, err := svc.TryClaim(ctx, enums.ProviderStripe, "evt_shared_id"); err != nil || !claimed {
		t.Fatalf("stripe claim failed: claimed=%v err=%v", claimed, err)
	}
	// Same event id under another provider is a different event.
	if _, claimed, err := svc.TryClaim(ctx, enums.ProviderAsaas, "evt_shared_id"); err != nil || !claimed {
		t.Fatalf("asaas claim failed: claimed=%v err=%v", claimed, err)
	}
}

func TestService_RecordOutcome(t *testing.T) {
	svc := newLedgerService(t)
	ctx := context.Background()

	claim, claimed, err := svc.TryClaim(ctx, enums.ProviderMercadoPago, "evt_outcome_1")
	if err != nil || !claimed {
		t.Fatalf("TryClaim failed: claimed=%v err=%v", claimed, err)
	}

	if err := svc.RecordOutcome(ctx, claim.ID, enums.OutcomeApplied); err != nil {
		t.Fatalf("RecordOutcome error: %v", err)
	}

	stored, err := svc.Lookup(ctx, enums.ProviderMercadoPago, "evt_outcome_1")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if stored.Outcome == nil || *stored.Outcome != enums.OutcomeApplied {
		t.Fatalf("expected applied outcome, got %+v", stored.Outcome)
	}

	if err := svc.RecordOutcome(ctx, claim.ID, enums.WebhookOutcome("bogus")); err == nil {
		t.Fatal("expected invalid outcome to be rejected")
	}
}

func TestService_ReleaseAllowsReclaim(t *testing.T) {
	svc := newLedgerService(t)
	ctx := context.Background()

	claim, claimed, err := svc.TryClaim(ctx, enums.ProviderAsaas, "evt_release_1")
	if err != nil || !claimed {
		t.Fatalf("TryClaim failed: claimed=%v err=%v", claimed, err)
	}

	if err := svc.Release(ctx, claim.ID); err != nil {
		t.Fatalf("Release error: %v", err)
	}

	// After release a provider redelivery claims the event again.
	if _, claimed, err := svc.TryClaim(ctx, enums.ProviderAsaas, "evt_release_1"); err != nil || !claimed {
		t.Fatalf("redelivery should reclaim after release: claimed=%v err=%v", claimed, err)
	}
}

func TestService_Validation(t *testing.T) {
	svc := newLedgerService(t)
	ctx := context.Background()

	if _, _, err := svc.TryClaim(ctx, enums.PaymentProvider("paypal"), "evt_1"); err == nil {
		t.Fatal("expected unknown provider to be rejected")
	}
	if _, _, err := svc.TryClaim(ctx, enums.ProviderStripe, ""); err == nil {
		t.Fatal("expected empty event id to be rejected")
	}
	if err := svc.RecordOutcome(ctx, uuid.Nil, enums.OutcomeApplied); err == nil {
		t.Fatal("expected nil claim id to be rejected")
	}
	if _, err := svc.Lookup(ctx, enums.ProviderStripe, "evt_missing"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record-not-found for unknown event, got %v", err)
	}
}
