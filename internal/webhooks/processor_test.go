package webhooks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brunotavares/sorrisodigital-backend/internal/ledger"
	"github.com/brunotavares/sorrisodigital-backend/internal/orphans"
	"github.com/brunotavares/sorrisodigital-backend/internal/reconcile"
	"github.com/brunotavares/sorrisodigital-backend/pkg/db/models"
	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
	"github.com/brunotavares/sorrisodigital-backend/pkg/outbox"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupProcessorTestDB(t *testing.T) *gorm.DB {
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
  ON webhook_events (provider, event_id);
CREATE TABLE IF NOT EXISTS leads (
  id TEXT PRIMARY KEY,
  clinic_name TEXT NOT NULL DEFAULT '',
  responsible_name TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  whatsapp TEXT NOT NULL DEFAULT '',
  city TEXT,
  plan TEXT,
  briefing TEXT,
  status TEXT NOT NULL DEFAULT 'novo',
  total_cents INTEGER NOT NULL DEFAULT 0,
  version INTEGER NOT NULL DEFAULT 1,
  approved_at DATETIME,
  paid_at DATETIME,
  published_at DATETIME,
  archived INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  lead_id TEXT NOT NULL,
  provider TEXT NOT NULL,
  provider_payment_id TEXT NOT NULL,
  type TEXT NOT NULL DEFAULT 'total',
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'brl',
  status TEXT NOT NULL DEFAULT 'pending',
  failure_reason TEXT,
  last_event_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_payments_provider_payment
  ON payments (provider, provider_payment_id);
CREATE TABLE IF NOT EXISTS lead_status_history (
  id TEXT PRIMARY KEY,
  lead_id TEXT NOT NULL,
  old_status TEXT NOT NULL,
  new_status TEXT NOT NULL,
  changed_by TEXT NOT NULL,
  note TEXT,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS orphan_events (
  id TEXT PRIMARY KEY,
  provider TEXT NOT NULL,
  event_id TEXT NOT NULL,
  provider_payment_id TEXT,
  external_reference TEXT,
  reason TEXT NOT NULL,
  payload TEXT,
  resolved_at DATETIME,
  resolved_by TEXT,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	if err := gdb.Exec(schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		for _, table := range []string{"outbox_events", "orphan_events", "lead_status_history", "payments", "leads", "webhook_events"} {
			gdb.Exec("DELETE FROM " + table)
		}
	})
	return gdb
}

func newTestProcessor(t *testing.T) (*Processor, *gorm.DB) {
	t.Helper()
	gdb := setupProcessorTestDB(t)

	outboxSvc := outbox.NewService(outbox.NewRepository(gdb), nil)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(gdb))
	if err != nil {
		t.Fatalf("ledger service: %v", err)
	}
	gateway, err := reconcile.NewGateway(reconcile.GatewayParams{DB: gdb, Outbox: outboxSvc})
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	orphanSvc, err := orphans.NewService(orphans.ServiceParams{
		Repo:              orphans.NewRepository(gdb),
		Outbox:            outboxSvc,
		TransactionRunner: gormTxRunner{db: gdb},
	})
	if err != nil {
		t.Fatalf("orphan service: %v", err)
	}

	processor, err := NewProcessor(ProcessorParams{
		Ledger:  ledgerSvc,
		Gateway: gateway,
		Orphans: orphanSvc,
	})
	if err != nil {
		t.Fatalf("processor: %v", err)
	}
	return processor, gdb
}

func seedProcessorLead(t *testing.T, gdb *gorm.DB) *models.Lead {
	t.Helper()
	lead := &models.Lead{
		ID:              uuid.New(),
		ClinicName:      "Odonto Prime",
		ResponsibleName: "Dr. Caio",
		Email:           "caio@odontoprime.dev",
		Whatsapp:        "+5511988887777",
		Status:          enums.LeadStatusAguardandoAprovacao,
		TotalCents:      49700,
		Version:         1,
	}
	if err := gdb.Create(lead).Error; err != nil {
		t.Fatalf("seed lead: %v", err)
	}
	return lead
}

func processorEvent(lead *models.Lead, kind enums.PaymentEventKind, eventID string) reconcile.PaymentEvent {
	ref := ""
	if lead != nil {
		ref = lead.ID.String()
	}
	return reconcile.PaymentEvent{
		Provider:          enums.ProviderAsaas,
		EventID:           eventID,
		ProviderPaymentID: "pay_proc_1",
		ExternalReference: ref,
		Kind:              kind,
		AmountCents:       49700,
		Currency:          "brl",
		OccurredAt:        time.Now().UTC(),
	}
}

func TestProcessorAppliesLifecycle(t *testing.T) {
	processor, gdb := newTestProcessor(t)
	ctx := context.Background()
	lead := seedProcessorLead(t, gdb)

	outcome, err := processor.Process(ctx, processorEvent(lead, enums.EventKindCreated, "evt_p_created"))
	if err != nil {
		t.Fatalf("process created: %v", err)
	}
	if outcome != enums.OutcomeApplied {
		t.Fatalf("expected applied, got %s", outcome)
	}

	outcome, err = processor.Process(ctx, processorEvent(lead, enums.EventKindConfirmed, "evt_p_confirmed"))
	if err != nil {
		t.Fatalf("process confirmed: %v", err)
	}
	if outcome != enums.OutcomeApplied {
		t.Fatalf("expected applied, got %s", outcome)
	}

	var storedLead models.Lead
	if err := gdb.First(&storedLead, "id = ?", lead.ID).Error; err != nil {
		t.Fatalf("reload lead: %v", err)
	}
	if storedLead.Status != enums.LeadStatusAprovadoPagamento {
		t.Fatalf("expected aprovado_pagamento, got %s", storedLead.Status)
	}

	var claim models.WebhookEvent
	if err := gdb.First(&claim, "event_id = ?", "evt_p_confirmed").Error; err != nil {
		t.Fatalf("load claim: %v", err)
	}
	if claim.Outcome == nil || *claim.Outcome != enums.OutcomeApplied {
		t.Fatalf("expected applied outcome on claim, got %+v", claim.Outcome)
	}
}

func TestProcessorDeduplicatesRedelivery(t *testing.T) {
	processor, gdb := newTestProcessor(t)
	ctx := context.Background()
	lead := seedProcessorLead(t, gdb)

	if _, err := processor.Process(ctx, processorEvent(lead, enums.EventKindCreated, "evt_p_dup")); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	outcome, err := processor.Process(ctx, processorEvent(lead, enums.EventKindCreated, "evt_p_dup"))
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if outcome != enums.OutcomeDuplicate {
		t.Fatalf("expected duplicate, got %s", outcome)
	}

	var paymentCount int64
	gdb.Model(&models.Payment{}).Count(&paymentCount)
	if paymentCount != 1 {
		t.Fatalf("redelivery must not insert a second payment, got %d", paymentCount)
	}
}

func TestProcessorParksOrphan(t *testing.T) {
	processor, gdb := newTestProcessor(t)
	ctx := context.Background()

	event := processorEvent(nil, enums.EventKindConfirmed, "evt_p_orphan")
	event.ExternalReference = uuid.NewString()

	outcome, err := processor.Process(ctx, event)
	if err != nil {
		t.Fatalf("process orphan: %v", err)
	}
	if outcome != enums.OutcomeOrphaned {
		t.Fatalf("expected orphaned, got %s", outcome)
	}

	var orphanRow models.OrphanEvent
	if err := gdb.First(&orphanRow, "event_id = ?", "evt_p_orphan").Error; err != nil {
		t.Fatalf("expected orphan row: %v", err)
	}
	if orphanRow.ResolvedAt != nil {
		t.Fatal("orphan must start unresolved")
	}
}

func TestProcessorRejectsImpossibleTransition(t *testing.T) {
	processor, gdb := newTestProcessor(t)
	ctx := context.Background()
	lead := seedProcessorLead(t, gdb)

	// A confirmation for a payment that was never created.
	outcome, err := processor.Process(ctx, processorEvent(lead, enums.EventKindConfirmed, "evt_p_reject"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if outcome != enums.OutcomeRejected {
		t.Fatalf("expected rejected, got %s", outcome)
	}

	var storedLead models.Lead
	if err := gdb.First(&storedLead, "id = ?", lead.ID).Error; err != nil {
		t.Fatalf("reload lead: %v", err)
	}
	if storedLead.Status != enums.LeadStatusAguardandoAprovacao || storedLead.Version != 1 {
		t.Fatalf("rejection must not mutate the lead: %+v", storedLead)
	}
}

type fakeGuardStore struct {
	data map[string]string
}

func newFakeGuardStore() *fakeGuardStore {
	return &fakeGuardStore{data: map[string]string{}}
}

func (f *fakeGuardStore) Get(_ context.Context, key string) (string, error) {
	return f.data[key], nil
}

func (f *fakeGuardStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeGuardStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (f *fakeGuardStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func newTestProcessorWithGuard(t *testing.T, store *fakeGuardStore) (*Processor, *gorm.DB) {
	t.Helper()
	processor, gdb := newTestProcessor(t)
	guard, err := NewIdempotencyGuard(store, time.Hour, "payment-webhooks")
	if err != nil {
		t.Fatalf("guard: %v", err)
	}
	processor.guard = guard
	return processor, gdb
}

func TestProcessorGuardKeysPerProvider(t *testing.T) {
	processor, gdb := newTestProcessorWithGuard(t, newFakeGuardStore())
	ctx := context.Background()
	lead := seedProcessorLead(t, gdb)

	asaas := processorEvent(lead, enums.EventKindCreated, "shared-id-1")
	outcome, err := processor.Process(ctx, asaas)
	if err != nil {
		t.Fatalf("asaas delivery: %v", err)
	}
	if outcome != enums.OutcomeApplied {
		t.Fatalf("expected applied, got %s", outcome)
	}

	// Same event id from a different provider is a distinct event.
	stripe := processorEvent(lead, enums.EventKindCreated, "shared-id-1")
	stripe.Provider = enums.ProviderStripe
	stripe.ProviderPaymentID = "pi_shared_1"
	outcome, err = processor.Process(ctx, stripe)
	if err != nil {
		t.Fatalf("stripe delivery: %v", err)
	}
	if outcome != enums.OutcomeApplied {
		t.Fatalf("expected applied for second provider, got %s", outcome)
	}

	var paymentCount int64
	gdb.Model(&models.Payment{}).Count(&paymentCount)
	if paymentCount != 2 {
		t.Fatalf("expected one payment per provider, got %d", paymentCount)
	}
}

func TestProcessorStaleGuardMarkStillProcesses(t *testing.T) {
	store := newFakeGuardStore()
	processor, gdb := newTestProcessorWithGuard(t, store)
	ctx := context.Background()
	lead := seedProcessorLead(t, gdb)

	// A mark with no ledger row behind it, as after a Redis flush mid-failure.
	key := store.IdempotencyKey("payment-webhooks", enums.ProviderAsaas.String()+":evt_p_stale_mark")
	store.data[key] = "1"

	outcome, err := processor.Process(ctx, processorEvent(lead, enums.EventKindCreated, "evt_p_stale_mark"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if outcome != enums.OutcomeApplied {
		t.Fatalf("a guard mark without a ledger claim must not ack, got %s", outcome)
	}

	var claim models.WebhookEvent
	if err := gdb.First(&claim, "event_id = ?", "evt_p_stale_mark").Error; err != nil {
		t.Fatalf("expected ledger claim: %v", err)
	}
}

func TestProcessorGuardHitConfirmedByLedger(t *testing.T) {
	processor, gdb := newTestProcessorWithGuard(t, newFakeGuardStore())
	ctx := context.Background()
	lead := seedProcessorLead(t, gdb)

	if _, err := processor.Process(ctx, processorEvent(lead, enums.EventKindCreated, "evt_p_guard_dup")); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	outcome, err := processor.Process(ctx, processorEvent(lead, enums.EventKindCreated, "evt_p_guard_dup"))
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if outcome != enums.OutcomeDuplicate {
		t.Fatalf("expected duplicate, got %s", outcome)
	}

	var paymentCount int64
	gdb.Model(&models.Payment{}).Count(&paymentCount)
	if paymentCount != 1 {
		t.Fatalf("redelivery must not insert a second payment, got %d", paymentCount)
	}
}
