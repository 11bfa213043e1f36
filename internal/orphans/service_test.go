package orphans

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brunotavares/sorrisodigital-backend/pkg/db/models"
	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
	pkgerrors "github.com/brunotavares/sorrisodigital-backend/pkg/errors"
	"github.com/brunotavares/sorrisodigital-backend/pkg/outbox"
)

type sqliteTxRunner struct {
	db *gorm.DB
}

func (r sqliteTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupOrphansTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	schema := `
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
		gdb.Exec("DELETE FROM outbox_events")
		gdb.Exec("DELETE FROM orphan_events")
	})
	return gdb
}

func newOrphansService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	gdb := setupOrphansTestDB(t)
	svc, err := NewService(ServiceParams{
		Repo:              NewRepository(gdb),
		Outbox:            outbox.NewService(outbox.NewRepository(gdb), nil),
		TransactionRunner: sqliteTxRunner{db: gdb},
	})
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	return svc, gdb
}

func TestService_RecordPersistsAndEmits(t *testing.T) {
	svc, gdb := newOrphansService(t)
	ctx := context.Background()

	payload := json.RawMessage(`{"event":"PAYMENT_CONFIRMED","payment":{"id":"pay_1"}}`)
	orphan, err := svc.Record(ctx, RecordInput{
		Provider:          enums.ProviderAsaas,
		EventID:           "evt_orphan_1",
		ProviderPaymentID: "pay_1",
		ExternalReference: "lead-that-does-not-exist",
		Reason:            "no lead matches the external reference",
		Payload:           payload,
	})
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if orphan.ID == uuid.Nil {
		t.Fatal("expected persisted orphan id")
	}

	var stored models.OrphanEvent
	if err := gdb.First(&stored, "id = ?", orphan.ID).Error; err != nil {
		t.Fatalf("reload orphan: %v", err)
	}
	if stored.ExternalReference == nil || *stored.ExternalReference != "lead-that-does-not-exist" {
		t.Fatalf("external reference not stored: %+v", stored.ExternalReference)
	}
	if stored.ResolvedAt != nil {
		t.Fatal("new orphan must be unresolved")
	}

	var outboxRow models.OutboxEvent
	if err := gdb.First(&outboxRow, "aggregate_id = ?", orphan.ID).Error; err != nil {
		t.Fatalf("expected outbox row: %v", err)
	}
	if outboxRow.EventType != enums.EventOrphanRecorded {
		t.Fatalf("expected orphan_event_recorded, got %s", outboxRow.EventType)
	}
}

func TestService_RecordValidation(t *testing.T) {
	svc, _ := newOrphansService(t)
	ctx := context.Background()

	cases := []RecordInput{
		{Provider: enums.PaymentProvider("paypal"), EventID: "evt", Reason: "r"},
		{Provider: enums.ProviderStripe, EventID: "", Reason: "r"},
		{Provider: enums.ProviderStripe, EventID: "evt", Reason: ""},
	}
	for _, input := range cases {
		if _, err := svc.Record(ctx, input); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for %+v, got %v", input, err)
		}
	}
}

func TestService_ListPaginates(t *testing.T) {
	svc, _ := newOrphansService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Record(ctx, RecordInput{
			Provider: enums.ProviderMercadoPago,
			EventID:  "evt_list_" + uuid.NewString()[:8],
			Reason:   "unreviewed",
		}); err != nil {
			t.Fatalf("seed orphan: %v", err)
		}
	}

	page, err := svc.List(ctx, ListParams{Limit: 2})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(page.Orphans) != 2 || page.NextCursor == "" {
		t.Fatalf("expected first page of 2 with cursor, got %d %q", len(page.Orphans), page.NextCursor)
	}

	rest, err := svc.List(ctx, ListParams{Limit: 2, Cursor: page.NextCursor})
	if err != nil {
		t.Fatalf("List second page error: %v", err)
	}
	if len(rest.Orphans) != 1 || rest.NextCursor != "" {
		t.Fatalf("expected final page of 1, got %d %q", len(rest.Orphans), rest.NextCursor)
	}

	if _, err := svc.List(ctx, ListParams{Cursor: "bad"}); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for bad cursor, got %v", err)
	}
}

func TestService_Resolve(t *testing.T) {
	svc, _ := newOrphansService(t)
	ctx := context.Background()
	adminID := uuid.New()

	orphan, err := svc.Record(ctx, RecordInput{
		Provider: enums.ProviderStripe,
		EventID:  "evt_resolve_1",
		Reason:   "no lead matches the external reference",
	})
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}

	resolved, err := svc.Resolve(ctx, orphan.ID, adminID)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if resolved.ResolvedAt == nil || resolved.ResolvedBy == nil || *resolved.ResolvedBy != adminID {
		t.Fatalf("resolution not recorded: %+v", resolved)
	}

	// Resolved orphans leave the default queue.
	page, err := svc.List(ctx, ListParams{})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	for _, row := range page.Orphans {
		if row.ID == orphan.ID {
			t.Fatal("resolved orphan still in unresolved queue")
		}
	}

	if _, err := svc.Resolve(ctx, orphan.ID, adminID); pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on double resolve, got %v", err)
	}
	if _, err := svc.Resolve(ctx, uuid.New(), adminID); pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
