package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brunotavares/sorrisodigital-backend/pkg/migrate"
)

func TestPaymentsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_payments.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no payments migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS payments",
		"FOREIGN KEY (lead_id) REFERENCES leads(id) ON DELETE CASCADE",
		"CHECK (amount_cents >= 0)",
		"ux_payments_provider_payment",
		"DROP TABLE IF EXISTS payments",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestWebhookEventsMigrationHasUniqueClaimIndex(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_webhook_events.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no webhook events migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_webhook_events_provider_event",
		"ON webhook_events (provider, event_id)",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}
