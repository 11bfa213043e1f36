package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := context.Background()
	ctx = log.WithRequestID(ctx, "req-123")
	ctx = log.WithProvider(ctx, "asaas")

	log.Error(ctx, "boom", errors.New("boom"))

	if !bytes.Contains(buf.Bytes(), []byte(`"request_id"`)) {
		t.Fatalf("expected request_id to be preserved; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"provider"`)) {
		t.Fatalf("expected provider to be preserved; entry=%s", buf.String())
	}
}

func TestLoggerFieldsDoNotLeakAcrossContexts(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	scoped := log.WithLeadID(context.Background(), "lead-1")
	_ = scoped

	log.Info(context.Background(), "plain entry")
	if bytes.Contains(buf.Bytes(), []byte("lead-1")) {
		t.Fatalf("lead id leaked into unscoped context; entry=%s", buf.String())
	}
}
