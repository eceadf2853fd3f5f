package audit

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"formgate.org/internal/auth"
	"formgate.org/internal/obs"
)

func TestLogEvent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := obs.SetLogger(zap.New(core))
	defer restore()

	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-123")
	ctx = auth.ContextWithPrincipal(ctx, auth.Principal{Username: "admin", Method: auth.MethodSession})

	if err := LogEvent(ctx, "admin.login", map[string]any{"foo": "bar"}); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["type"] != "audit" {
		t.Fatalf("unexpected type: %v", fields["type"])
	}
	if fields["event"] != "admin.login" {
		t.Fatalf("unexpected event: %v", fields["event"])
	}
	if fields["request_id"] != "req-123" {
		t.Fatalf("unexpected request id: %v", fields["request_id"])
	}
	if fields["admin"] != "admin" || fields["auth_method"] != auth.MethodSession {
		t.Fatalf("unexpected admin fields: %v", fields)
	}
	extra, ok := fields["fields"].(map[string]any)
	if !ok || extra["foo"] != "bar" {
		t.Fatalf("fields missing or incorrect: %v", fields["fields"])
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for empty event name")
	}
}

func TestLogEventWithoutContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := obs.SetLogger(zap.New(core))
	defer restore()

	if err := LogEvent(context.Background(), "admin.logout", nil); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}
	fields := logs.All()[0].ContextMap()
	if _, ok := fields["request_id"]; ok {
		t.Fatal("unexpected request id")
	}
	if _, ok := fields["admin"]; ok {
		t.Fatal("unexpected admin")
	}
}
