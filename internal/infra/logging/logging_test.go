//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"vpn-billing/internal/config"
)

func TestWith_AttachesContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(config.LogConfig{Level: "debug", Format: "json"}, false, &buf)

	ctx := WithTraceID(context.Background(), "tr-1")
	ctx = WithUserID(ctx, "user-1")
	ctx = WithOrderID(ctx, "ord-1")
	ctx = WithProvider(ctx, "cryptobot")

	With(ctx, base).Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not json: %v (%s)", err, buf.String())
	}
	for k, want := range map[string]string{"trace_id": "tr-1", "user_id": "user-1", "order_id": "ord-1", "provider": "cryptobot"} {
		if line[k] != want {
			t.Errorf("expected %s=%s, got %v", k, want, line[k])
		}
	}
	if TraceID(ctx) != "tr-1" || UserID(ctx) != "user-1" {
		t.Error("context accessors returned wrong values")
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(config.LogConfig{Level: "warn", Format: "json"}, false, &buf)
	l.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %s", buf.String())
	}
	l.Warn().Msg("kept")
	if buf.Len() == 0 {
		t.Fatal("expected warn to be written")
	}
}

func TestRedact(t *testing.T) {
	if Redact("short", false) != "***" {
		t.Error("short secrets must be fully masked")
	}
	if got := Redact("0123456789abcdef", false); got != "0123...ef" {
		t.Errorf("unexpected redaction %q", got)
	}
	if Redact("visible", true) != "visible" {
		t.Error("dev mode must not redact")
	}
}
