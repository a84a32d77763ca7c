package logger

import (
	"context"
	"testing"
)

func TestContextLoggerRoundTrip(t *testing.T) {
	l, _ := captureLogger(t, "info")

	ctx := WithLogger(context.Background(), l)
	if got := FromContext(ctx); got != l {
		t.Error("FromContext should return the logger stored with WithLogger")
	}
}

func TestFromContextFallback(t *testing.T) {
	if got := FromContext(context.Background()); got != Default() {
		t.Error("FromContext on a bare context should fall back to Default()")
	}
}

func TestIDRoundTrips(t *testing.T) {
	ctx := context.Background()
	if RequestIDFromContext(ctx) != "" || ConnIDFromContext(ctx) != "" {
		t.Error("bare context should carry no IDs")
	}

	ctx = WithRequestID(ctx, "req-123")
	ctx = WithConnID(ctx, "01HCONN")
	if got := RequestIDFromContext(ctx); got != "req-123" {
		t.Errorf("request ID = %q, want req-123", got)
	}
	if got := ConnIDFromContext(ctx); got != "01HCONN" {
		t.Errorf("conn ID = %q, want 01HCONN", got)
	}
}

func TestLAddsCarriedIDs(t *testing.T) {
	l, buf := captureLogger(t, "info")

	ctx := WithLogger(context.Background(), l)
	ctx = WithRequestID(ctx, "req-9")
	ctx = WithConnID(ctx, "conn-7")
	L(ctx).Info("enriched")

	rec := decodeRecord(t, buf)
	if rec["request_id"] != "req-9" || rec["conn_id"] != "conn-7" {
		t.Errorf("record %v should carry request_id and conn_id", rec)
	}
}

func TestLWithoutIDs(t *testing.T) {
	l, buf := captureLogger(t, "info")

	L(WithLogger(context.Background(), l)).Info("bare")

	rec := decodeRecord(t, buf)
	if _, ok := rec["request_id"]; ok {
		t.Error("request_id should be absent when the context has none")
	}
	if _, ok := rec["conn_id"]; ok {
		t.Error("conn_id should be absent when the context has none")
	}
}
