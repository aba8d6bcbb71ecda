package kit

import (
	"context"
	"testing"
)

func TestContextRoundTrips(t *testing.T) {
	// WHAT: Context setters and getters round-trip their values.
	// WHY: Handlers rely on these for actor attribution in audit events.
	ctx := context.Background()

	ctx = WithActor(ctx, "reviewer-1")
	if got := GetActor(ctx); got != "reviewer-1" {
		t.Errorf("actor: got %q", got)
	}

	ctx = WithRequestID(ctx, "req-42")
	if got := GetRequestID(ctx); got != "req-42" {
		t.Errorf("request id: got %q", got)
	}

	ctx = WithTransport(ctx, "cli")
	if got := GetTransport(ctx); got != "cli" {
		t.Errorf("transport: got %q", got)
	}
}

func TestTransportDefaultsToHTTP(t *testing.T) {
	if got := GetTransport(context.Background()); got != "http" {
		t.Errorf("default transport: got %q, want http", got)
	}
}

func TestGettersOnEmptyContext(t *testing.T) {
	ctx := context.Background()
	if GetActor(ctx) != "" || GetRequestID(ctx) != "" {
		t.Error("empty context should yield empty values")
	}
}
