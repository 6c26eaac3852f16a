package ctxutil

import (
	"context"
	"testing"
)

func TestActorOr(t *testing.T) {
	ctx := context.Background()
	if got := ActorOr(ctx, "system"); got != "system" {
		t.Fatalf("fallback: got=%q", got)
	}
	ctx = WithRequestData(ctx, &RequestData{Actor: " trainer@acme "})
	if got := ActorOr(ctx, "system"); got != "trainer@acme" {
		t.Fatalf("actor: got=%q", got)
	}
	if got := ActorOr(WithRequestData(ctx, &RequestData{}), "system"); got != "system" {
		t.Fatalf("empty actor should fall back, got=%q", got)
	}
}
