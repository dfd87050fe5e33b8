package context

import (
	"context"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), " req-1 ")
	ctx = WithUserID(ctx, "user-a")
	ctx = WithActor(ctx, "admin", "ops")

	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("expected trimmed request id, got %q", got)
	}
	if got := UserIDFromContext(ctx); got != "user-a" {
		t.Fatalf("expected user-a, got %q", got)
	}
	if typ, id := ActorFromContext(ctx); typ != "admin" || id != "ops" {
		t.Fatalf("unexpected actor %q/%q", typ, id)
	}
}

func TestEmptyContext(t *testing.T) {
	if RequestIDFromContext(context.Background()) != "" || UserIDFromContext(context.Background()) != "" {
		t.Fatalf("expected empty values")
	}
}
