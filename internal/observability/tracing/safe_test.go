package tracing

import (
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsIdentifiers(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/analytics/forecast"),
		attribute.String("user_id", "u-1"),
		attribute.String("API_KEY", "secret"),
	)
	if len(attrs) != 1 || attrs[0].Key != "http.route" {
		t.Fatalf("unexpected attributes: %v", attrs)
	}
}

func TestSafeErrorTruncates(t *testing.T) {
	if SafeError(nil) != nil {
		t.Fatalf("nil in, nil out")
	}
	err := SafeError(errors.New("first line\nsecond line"))
	if err.Error() != "first line" {
		t.Fatalf("expected first line only, got %q", err.Error())
	}
	long := SafeError(errors.New(strings.Repeat("x", 1000)))
	if len(long.Error()) != 256 {
		t.Fatalf("expected capped length, got %d", len(long.Error()))
	}
}
