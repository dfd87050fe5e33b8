package logger

import (
	"context"
	"testing"

	obscontext "github.com/smallbiznis/pulseboard/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAddsCorrelationFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-9")
	ctx = obscontext.WithUserID(ctx, "user-a")
	WithContext(ctx, base).Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-9" {
		t.Fatalf("expected request_id, got %v", fields["request_id"])
	}
	if fields["user_id"] != "user-a" {
		t.Fatalf("expected user_id, got %v", fields["user_id"])
	}
}

func TestOperationAndTableFromSQL(t *testing.T) {
	cases := []struct {
		sql, op string
	}{
		{`SELECT * FROM "daily_metrics" WHERE user_id = $1`, "SELECT"},
		{"INSERT INTO daily_metrics (id) VALUES (1)", "INSERT"},
		{"WITH x AS (SELECT 1) DELETE FROM daily_metrics", "SELECT"},
		{"", "UNKNOWN"},
	}
	for _, tc := range cases {
		if got := operationFromSQL(tc.sql); got != tc.op {
			t.Fatalf("operationFromSQL(%q) = %q, want %q", tc.sql, got, tc.op)
		}
	}
	if got := tableFromSQL(cases[0].sql); got != "daily_metrics" {
		t.Fatalf("expected daily_metrics, got %q", got)
	}
	if got := tableFromSQL(cases[1].sql); got != "daily_metrics" {
		t.Fatalf("expected daily_metrics, got %q", got)
	}
}

func TestWithContextOmitsAbsentFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	WithContext(context.Background(), zap.New(core)).Info("bare")

	fields := logs.All()[0].ContextMap()
	if _, ok := fields["request_id"]; ok {
		t.Fatalf("request_id should be omitted, got %v", fields)
	}
	if _, ok := fields["trace_id"]; ok {
		t.Fatalf("trace_id should be omitted without a span, got %v", fields)
	}
}

func TestAccessLevel(t *testing.T) {
	cases := []struct {
		route     string
		status    int
		errorType string
		want      zapcore.Level
	}{
		{"/health", 200, "", zapcore.DebugLevel},
		{"/api/analytics/aggregate", 200, "", zapcore.InfoLevel},
		{"/api/analytics/forecast", 500, "internal", zapcore.ErrorLevel},
		{"/api/daily-metrics", 400, ErrorTypeValidation, zapcore.DebugLevel},
		{"/api/analytics/aggregate", 400, ErrorTypeValidation, zapcore.InfoLevel},
	}
	for _, tc := range cases {
		if got := accessLevel(tc.route, tc.status, tc.errorType); got != tc.want {
			t.Fatalf("accessLevel(%q, %d, %q) = %v, want %v", tc.route, tc.status, tc.errorType, got, tc.want)
		}
	}
}
