package config

import (
	"testing"
	"time"
)

func TestClampDelegatedTimeout(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want time.Duration
	}{
		{0, 45 * time.Second},
		{5 * time.Second, 30 * time.Second},
		{45 * time.Second, 45 * time.Second},
		{5 * time.Minute, 60 * time.Second},
	}
	for _, tc := range cases {
		if got := ClampDelegatedTimeout(tc.in); got != tc.want {
			t.Fatalf("ClampDelegatedTimeout(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestValidateForecastConfig(t *testing.T) {
	if err := validateForecastConfig(DefaultForecastConfig()); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	cfg := DefaultForecastConfig()
	cfg.DefaultMonthlyPeriods = 13
	if err := validateForecastConfig(cfg); err == nil {
		t.Fatalf("expected error for default periods above max")
	}

	cfg = DefaultForecastConfig()
	cfg.ConfidenceCeiling = 120
	if err := validateForecastConfig(cfg); err == nil {
		t.Fatalf("expected error for ceiling above 100")
	}
}

func TestNilHolderReturnsDefaults(t *testing.T) {
	var holder *ForecastConfigHolder
	if got := holder.Get(); got.ConfidenceCeiling != 95 {
		t.Fatalf("expected default ceiling, got %d", got.ConfidenceCeiling)
	}
}
