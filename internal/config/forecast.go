package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	MinDelegatedTimeout = 30 * time.Second
	MaxDelegatedTimeout = 60 * time.Second
)

// ForecastConfig holds tunables for the forecast engine that can be
// changed without a restart.
type ForecastConfig struct {
	MonthlyTTL   time.Duration `mapstructure:"monthlyTTL"`
	Next7DaysTTL time.Duration `mapstructure:"next7DaysTTL"`
	SnapshotTTL  time.Duration `mapstructure:"snapshotTTL"`

	ConfidenceCeiling     int `mapstructure:"confidenceCeiling"`
	MaxMonthlyPeriods     int `mapstructure:"maxMonthlyPeriods"`
	DefaultMonthlyPeriods int `mapstructure:"defaultMonthlyPeriods"`
	HistoryDays           int `mapstructure:"historyDays"`

	DelegatedTimeout time.Duration `mapstructure:"delegatedTimeout"`
	LockTTL          time.Duration `mapstructure:"lockTTL"`
}

func DefaultForecastConfig() ForecastConfig {
	return ForecastConfig{
		MonthlyTTL:            24 * time.Hour,
		Next7DaysTTL:          6 * time.Hour,
		SnapshotTTL:           30 * time.Second,
		ConfidenceCeiling:     95,
		MaxMonthlyPeriods:     12,
		DefaultMonthlyPeriods: 3,
		HistoryDays:           30,
		DelegatedTimeout:      45 * time.Second,
		LockTTL:               75 * time.Second,
	}
}

// ClampDelegatedTimeout keeps the delegated call bounded to [30s, 60s].
func ClampDelegatedTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultForecastConfig().DelegatedTimeout
	}
	if d < MinDelegatedTimeout {
		return MinDelegatedTimeout
	}
	if d > MaxDelegatedTimeout {
		return MaxDelegatedTimeout
	}
	return d
}

type ForecastConfigHolder struct {
	current atomic.Value // holds ForecastConfig
}

// NewStaticForecastConfigHolder returns a holder that never reloads.
func NewStaticForecastConfigHolder(cfg ForecastConfig) *ForecastConfigHolder {
	holder := &ForecastConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewForecastConfigHolder(app Config) (*ForecastConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("forecast")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/pulseboard")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PULSEBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultForecastConfig()
	if app.Delegated.Timeout > 0 {
		defaults.DelegatedTimeout = app.Delegated.Timeout
	}
	v.SetDefault("forecast.monthlyTTL", defaults.MonthlyTTL)
	v.SetDefault("forecast.next7DaysTTL", defaults.Next7DaysTTL)
	v.SetDefault("forecast.snapshotTTL", defaults.SnapshotTTL)
	v.SetDefault("forecast.confidenceCeiling", defaults.ConfidenceCeiling)
	v.SetDefault("forecast.maxMonthlyPeriods", defaults.MaxMonthlyPeriods)
	v.SetDefault("forecast.defaultMonthlyPeriods", defaults.DefaultMonthlyPeriods)
	v.SetDefault("forecast.historyDays", defaults.HistoryDays)
	v.SetDefault("forecast.delegatedTimeout", defaults.DelegatedTimeout)
	v.SetDefault("forecast.lockTTL", defaults.LockTTL)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := decodeForecastConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticForecastConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeForecastConfig(v)
		if err != nil {
			log.Printf("[forecast-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[forecast-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *ForecastConfigHolder) Get() ForecastConfig {
	if h == nil {
		return DefaultForecastConfig()
	}
	cfg, ok := h.current.Load().(ForecastConfig)
	if !ok {
		return DefaultForecastConfig()
	}
	return cfg
}

func decodeForecastConfig(v *viper.Viper) (ForecastConfig, error) {
	var cfg ForecastConfig
	if err := v.UnmarshalKey("forecast", &cfg); err != nil {
		return ForecastConfig{}, err
	}
	cfg.DelegatedTimeout = ClampDelegatedTimeout(cfg.DelegatedTimeout)
	if err := validateForecastConfig(cfg); err != nil {
		return ForecastConfig{}, err
	}
	return cfg, nil
}

func validateForecastConfig(cfg ForecastConfig) error {
	if cfg.MonthlyTTL <= 0 || cfg.Next7DaysTTL <= 0 || cfg.SnapshotTTL <= 0 {
		return errors.New("forecast TTLs must be positive")
	}
	if cfg.ConfidenceCeiling <= 0 || cfg.ConfidenceCeiling > 100 {
		return fmt.Errorf("forecast.confidenceCeiling must be in (0, 100], got %d", cfg.ConfidenceCeiling)
	}
	if cfg.MaxMonthlyPeriods < 1 {
		return errors.New("forecast.maxMonthlyPeriods must be at least 1")
	}
	if cfg.DefaultMonthlyPeriods < 1 || cfg.DefaultMonthlyPeriods > cfg.MaxMonthlyPeriods {
		return errors.New("forecast.defaultMonthlyPeriods must be within [1, maxMonthlyPeriods]")
	}
	if cfg.HistoryDays < 1 {
		return errors.New("forecast.historyDays must be at least 1")
	}
	if cfg.LockTTL <= 0 {
		return errors.New("forecast.lockTTL must be positive")
	}
	return nil
}
