package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewForecastConfigHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	// AdminAPIKey unlocks admin-only routes (explicit daily metric deletion).
	AdminAPIKey string

	OTLPEndpoint string
	Telemetry    TelemetryConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis     RedisConfig
	Delegated DelegatedConfig
	Quota     QuotaConfig

	DefaultCurrency string
	DefaultLocale   string

	// SeedDemoUserID, when set, receives generated demo metrics on startup
	// if the user has no rows yet.
	SeedDemoUserID string
}

// TelemetryConfig carries the raw logging and OpenTelemetry settings;
// observability normalizes them.
type TelemetryConfig struct {
	LogLevel      string
	LogFormat     string
	OtelEnabled   bool
	OtelProtocol  string
	SamplingRatio float64
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// DelegatedConfig configures the external reasoning service used by the
// delegated forecast strategy and the assistant.
type DelegatedConfig struct {
	Enabled     bool
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// QuotaConfig bounds how often a single user may hit the delegated strategy.
type QuotaConfig struct {
	Enabled bool
	Rate    float64
	Burst   int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "pulseboard"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		AdminAPIKey:       strings.TrimSpace(getenv("ADMIN_API_KEY", "")),
		OTLPEndpoint:      getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317")),
		Telemetry: TelemetryConfig{
			LogLevel:      getenv("LOG_LEVEL", "info"),
			LogFormat:     getenv("LOG_FORMAT", "json"),
			OtelEnabled:   getenvBool("OTEL_ENABLED", false),
			OtelProtocol:  getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
			SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "pulseboard"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 20)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),
		Redis: RedisConfig{
			Enabled:  getenvBool("REDIS_ENABLED", false),
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "localhost:6379")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       int(getenvInt64("REDIS_DB", 0)),
		},
		Delegated: DelegatedConfig{
			Enabled:     getenvBool("DELEGATED_FORECAST_ENABLED", false),
			BaseURL:     strings.TrimRight(strings.TrimSpace(getenv("DELEGATED_BASE_URL", "https://api.openai.com")), "/"),
			APIKey:      strings.TrimSpace(getenv("DELEGATED_API_KEY", "")),
			Model:       getenv("DELEGATED_MODEL", "gpt-4o-mini"),
			Timeout:     time.Duration(getenvInt64("DELEGATED_TIMEOUT_SECONDS", 45)) * time.Second,
			Temperature: getenvFloat("DELEGATED_TEMPERATURE", 0.2),
			MaxTokens:   int(getenvInt64("DELEGATED_MAX_TOKENS", 1200)),
		},
		Quota: QuotaConfig{
			Enabled: getenvBool("DELEGATED_QUOTA_ENABLED", false),
			Rate:    getenvFloat("DELEGATED_QUOTA_RATE", 0.05),
			Burst:   int(getenvInt64("DELEGATED_QUOTA_BURST", 5)),
		},
		DefaultCurrency: strings.ToUpper(getenv("DEFAULT_CURRENCY", "INR")),
		DefaultLocale:   getenv("DEFAULT_LOCALE", "en-IN"),
		SeedDemoUserID:  strings.TrimSpace(getenv("SEED_DEMO_USER_ID", "")),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
