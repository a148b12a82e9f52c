// Package config loads service configuration from environment variables
// with defaults and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Cache     CacheConfig
	Fetch     FetchConfig
	RateLimit RateLimitConfig
	Telegram  TelegramConfig
	Registry  RegistryConfig
	Log       LogConfig
	Telemetry TelemetryConfig
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type CacheConfig struct {
	// RedisURL is the persistent tier. Empty disables the tier entirely
	// and the service runs on the in-process tier alone.
	RedisURL string
	// FreshWindow is how long an entry is served without any refresh.
	FreshWindow time.Duration
	// StaleWindow is the outer bound: between FreshWindow and StaleWindow
	// an entry is served while a background refresh runs; past it the entry
	// counts as a miss.
	StaleWindow time.Duration
	// PrewarmInterval, when positive, runs a background loop that keeps the
	// default cache key warm.
	PrewarmInterval time.Duration
}

type FetchConfig struct {
	// CallTimeout bounds one platform HTTP call.
	CallTimeout time.Duration
	// AggregateTimeout bounds a full multi-source fetch cycle.
	AggregateTimeout time.Duration
	// WindowHours is the default lookback window for a fetch cycle.
	WindowHours int
	// HostInterval is the per-host politeness interval for adapter calls.
	HostInterval time.Duration
	UserAgent    string
}

type RateLimitConfig struct {
	// RequestsPerMinute is the per-client-IP budget on the read path.
	RequestsPerMinute int
	Burst             int
}

type TelegramConfig struct {
	// MTProto gateway session credentials. When any of these is empty the
	// telegram adapter degrades to the public t.me preview scrape.
	APIID      string
	APIHash    string
	Session    string
	GatewayURL string
}

type RegistryConfig struct {
	// Path to the read-only YAML source registry.
	Path string
}

type LogConfig struct {
	Level       string
	ServiceName string
}

type TelemetryConfig struct {
	// OTLPEndpoint is the collector base URL. Empty disables tracing.
	OTLPEndpoint string
	// SampleRatio is the head-sampling ratio for traces without a parent.
	SampleRatio float64
}

// Enabled reports whether trace export is configured.
func (c TelemetryConfig) Enabled() bool {
	return c.OTLPEndpoint != ""
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func loadFromEnv(cfg *Config) error {
	var err error

	if cfg.Server.Port, err = intEnv("SERVER_PORT", 9300); err != nil {
		return err
	}
	if cfg.Server.ReadTimeout, err = durationEnv("SERVER_READ_TIMEOUT", 10*time.Second); err != nil {
		return err
	}
	if cfg.Server.WriteTimeout, err = durationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second); err != nil {
		return err
	}
	if cfg.Server.ShutdownTimeout, err = durationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second); err != nil {
		return err
	}

	cfg.Cache.RedisURL = os.Getenv("REDIS_URL")
	if cfg.Cache.FreshWindow, err = durationEnv("CACHE_FRESH_WINDOW", 2*time.Minute); err != nil {
		return err
	}
	if cfg.Cache.StaleWindow, err = durationEnv("CACHE_STALE_WINDOW", 15*time.Minute); err != nil {
		return err
	}
	if cfg.Cache.PrewarmInterval, err = durationEnv("CACHE_PREWARM_INTERVAL", 0); err != nil {
		return err
	}

	if cfg.Fetch.CallTimeout, err = durationEnv("FETCH_CALL_TIMEOUT", 10*time.Second); err != nil {
		return err
	}
	if cfg.Fetch.AggregateTimeout, err = durationEnv("FETCH_AGGREGATE_TIMEOUT", 45*time.Second); err != nil {
		return err
	}
	if cfg.Fetch.WindowHours, err = intEnv("FETCH_WINDOW_HOURS", 6); err != nil {
		return err
	}
	if cfg.Fetch.HostInterval, err = durationEnv("FETCH_HOST_INTERVAL", 500*time.Millisecond); err != nil {
		return err
	}
	cfg.Fetch.UserAgent = stringEnv("FETCH_USER_AGENT", "Mozilla/5.0 (compatible; NewspulseBot/1.0)")

	if cfg.RateLimit.RequestsPerMinute, err = intEnv("RATE_LIMIT_RPM", 60); err != nil {
		return err
	}
	if cfg.RateLimit.Burst, err = intEnv("RATE_LIMIT_BURST", 10); err != nil {
		return err
	}

	cfg.Telegram.APIID = os.Getenv("TELEGRAM_API_ID")
	cfg.Telegram.APIHash = os.Getenv("TELEGRAM_API_HASH")
	cfg.Telegram.Session = os.Getenv("TELEGRAM_SESSION")
	cfg.Telegram.GatewayURL = stringEnv("TELEGRAM_GATEWAY_URL", "http://localhost:8484")

	cfg.Registry.Path = stringEnv("SOURCE_REGISTRY_PATH", "sources.yaml")

	cfg.Log.Level = stringEnv("LOG_LEVEL", "info")
	cfg.Log.ServiceName = stringEnv("SERVICE_NAME", "newspulse")

	cfg.Telemetry.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if cfg.Telemetry.SampleRatio, err = floatEnv("OTEL_TRACE_SAMPLE_RATIO", 0.1); err != nil {
		return err
	}

	return nil
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Cache.FreshWindow <= 0 {
		return fmt.Errorf("cache fresh window must be positive: %v", cfg.Cache.FreshWindow)
	}
	if cfg.Cache.StaleWindow <= cfg.Cache.FreshWindow {
		return fmt.Errorf("cache stale window %v must exceed fresh window %v",
			cfg.Cache.StaleWindow, cfg.Cache.FreshWindow)
	}
	if cfg.Fetch.CallTimeout <= 0 {
		return fmt.Errorf("fetch call timeout must be positive: %v", cfg.Fetch.CallTimeout)
	}
	if cfg.Fetch.AggregateTimeout < cfg.Fetch.CallTimeout {
		return fmt.Errorf("aggregate timeout %v must not be below call timeout %v",
			cfg.Fetch.AggregateTimeout, cfg.Fetch.CallTimeout)
	}
	if cfg.Fetch.WindowHours < 1 || cfg.Fetch.WindowHours > 72 {
		return fmt.Errorf("fetch window hours out of range [1,72]: %d", cfg.Fetch.WindowHours)
	}
	if cfg.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate limit rpm must be positive: %d", cfg.RateLimit.RequestsPerMinute)
	}
	// A zero burst rejects every request regardless of the rate.
	if cfg.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit burst must be positive: %d", cfg.RateLimit.Burst)
	}
	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("trace sample ratio out of range [0,1]: %v", cfg.Telemetry.SampleRatio)
	}
	if cfg.Registry.Path == "" {
		return fmt.Errorf("source registry path cannot be empty")
	}
	return nil
}

// Authenticated reports whether the MTProto gateway credentials are fully
// configured.
func (c TelegramConfig) Authenticated() bool {
	return c.APIID != "" && c.APIHash != "" && c.Session != ""
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, v)
	}
	return n, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, v)
	}
	return f, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, v)
	}
	return d, nil
}
