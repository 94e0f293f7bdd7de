package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/B09-Adpro/udehnih-review-rating/pkg/config"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

// Identity sources.
const (
	IdentityJWT    = "jwt"
	IdentityHeader = "header"
)

// Config holds all configuration for the review-rating service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// HTTP server
	HTTPPort    int      `env:"REVIEW_HTTP_PORT" envDefault:"8084"`
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Handler deadline. Must stay below the write timeout.
	RequestTimeoutSeconds   int `env:"REQUEST_TIMEOUT_SECONDS" envDefault:"10"`
	HTTPWriteTimeoutSeconds int `env:"HTTP_WRITE_TIMEOUT_SECONDS" envDefault:"15"`

	// Per-caller rate limiting of the review API. 0 disables it.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	// Review store: postgres, redis or memory.
	StoreBackend string `env:"REVIEW_STORE" envDefault:"postgres"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"udehnih"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"udehnih"`
	PostgresDB   string `env:"REVIEW_DB_NAME" envDefault:"review_rating"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"15"`

	// Redis
	RedisURL      string `env:"REDIS_URL"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Upstream services
	CourseServiceURL   string `env:"COURSE_SERVICE_URL" envDefault:"http://localhost:8082"`
	AuthServiceURL     string `env:"AUTH_SERVICE_URL" envDefault:"http://localhost:8081"`
	UpstreamTimeoutMs  int    `env:"UPSTREAM_TIMEOUT_MS" envDefault:"3000"`
	UpstreamMaxRetries int    `env:"UPSTREAM_MAX_RETRIES" envDefault:"0"`

	// Circuit breaker settings for upstream lookups
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Caller identity
	IdentitySource  string `env:"IDENTITY_SOURCE" envDefault:"jwt"`
	JWTSecret       string `env:"JWT_SECRET"`
	JWTSecretBase64 bool   `env:"JWT_SECRET_BASE64" envDefault:"false"`
	JWTIssuer       string `env:"JWT_ISSUER"`

	// Review policies
	AnonymousEditPolicy string `env:"ANONYMOUS_EDIT_POLICY" envDefault:"open"`
	EnrichmentPolicy    string `env:"ENRICHMENT_POLICY" envDefault:"strict"`
	ListConcurrency     int    `env:"ENRICHMENT_CONCURRENCY" envDefault:"8"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load review-rating config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive, got %d", c.RequestTimeoutSeconds)
	}
	if c.HTTPWriteTimeoutSeconds <= c.RequestTimeoutSeconds {
		return fmt.Errorf("HTTP_WRITE_TIMEOUT_SECONDS (%d) must exceed REQUEST_TIMEOUT_SECONDS (%d)",
			c.HTTPWriteTimeoutSeconds, c.RequestTimeoutSeconds)
	}

	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative")
	}

	switch c.StoreBackend {
	case StorePostgres:
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required")
		}
	case StoreRedis:
		if c.RedisURL == "" && c.RedisAddr == "" {
			return fmt.Errorf("REDIS_URL or REDIS_ADDR is required")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("REVIEW_STORE must be one of postgres, redis, memory, got %q", c.StoreBackend)
	}

	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}

	for name, rawURL := range map[string]string{
		"COURSE_SERVICE_URL": c.CourseServiceURL,
		"AUTH_SERVICE_URL":   c.AuthServiceURL,
	} {
		if rawURL == "" {
			return fmt.Errorf("%s is required", name)
		}
		if _, err := url.ParseRequestURI(rawURL); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, rawURL, err)
		}
	}
	if c.UpstreamTimeoutMs <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT_MS must be positive, got %d", c.UpstreamTimeoutMs)
	}
	if c.UpstreamMaxRetries < 0 {
		return fmt.Errorf("UPSTREAM_MAX_RETRIES must not be negative, got %d", c.UpstreamMaxRetries)
	}
	if c.CBFailureRatio <= 0 || c.CBFailureRatio > 1.0 {
		return fmt.Errorf("CB_FAILURE_RATIO must be in (0, 1], got %f", c.CBFailureRatio)
	}

	switch c.IdentitySource {
	case IdentityJWT:
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when IDENTITY_SOURCE is jwt")
		}
	case IdentityHeader:
	default:
		return fmt.Errorf("IDENTITY_SOURCE must be jwt or header, got %q", c.IdentitySource)
	}

	if c.AnonymousEditPolicy != "open" && c.AnonymousEditPolicy != "locked" {
		return fmt.Errorf("ANONYMOUS_EDIT_POLICY must be open or locked, got %q", c.AnonymousEditPolicy)
	}
	if c.EnrichmentPolicy != "strict" && c.EnrichmentPolicy != "placeholder" {
		return fmt.Errorf("ENRICHMENT_POLICY must be strict or placeholder, got %q", c.EnrichmentPolicy)
	}
	if c.ListConcurrency < 0 {
		return fmt.Errorf("ENRICHMENT_CONCURRENCY must not be negative, got %d", c.ListConcurrency)
	}

	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// UpstreamTimeout is the per-lookup deadline.
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutMs) * time.Millisecond
}

// RequestTimeout is the deadline applied to each API request.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// WriteTimeout is the HTTP server write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.HTTPWriteTimeoutSeconds) * time.Second
}
