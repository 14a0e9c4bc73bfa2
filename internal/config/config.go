package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	API      APIConfig
	Logger   LoggerConfig
	Session  SessionConfig
	Redis    RedisConfig
	S3       S3Config
	Kafka    KafkaConfig
	Geocode  GeocodeConfig
	Checkout CheckoutConfig
	Metrics  MetricsConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host           string
	Port           int
	StaticDir      string
	RequestTimeout time.Duration
	TrustedOrigins []string // extra hosts allowed to post forms, e.g. "shop.example.com"
}

// APIConfig points at the remote shop API.
type APIConfig struct {
	BaseURL      string
	ImageBaseURL string
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// SessionConfig holds browser session configuration.
type SessionConfig struct {
	Backend      string // "cookie" or "redis"
	Name         string
	AuthKey      []byte
	CSRFKey      []byte
	CookieDomain string
	CookieSecure bool
	MaxAge       time.Duration
}

// RedisConfig holds Redis configuration. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// S3Config holds AWS S3 configuration for the home page content file.
type S3Config struct {
	Enabled bool
	Bucket  string
	Region  string
	Prefix  string // Path prefix within bucket (e.g., "content/")
}

// KafkaConfig holds storefront event publishing configuration. No brokers disables it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// GeocodeConfig holds the address autocompletion lookup configuration.
type GeocodeConfig struct {
	BaseURL   string
	UserAgent string
	CacheTTL  time.Duration
}

// MetricsConfig holds the /metrics endpoint configuration.
type MetricsConfig struct {
	Token string // bearer token required by /metrics; empty leaves it open
}

// CheckoutConfig holds checkout flow tuning.
type CheckoutConfig struct {
	RedirectDelay time.Duration
	ContentFile   string
}

// Load loads configuration from environment variables. A .env file in the working
// directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 3000),
			StaticDir:      getEnv("STATIC_DIR", "./static"),
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
			TrustedOrigins: splitCSV(getEnv("CSRF_TRUSTED_ORIGINS", "")),
		},
		API: APIConfig{
			BaseURL:      getEnv("API_BASE_URL", "http://localhost:5000/api"),
			ImageBaseURL: getEnv("API_IMAGE_URL", "http://localhost:5000"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Session: SessionConfig{
			Backend:      getEnv("SESSION_BACKEND", "cookie"),
			Name:         getEnv("SESSION_NAME", "storefront-session"),
			AuthKey:      getEnvAsKey("SESSION_KEY"),
			CSRFKey:      getEnvAsKey("CSRF_KEY"),
			CookieDomain: getEnv("COOKIE_DOMAIN", ""),
			CookieSecure: getEnvAsBool("COOKIE_SECURE", false),
			MaxAge:       getEnvAsDuration("SESSION_MAX_AGE", 7*24*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		S3: S3Config{
			Enabled: getEnvAsBool("S3_ENABLED", false),
			Bucket:  getEnv("S3_BUCKET", ""),
			Region:  getEnv("S3_REGION", "us-east-1"),
			Prefix:  getEnv("S3_PREFIX", "content/"),
		},
		Kafka: KafkaConfig{
			Brokers: splitCSV(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "storefront.events"),
		},
		Geocode: GeocodeConfig{
			BaseURL:   getEnv("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org"),
			UserAgent: getEnv("GEOCODE_USER_AGENT", "storefront/1.0"),
			CacheTTL:  getEnvAsDuration("GEOCODE_CACHE_TTL", 24*time.Hour),
		},
		Checkout: CheckoutConfig{
			RedirectDelay: getEnvAsDuration("CHECKOUT_REDIRECT_DELAY", 2*time.Second),
			ContentFile:   getEnv("CONTENT_FILE", "data/content/home.json"),
		},
		Metrics: MetricsConfig{
			Token: getEnv("METRICS_TOKEN", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API base URL: %q", c.API.BaseURL)
	}

	if len(c.Session.AuthKey) < 32 {
		return fmt.Errorf("session key must be at least 32 bytes (base64 encoded SESSION_KEY)")
	}

	if len(c.Session.CSRFKey) != 32 {
		return fmt.Errorf("CSRF key must be exactly 32 bytes (base64 encoded CSRF_KEY)")
	}

	if c.Session.Backend != "cookie" && c.Session.Backend != "redis" {
		return fmt.Errorf("invalid session backend: %s (must be cookie or redis)", c.Session.Backend)
	}

	if c.Session.Backend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when the session backend is redis")
	}

	if c.Session.Backend == "redis" && c.Session.MaxAge <= 0 {
		return fmt.Errorf("session max age must be positive when the session backend is redis")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka topic is required when brokers are configured")
	}

	if c.Checkout.RedirectDelay < 0 {
		return fmt.Errorf("checkout redirect delay cannot be negative")
	}

	return nil
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("90s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

// getEnvAsKey decodes a base64 key. Invalid or missing keys decode to nil.
func getEnvAsKey(key string) []byte {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil
	}
	return decoded
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
