package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="

var configKeys = []string{
	"SERVER_HOST", "SERVER_PORT", "STATIC_DIR", "API_BASE_URL", "API_IMAGE_URL",
	"LOG_LEVEL", "LOG_FORMAT", "SESSION_BACKEND", "SESSION_NAME", "SESSION_KEY",
	"CSRF_KEY", "COOKIE_DOMAIN", "COOKIE_SECURE", "SESSION_MAX_AGE", "REDIS_ADDR",
	"REDIS_PASSWORD", "REDIS_DB", "S3_ENABLED", "S3_BUCKET", "S3_REGION", "S3_PREFIX",
	"KAFKA_BROKERS", "KAFKA_TOPIC", "GEOCODE_BASE_URL", "GEOCODE_USER_AGENT",
	"GEOCODE_CACHE_TTL", "CHECKOUT_REDIRECT_DELAY", "CONTENT_FILE", "METRICS_TOKEN",
	"REQUEST_TIMEOUT", "CSRF_TRUSTED_ORIGINS",
}

// clearConfigEnv blanks every variable Load reads; getEnv treats empty as unset.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		envVars     map[string]string
		expectError bool
		errorMsg    string
	}{
		{
			name: "Success with minimal required config",
			envVars: map[string]string{
				"SESSION_KEY": testKey,
				"CSRF_KEY":    testKey,
			},
			expectError: false,
		},
		{
			name: "Success with all config specified",
			envVars: map[string]string{
				"SERVER_HOST":             "localhost",
				"SERVER_PORT":             "9090",
				"API_BASE_URL":            "https://shop.example.com/api",
				"LOG_LEVEL":               "debug",
				"LOG_FORMAT":              "console",
				"SESSION_BACKEND":         "redis",
				"SESSION_KEY":             testKey,
				"CSRF_KEY":                testKey,
				"REDIS_ADDR":              "localhost:6379",
				"KAFKA_BROKERS":           "k1:9092, k2:9092",
				"CHECKOUT_REDIRECT_DELAY": "3s",
			},
			expectError: false,
		},
		{
			name:        "Error - missing session key",
			envVars:     map[string]string{"CSRF_KEY": testKey},
			expectError: true,
			errorMsg:    "session key must be at least 32 bytes",
		},
		{
			name: "Error - short CSRF key",
			envVars: map[string]string{
				"SESSION_KEY": testKey,
				"CSRF_KEY":    "c2hvcnQ=",
			},
			expectError: true,
			errorMsg:    "CSRF key must be exactly 32 bytes",
		},
		{
			name: "Error - invalid server port",
			envVars: map[string]string{
				"SERVER_PORT": "99999",
				"SESSION_KEY": testKey,
				"CSRF_KEY":    testKey,
			},
			expectError: true,
			errorMsg:    "invalid server port",
		},
		{
			name: "Error - invalid API base URL",
			envVars: map[string]string{
				"API_BASE_URL": "localhost:5000",
				"SESSION_KEY":  testKey,
				"CSRF_KEY":     testKey,
			},
			expectError: true,
			errorMsg:    "invalid API base URL",
		},
		{
			name: "Error - redis backend without address",
			envVars: map[string]string{
				"SESSION_BACKEND": "redis",
				"SESSION_KEY":     testKey,
				"CSRF_KEY":        testKey,
			},
			expectError: true,
			errorMsg:    "redis address is required",
		},
		{
			name: "Error - redis backend with unbounded sessions",
			envVars: map[string]string{
				"SESSION_BACKEND": "redis",
				"SESSION_MAX_AGE": "0s",
				"SESSION_KEY":     testKey,
				"CSRF_KEY":        testKey,
				"REDIS_ADDR":      "localhost:6379",
			},
			expectError: true,
			errorMsg:    "session max age must be positive",
		},
		{
			name: "Error - invalid log level",
			envVars: map[string]string{
				"LOG_LEVEL":   "invalid",
				"SESSION_KEY": testKey,
				"CSRF_KEY":    testKey,
			},
			expectError: true,
			errorMsg:    "invalid log level",
		},
		{
			name: "Error - invalid log format",
			envVars: map[string]string{
				"LOG_FORMAT":  "xml",
				"SESSION_KEY": testKey,
				"CSRF_KEY":    testKey,
			},
			expectError: true,
			errorMsg:    "invalid log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := Load()

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SESSION_KEY", testKey)
	t.Setenv("CSRF_KEY", testKey)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "http://localhost:5000/api", cfg.API.BaseURL)
	assert.Equal(t, "cookie", cfg.Session.Backend)
	assert.Equal(t, 2*time.Second, cfg.Checkout.RedirectDelay)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Len(t, cfg.Session.AuthKey, 32)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Empty(t, cfg.Server.TrustedOrigins)
	assert.Empty(t, cfg.Metrics.Token)
}

func TestLoad_ParsesBrokerList(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SESSION_KEY", testKey)
	t.Setenv("CSRF_KEY", testKey)
	t.Setenv("KAFKA_BROKERS", "k1:9092, ,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestServerConfig_Address(t *testing.T) {
	tests := []struct {
		name     string
		config   ServerConfig
		expected string
	}{
		{
			name: "Standard configuration",
			config: ServerConfig{
				Host: "localhost",
				Port: 8080,
			},
			expected: "localhost:8080",
		},
		{
			name: "All interfaces",
			config: ServerConfig{
				Host: "0.0.0.0",
				Port: 9090,
			},
			expected: "0.0.0.0:9090",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.Address())
		})
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_VAR", "test_value")
	assert.Equal(t, "test_value", getEnv("TEST_VAR", "default"))

	os.Unsetenv("NON_EXISTENT_VAR")
	assert.Equal(t, "default", getEnv("NON_EXISTENT_VAR", "default"))
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	assert.Equal(t, 42, getEnvAsInt("TEST_INT", 10))

	// Test with invalid integer (should return default)
	t.Setenv("TEST_INVALID", "not_a_number")
	assert.Equal(t, 10, getEnvAsInt("TEST_INVALID", 10))
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "90s")
	assert.Equal(t, 90*time.Second, getEnvAsDuration("TEST_DURATION", time.Second))

	t.Setenv("TEST_SECONDS", "5")
	assert.Equal(t, 5*time.Second, getEnvAsDuration("TEST_SECONDS", time.Second))

	t.Setenv("TEST_BAD_DURATION", "soon")
	assert.Equal(t, time.Second, getEnvAsDuration("TEST_BAD_DURATION", time.Second))
}

func TestGetEnvAsKey(t *testing.T) {
	t.Setenv("TEST_KEY", testKey)
	assert.Equal(t, []byte("0123456789abcdef0123456789abcdef"), getEnvAsKey("TEST_KEY"))

	t.Setenv("TEST_BAD_KEY", "%%%")
	assert.Nil(t, getEnvAsKey("TEST_BAD_KEY"))
}
