package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the client, the checkout listener and the sandbox backend
type Config struct {
	// Backend API used by the client
	API APIConfig

	// Reference data cache
	Catalog CatalogConfig

	// Payment verification
	Payment PaymentConfig

	// Credential storage
	Session SessionConfig

	// Redis configuration
	Redis RedisConfig

	// Kafka flow events
	Kafka KafkaConfig

	// Sandbox backend server
	Server ServerConfig

	// Rate limiting (sandbox only)
	RateLimit RateLimitConfig

	// Logging
	LogLevel string
}

// APIConfig holds the marketplace backend connection settings
type APIConfig struct {
	BaseURL        string
	Timeout        time.Duration
	CatalogTimeout time.Duration
}

// CatalogConfig holds catalog cache settings
type CatalogConfig struct {
	TTL time.Duration
	// Freshness is "shared" (one timestamp for every catalog) or "per-entry"
	Freshness string
	// Snapshot enables persisting the cache to Redis
	Snapshot bool
}

// PaymentConfig holds post-redirect verification settings
type PaymentConfig struct {
	GracePeriod       time.Duration
	PollInterval      time.Duration
	SettlementTimeout time.Duration
	CheckoutAddr      string
	Production        bool
}

// SessionConfig selects where the token is kept
type SessionConfig struct {
	Store string // memory, file or redis
	Path  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string

	SessionTTL time.Duration
}

// KafkaConfig holds the flow event publisher settings
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// ServerConfig holds sandbox server settings
type ServerConfig struct {
	Port           string
	GinMode        string
	APIPrefix      string
	PublicURL      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	// SettlementDelay simulates the gateway webhook lag
	SettlementDelay time.Duration
	MerchantID      string
	AccountID       string
	APIKey          string
	FixturesPath    string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled          bool          `json:"enabled"`
	WindowDuration   time.Duration `json:"window_duration"`
	DefaultRequests  int           `json:"default_requests"`
	PublicRequests   int           `json:"public_requests"`
	CatalogRequests  int           `json:"catalog_requests"`
	AuthRequests     int           `json:"auth_requests"`
	PurchaseRequests int           `json:"purchase_requests"`
	UserRequests     int           `json:"user_requests"`
	HealthRequests   int           `json:"health_requests"`
	WhitelistedIPs   []string      `json:"whitelisted_ips"`
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		API: APIConfig{
			BaseURL:        getEnv("API_BASE_URL", "http://localhost:8080/api"),
			Timeout:        getDurationEnv("API_TIMEOUT", 10*time.Second),
			CatalogTimeout: getDurationEnv("API_CATALOG_TIMEOUT", 8*time.Second),
		},

		Catalog: CatalogConfig{
			TTL:       getDurationEnv("CATALOG_TTL", 1*time.Hour),
			Freshness: getEnv("CATALOG_FRESHNESS", "shared"),
			Snapshot:  getBoolEnv("CATALOG_SNAPSHOT", false),
		},

		Payment: PaymentConfig{
			GracePeriod:       getDurationEnv("PAYMENT_GRACE_PERIOD", 3*time.Second),
			PollInterval:      getDurationEnv("PAYMENT_POLL_INTERVAL", 2*time.Second),
			SettlementTimeout: getDurationEnv("PAYMENT_SETTLEMENT_TIMEOUT", 30*time.Second),
			CheckoutAddr:      getEnv("CHECKOUT_ADDR", "127.0.0.1:8765"),
			Production:        getBoolEnv("PAYMENT_PRODUCTION", false),
		},

		Session: SessionConfig{
			Store: getEnv("SESSION_STORE", "file"),
			Path:  getEnv("SESSION_PATH", defaultSessionPath()),
		},

		Redis: RedisConfig{
			Host:       getEnv("REDIS_HOST", "localhost"),
			Port:       getEnv("REDIS_PORT", "6379"),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getIntEnv("REDIS_DB", 0),
			SessionTTL: getDurationEnv("REDIS_SESSION_TTL", 30*24*time.Hour),
		},

		Kafka: KafkaConfig{
			Enabled: getBoolEnv("KAFKA_ENABLED", false),
			Brokers: getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_FLOW_TOPIC", "tiquetera.purchase-flow"),
		},

		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			GinMode:         getEnv("GIN_MODE", "debug"),
			APIPrefix:       getEnv("API_PREFIX", "/api"),
			PublicURL:       getEnv("SANDBOX_PUBLIC_URL", ""),
			ReadTimeout:     getDurationEnv("READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
			MaxHeaderBytes:  getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB
			SettlementDelay: getDurationEnv("SANDBOX_SETTLEMENT_DELAY", 5*time.Second),
			MerchantID:      getEnv("SANDBOX_MERCHANT_ID", "508029"),
			AccountID:       getEnv("SANDBOX_ACCOUNT_ID", "512321"),
			APIKey:          getEnv("SANDBOX_API_KEY", "4Vj8eK4rloUd272L48hsrarnUA"),
			FixturesPath:    getEnv("SANDBOX_FIXTURES", ""),
		},

		RateLimit: RateLimitConfig{
			Enabled:          getBoolEnv("RATE_LIMIT_ENABLED", false),
			WindowDuration:   getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests:  getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			PublicRequests:   getIntEnv("RATE_LIMIT_PUBLIC_REQUESTS", 100),
			CatalogRequests:  getIntEnv("RATE_LIMIT_CATALOG_REQUESTS", 100),
			AuthRequests:     getIntEnv("RATE_LIMIT_AUTH_REQUESTS", 10),
			PurchaseRequests: getIntEnv("RATE_LIMIT_PURCHASE_REQUESTS", 20),
			UserRequests:     getIntEnv("RATE_LIMIT_USER_REQUESTS", 60),
			HealthRequests:   getIntEnv("RATE_LIMIT_HEALTH_REQUESTS", 300),
			WhitelistedIPs:   getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".tiquetera-session.json"
	}
	return dir + string(os.PathSeparator) + "tiquetera" + string(os.PathSeparator) + "session.json"
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the sandbox runs in release mode
func (c *Config) IsProduction() bool {
	return c.Server.GinMode == "release"
}

// IsDevelopment returns true if the sandbox runs in debug mode
func (c *Config) IsDevelopment() bool {
	return c.Server.GinMode == "debug"
}

// GetServerAddress returns the sandbox listen address
func (c *Config) GetServerAddress() string {
	return ":" + c.Server.Port
}

// GetPublicURL returns the externally reachable sandbox URL
func (c *Config) GetPublicURL() string {
	if c.Server.PublicURL != "" {
		return strings.TrimRight(c.Server.PublicURL, "/")
	}
	return "http://localhost:" + c.Server.Port
}
