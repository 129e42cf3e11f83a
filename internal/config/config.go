package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds service configuration.
type Config struct {
	DatabaseURL          string
	StoreDriver          string
	SQLitePath           string
	ServerAddr           string
	SessionTTL           time.Duration
	SessionPurgeInterval time.Duration
	SessionCookieName    string
	SessionCookieSecure  bool
	AuditSigningKey      []byte
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	RedisChannel         string
	PublisherBuffer      int
	LifecyclePolicyFile  string
	SSEHeartbeat         time.Duration
	RateLimitPerSecond   float64
	RateLimitBurst       int
}

// Load reads configuration from environment.
func Load() (*Config, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := getenv("POSTGRES_USER", "negotiation_hub")
		pass := getenv("POSTGRES_PASSWORD", "negotiation_hub_pass")
		db := getenv("POSTGRES_DB", "negotiation_hub")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}
	driver := strings.ToLower(getenv("STORE_DRIVER", DriverPostgres))
	switch driver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", driver)
	}
	auditKey, err := parseHexKey(os.Getenv("AUDIT_SIGNING_KEY"))
	if err != nil {
		return nil, fmt.Errorf("AUDIT_SIGNING_KEY: %w", err)
	}

	return &Config{
		DatabaseURL:         dsn,
		StoreDriver:         driver,
		SQLitePath:          getenv("SQLITE_PATH", "negotiation-hub.db"),
		ServerAddr:          getenv("SERVER_ADDR", "0.0.0.0:8080"),
		SessionTTL:          parseDuration(getenv("SESSION_TTL", "24h"), 24*time.Hour),
		SessionPurgeInterval: parseDuration(getenv("SESSION_PURGE_INTERVAL", "15m"), 15*time.Minute),
		SessionCookieName:   getenv("SESSION_COOKIE_NAME", "negotiation_hub_session"),
		SessionCookieSecure: parseBool(getenv("SESSION_COOKIE_SECURE", "false"), false),
		AuditSigningKey:     auditKey,
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             parseInt(os.Getenv("REDIS_DB"), 0),
		RedisChannel:        getenv("REDIS_CHANNEL", "negotiation-hub:transitions"),
		PublisherBuffer:     parseInt(os.Getenv("PUBLISHER_BUFFER"), 256),
		LifecyclePolicyFile: os.Getenv("LIFECYCLE_POLICY_FILE"),
		SSEHeartbeat:        parseDuration(getenv("SSE_HEARTBEAT", "30s"), 30*time.Second),
		RateLimitPerSecond:  parseFloat(os.Getenv("RATE_LIMIT_PER_SECOND"), 5),
		RateLimitBurst:      parseInt(os.Getenv("RATE_LIMIT_BURST"), 10),
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseBool(val string, def bool) bool {
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return i
}

func parseFloat(val string, def float64) float64 {
	if val == "" {
		return def
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return def
	}
	return f
}

// parseHexKey decodes a hex signing key. An empty value disables signing.
func parseHexKey(val string) ([]byte, error) {
	if val == "" {
		return nil, nil
	}
	return hex.DecodeString(val)
}
