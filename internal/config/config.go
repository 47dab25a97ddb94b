package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config carries everything the server needs, read once at startup.
// Gateway credentials are required here rather than looked up per request,
// so a misconfigured deployment fails before it takes traffic.
type Config struct {
	HTTPAddr         string
	MySQLDSN         string
	RedisAddr        string
	GatewayBaseURL   string
	GatewayAPIKey    string
	GatewayAPISecret string
	GatewayTimeout   time.Duration
	RequestTimeout   time.Duration
	ShutdownTimeout  time.Duration
	MigrationsDir    string
	AlertQueueSize   int
}

var requiredKeys = []string{
	"MYSQL_DSN",
	"REDIS_ADDR",
	"PG_BASE_URL",
	"PG_API_KEY",
	"PG_API_SECRET",
}

// Load reads configuration from the environment. Every missing required
// key is reported in one error.
func Load() (*Config, error) {
	var missing []string
	for _, key := range requiredKeys {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required config keys: %s", strings.Join(missing, ", "))
	}

	return &Config{
		HTTPAddr:         ":" + getEnv("HTTP_PORT", "8080"),
		MySQLDSN:         os.Getenv("MYSQL_DSN"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		GatewayBaseURL:   os.Getenv("PG_BASE_URL"),
		GatewayAPIKey:    os.Getenv("PG_API_KEY"),
		GatewayAPISecret: os.Getenv("PG_API_SECRET"),
		GatewayTimeout:   10 * time.Second,
		RequestTimeout:   30 * time.Second,
		ShutdownTimeout:  10 * time.Second,
		MigrationsDir:    getEnv("MIGRATIONS_DIR", "./internal/adapter/storage/migrations"),
		AlertQueueSize:   100,
	}, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
