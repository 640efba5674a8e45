package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	UpstreamTimeout time.Duration

	// Remote vendo API (GetVendo, ProductVariant, CreateOrder)
	APIBaseURL       string
	FetchConcurrency int

	// Storage. Empty DSN keeps reservations in memory.
	DatabaseDSN   string
	RunMigrations bool

	// Events. Empty URL disables publishing.
	RabbitMQURL   string
	EventProducer string

	SessionSecret  string
	SessionIdleTTL time.Duration

	// Locator fallback when the device cannot report a position.
	DefaultLatitude      float64
	DefaultLongitude     float64
	DefaultMaxDistanceKm float64

	CORSAllowOrigins []string

	LogLevel  string
	LogFormat string
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:            getenv("PORT", "8080"),
		UpstreamTimeout: parseDuration(getenv("UPSTREAM_TIMEOUT", "10s"), 10*time.Second),

		APIBaseURL:       getenv("API_BASE_URL", "http://localhost:5000"),
		FetchConcurrency: parseInt(getenv("FETCH_CONCURRENCY", "8"), 8),

		DatabaseDSN:   os.Getenv("DATABASE_DSN"),
		RunMigrations: parseBool(getenv("RUN_MIGRATIONS", "true"), true),

		RabbitMQURL:   os.Getenv("RABBITMQ_URL"),
		EventProducer: getenv("EVENT_PRODUCER", "vendo-storefront"),

		SessionSecret:  getenv("SESSION_SECRET", "dev-session-secret-change-me"),
		SessionIdleTTL: parseDuration(getenv("SESSION_IDLE_TTL", "30m"), 30*time.Minute),

		DefaultLatitude:      parseFloat(getenv("DEFAULT_LATITUDE", "7.005314"), 7.005314),
		DefaultLongitude:     parseFloat(getenv("DEFAULT_LONGITUDE", "125.087830"), 125.087830),
		DefaultMaxDistanceKm: parseFloat(getenv("DEFAULT_MAX_DISTANCE_KM", "40"), 40),

		CORSAllowOrigins: splitCSV(getenv("CORS_ALLOW_ORIGINS", "*")),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func parseInt(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func parseFloat(v string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

func parseBool(v string, def bool) bool {
	switch v {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
