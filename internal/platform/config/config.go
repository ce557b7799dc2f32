// Package config builds runtime configuration from environment variables so
// main stays lean. Each concern gets its own struct; FromEnv fills them all.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "scubaai/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr       string
	CORSOrigin string
}

// Database captures the relational store configuration.
type Database struct {
	URL string
}

// Redis captures the optional Redis configuration. An empty URL means Redis
// is not configured and in-memory fallbacks are used.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// JWT captures token issuance parameters.
type JWT struct {
	SigningKey string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// AI captures the upstream completion provider configuration. The provider is
// OpenAI-compatible; BaseURL defaults to Groq's endpoint.
type AI struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Kafka captures the optional audit event broker. Empty Brokers disables it.
type Kafka struct {
	Brokers []string
	Topic   string
}

// RateLimit caps completion requests per user per window.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// Admin captures bootstrap settings for the seeded administrator account.
type Admin struct {
	InitialPassword string
}

// Config aggregates every concern for wiring in main.
type Config struct {
	Server    Server
	Database  Database
	Redis     Redis
	JWT       JWT
	AI        AI
	Kafka     Kafka
	RateLimit RateLimit
	Admin     Admin
}

// FromEnv builds the full configuration from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:       getenv("SCUBAAI_ADDR", ":8080"),
			CORSOrigin: getenv("CORS_ORIGIN", "*"),
		},
		Database: Database{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getenvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getenvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getenvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getenvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getenvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		JWT: JWT{
			// Default is for development only; override in production.
			SigningKey: getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:     getenv("JWT_ISSUER", "scubaai"),
			Audience:   getenv("JWT_AUDIENCE", "scubaai-api"),
			AccessTTL:  getenvDuration("JWT_ACCESS_TTL", time.Hour),
			RefreshTTL: getenvDuration("JWT_REFRESH_TTL", 30*24*time.Hour),
		},
		AI: AI{
			APIKey:  os.Getenv("GROQ_API_KEY"),
			BaseURL: getenv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			Model:   getenv("GROQ_MODEL", "llama3-8b-8192"),
		},
		Kafka: Kafka{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getenv("KAFKA_AUDIT_TOPIC", "scubaai.audit"),
		},
		RateLimit: RateLimit{
			Requests: getenvInt("AI_RATE_LIMIT", 20),
			Window:   getenvDuration("AI_RATE_WINDOW", time.Minute),
		},
		Admin: Admin{
			InitialPassword: getenv("ADMIN_INITIAL_PASSWORD", "scubaadmin"),
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	out := pstrings.DedupeAndTrim(strings.Split(v, ","))
	if len(out) == 0 {
		return nil
	}
	return out
}
