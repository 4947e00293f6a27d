package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=beverages port=5432 sslmode=disable"

type Config struct {
	HTTPPort       string
	DatabaseDSN    string
	DBMaxOpenConns int
	DBMaxIdleConns int
	JWTSecret      string
	JWTExpiresIn   time.Duration
	CORSOrigins    []string
	LogLevel       string
	LogFormat      string

	RedisAddr string

	EventsDriver string // kafka, amqp or none
	KafkaBrokers []string
	KafkaTopic   string
	AMQPURL      string
	AMQPExchange string

	SeedOnStart bool
	SeedFile    string
	Location    *time.Location

	// Warnings collects non-fatal notes about defaults in use.
	Warnings []string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from an arbitrary lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		HTTPPort:     get("HTTP_PORT", "8080"),
		DatabaseDSN:  get("DATABASE_DSN", defaultDSN),
		JWTSecret:    get("JWT_SECRET", ""),
		CORSOrigins:  splitCSV(get("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		LogLevel:     get("LOG_LEVEL", "info"),
		LogFormat:    get("LOG_FORMAT", "json"),
		RedisAddr:    get("REDIS_ADDR", ""),
		EventsDriver: strings.ToLower(get("EVENTS_DRIVER", "none")),
		KafkaBrokers: splitCSV(get("KAFKA_BROKERS", "")),
		KafkaTopic:   get("KAFKA_TOPIC", "beverage.orders"),
		AMQPURL:      get("AMQP_URL", ""),
		AMQPExchange: get("AMQP_EXCHANGE", "beverage_events"),
		SeedFile:     get("SEED_FILE", ""),
	}

	var err error
	if cfg.JWTExpiresIn, err = time.ParseDuration(get("JWT_EXPIRES_IN", "24h")); err != nil {
		return nil, fmt.Errorf("JWT_EXPIRES_IN: %w", err)
	}
	if cfg.DBMaxOpenConns, err = strconv.Atoi(get("DB_MAX_OPEN_CONNS", "20")); err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	if cfg.DBMaxIdleConns, err = strconv.Atoi(get("DB_MAX_IDLE_CONNS", "5")); err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}
	if cfg.SeedOnStart, err = strconv.ParseBool(get("SEED_ON_START", "true")); err != nil {
		return nil, fmt.Errorf("SEED_ON_START: %w", err)
	}
	if cfg.Location, err = time.LoadLocation(get("TIMEZONE", "Local")); err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET must be at least 32 characters")
	}

	switch cfg.EventsDriver {
	case "none":
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("EVENTS_DRIVER=kafka requires KAFKA_BROKERS")
		}
	case "amqp":
		if cfg.AMQPURL == "" {
			return nil, errors.New("EVENTS_DRIVER=amqp requires AMQP_URL")
		}
	default:
		return nil, fmt.Errorf("unknown EVENTS_DRIVER %q", cfg.EventsDriver)
	}

	if cfg.DatabaseDSN == defaultDSN {
		cfg.Warnings = append(cfg.Warnings, "DATABASE_DSN is using the default value")
	}
	if len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "http://localhost:5173" {
		cfg.Warnings = append(cfg.Warnings, "CORS_ALLOWED_ORIGINS is using the default value")
	}

	return cfg, nil
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
