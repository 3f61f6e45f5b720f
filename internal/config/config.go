// Package config reads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-driven setting of the API and worker.
type Config struct {
	RunLocal bool
	HTTPAddr string
	GinMode  string
	LogLevel string

	OrdersTable      string
	PaymentsTable    string
	CouponsTable     string
	MenuTable        string
	UsersTable       string
	IdempotencyTable string
	IdempotencyTTL   time.Duration

	EventsBackend  string
	EventsQueueURL string
	KafkaBrokers   []string
	EventsTopic    string

	Gateway GatewayConfig

	CouponPrefix     string
	JWTSecret        string
	RedisAddr        string
	MetricsNamespace string
}

// GatewayConfig carries payment gateway credentials. Empty KeyID or
// WebhookSecret means the gateway flow is unconfigured; empty EndpointSecret
// disables the Stripe webhook.
type GatewayConfig struct {
	KeyID          string
	KeySecret      string
	WebhookSecret  string
	EndpointSecret string
	Currency       string
	Timeout        time.Duration
}

// LoadDotEnv reads .env into the process environment when RUN_LOCAL=true.
// A missing file is not an error.
func LoadDotEnv() error {
	if os.Getenv("RUN_LOCAL") != "true" {
		return nil
	}
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load builds a Config from the environment, applying defaults.
func Load() (Config, error) {
	timeout, err := durationEnv("GATEWAY_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	idemTTL, err := durationEnv("IDEMPOTENCY_TTL", 48*time.Hour)
	if err != nil {
		return Config{}, err
	}

	secret := os.Getenv("GATEWAY_KEY_SECRET")
	cfg := Config{
		RunLocal: os.Getenv("RUN_LOCAL") == "true",
		HTTPAddr: getenv("HTTP_ADDR", ":8080"),
		GinMode:  getenv("GIN_MODE", "release"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		OrdersTable:      getenv("ORDERS_TABLE", "orders"),
		PaymentsTable:    getenv("PAYMENTS_TABLE", "payments"),
		CouponsTable:     getenv("COUPONS_TABLE", "coupons"),
		MenuTable:        getenv("MENU_TABLE", "menu"),
		UsersTable:       getenv("USERS_TABLE", "users"),
		IdempotencyTable: getenv("IDEMPOTENCY_TABLE", "idempotency"),
		IdempotencyTTL:   idemTTL,

		EventsBackend:  strings.ToLower(getenv("EVENTS_BACKEND", "sqs")),
		EventsQueueURL: os.Getenv("EVENTS_QUEUE_URL"),
		KafkaBrokers:   splitList(os.Getenv("KAFKA_BROKERS")),
		EventsTopic:    getenv("EVENTS_TOPIC", "order-events"),

		Gateway: GatewayConfig{
			KeyID:          os.Getenv("GATEWAY_KEY_ID"),
			KeySecret:      secret,
			WebhookSecret:  getenv("GATEWAY_WEBHOOK_SECRET", secret),
			EndpointSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			Currency:       strings.ToUpper(getenv("CURRENCY", "INR")),
			Timeout:        timeout,
		},

		CouponPrefix:     getenv("COUPON_PREFIX", "CPN"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		MetricsNamespace: getenv("METRICS_NAMESPACE", "QueueOrderflow"),
	}

	switch cfg.EventsBackend {
	case "sqs", "kafka", "none":
	default:
		return Config{}, fmt.Errorf("EVENTS_BACKEND must be sqs, kafka or none, got %q", cfg.EventsBackend)
	}
	if cfg.EventsBackend == "kafka" && len(cfg.KafkaBrokers) == 0 {
		return Config{}, fmt.Errorf("KAFKA_BROKERS is required when EVENTS_BACKEND=kafka")
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
