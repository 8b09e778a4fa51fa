package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	BackendModeREST     = "rest"
	BackendModePostgres = "postgres"
)

type Config struct {
	ServiceName string
	HTTPAddr    string
	GRPCAddr    string

	BackendMode    string
	BackendURL     string
	BackendAnonKey string
	BackendTimeout time.Duration
	AuthJWTSecret  string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisHost       string
	RedisPort       string
	RedisPassword   string
	NotificationTTL time.Duration

	KafkaBroker string
	KafkaTopic  string

	JaegerEndpoint string
}

// Load reads the service configuration from the environment.
func Load() (*Config, error) {
	backendTimeout, err := getDuration("BACKEND_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	notificationTTL, err := getDuration("NOTIFICATION_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "storefront-service"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:    getEnv("GRPC_ADDR", ":50051"),

		BackendMode:    strings.ToLower(getEnv("BACKEND_MODE", BackendModeREST)),
		BackendURL:     strings.TrimRight(getEnv("BACKEND_URL", ""), "/"),
		BackendAnonKey: getEnv("BACKEND_ANON_KEY", ""),
		BackendTimeout: backendTimeout,
		AuthJWTSecret:  getEnv("AUTH_JWT_SECRET", ""),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "storefront"),

		RedisHost:       getEnv("REDIS_HOST", "localhost"),
		RedisPort:       getEnv("REDIS_PORT", "6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		NotificationTTL: notificationTTL,

		KafkaBroker: getEnv("KAFKA_BROKER", ""),
		KafkaTopic:  getEnv("KAFKA_TOPIC", "order_events"),

		JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch c.BackendMode {
	case BackendModeREST, BackendModePostgres:
	default:
		return fmt.Errorf("unknown BACKEND_MODE %q", c.BackendMode)
	}
	// Sessions are always resolved through the hosted auth provider.
	if c.BackendURL == "" && c.AuthJWTSecret == "" {
		return errors.New("BACKEND_URL or AUTH_JWT_SECRET is required to resolve sessions")
	}
	if c.BackendMode == BackendModeREST {
		if c.BackendURL == "" {
			return errors.New("BACKEND_URL is required in rest mode")
		}
		if c.BackendAnonKey == "" {
			return errors.New("BACKEND_ANON_KEY is required in rest mode")
		}
	}
	if c.NotificationTTL <= 0 {
		return errors.New("NOTIFICATION_TTL must be positive")
	}
	return nil
}

// DSN is the lib/pq connection string for postgres mode.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func (c *Config) KafkaEnabled() bool {
	return c.KafkaBroker != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
