// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits with an error.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"jobmate/profile-service/internal/envelope"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds all runtime configuration for the profile service.
type Config struct {
	GRPCPort       string
	HTTPPort       string
	StorageBackend string
	DatabaseURL    string
	RedisURL       string // fallback broker address

	ConsumerGroup  string
	ConsumerName   string
	MaxDeliveries  int64
	PendingTimeout time.Duration

	RegistryURL   string // empty disables broker discovery
	RegistryApp   string
	BrokerRefresh time.Duration

	Channels envelope.Channels
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	backend := os.Getenv("STORAGE_BACKEND")
	if backend == "" {
		backend = StoragePostgres
	}
	if backend != StoragePostgres && backend != StorageMemory {
		return nil, fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", StoragePostgres, StorageMemory, backend)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" && backend == StoragePostgres {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	maxDeliveries, err := positiveInt("MESSAGE_MAX_DELIVERIES", 5)
	if err != nil {
		return nil, err
	}
	pendingMinutes, err := positiveInt("PENDING_POST_TIMEOUT_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	refreshMinutes, err := positiveInt("BROKER_REFRESH_MINUTES", 5)
	if err != nil {
		return nil, err
	}

	consumer := os.Getenv("CONSUMER_NAME")
	if consumer == "" {
		if consumer, err = os.Hostname(); err != nil || consumer == "" {
			consumer = "profile-service"
		}
	}

	channels := envelope.DefaultChannels()
	if path := os.Getenv("CHANNELS_FILE"); path != "" {
		override, err := loadChannels(path)
		if err != nil {
			return nil, err
		}
		channels = channels.Merge(override)
		if err := channels.Validate(); err != nil {
			return nil, fmt.Errorf("CHANNELS_FILE %s: %w", path, err)
		}
	}

	return &Config{
		GRPCPort:       getenv("PROFILE_GRPC_PORT", "50053"),
		HTTPPort:       getenv("PROFILE_HTTP_PORT", "8083"),
		StorageBackend: backend,
		DatabaseURL:    dbURL,
		RedisURL:       redisURL,
		ConsumerGroup:  getenv("CONSUMER_GROUP", "profile-service-group"),
		ConsumerName:   consumer,
		MaxDeliveries:  int64(maxDeliveries),
		PendingTimeout: time.Duration(pendingMinutes) * time.Minute,
		RegistryURL:    os.Getenv("REGISTRY_URL"),
		RegistryApp:    getenv("BROKER_REGISTRY_APP", "redis-registrar"),
		BrokerRefresh:  time.Duration(refreshMinutes) * time.Minute,
		Channels:       channels,
	}, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func positiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, s)
	}
	return v, nil
}

// loadChannels reads a YAML file of channel name overrides. Keys left out
// keep their defaults.
func loadChannels(path string) (envelope.Channels, error) {
	var c envelope.Channels
	b, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read CHANNELS_FILE: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("parse CHANNELS_FILE %s: %w", path, err)
	}
	return c, nil
}
