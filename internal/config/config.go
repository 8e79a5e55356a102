package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port          string        `envconfig:"PORT" default:"8080"`
	DatabaseURL   string        `envconfig:"DB_CONNECTION_STRING" validate:"required"`
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RabbitMQURL   string        `envconfig:"RABBITMQ_URL"`
	RabbitMQQueue string        `envconfig:"RABBITMQ_QUEUE" default:"commits.collected"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn warning error"`
	SyncInterval  time.Duration `envconfig:"SYNC_INTERVAL" default:"1h"`

	GitHub     GitHubConfig     `envconfig:"GITHUB"`
	Collection CollectionConfig `envconfig:"COLLECTION"`
}

// Load reads configuration from the environment, loading a .env file first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.Collection.Location(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
