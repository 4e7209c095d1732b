package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL string `env:"RABBITMQ_URL,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	OptimizerURL         string `env:"OPTIMIZER_URL,required=true"`
	OptimizerTokenURL    string `env:"OPTIMIZER_TOKEN_URL,default=https://oauth2.googleapis.com/token"`
	OptimizerClientEmail string `env:"OPTIMIZER_CLIENT_EMAIL"`
	OptimizerPrivateKey  string `env:"OPTIMIZER_PRIVATE_KEY"`
	OptimizerScope       string `env:"OPTIMIZER_SCOPE,default=https://www.googleapis.com/auth/cloud-platform"`
	OptimizerStaticToken string `env:"OPTIMIZER_STATIC_TOKEN"`
	OptimizerTimeout     string `env:"OPTIMIZER_TIMEOUT,default=30s"`

	// Depot coordinates stay raw; a bad value fails generation requests, not startup.
	DepotLat string `env:"DEPOT_LAT"`
	DepotLng string `env:"DEPOT_LNG"`

	DeliveryTimezone     string `env:"DELIVERY_TIMEZONE,default=UTC"`
	GenerationTimeout    string `env:"GENERATION_TIMEOUT,default=60s"`
	GenerationLockTTL    string `env:"GENERATION_LOCK_TTL,default=2m"`
	WorkerConcurrency    int    `env:"WORKER_CONCURRENCY,default=1"`
	AutoGenerateInterval string `env:"AUTO_GENERATE_INTERVAL,default=0s"`

	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	durations := []struct {
		name  string
		value string
		zero  bool
	}{
		{name: "OPTIMIZER_TIMEOUT", value: c.OptimizerTimeout},
		{name: "GENERATION_TIMEOUT", value: c.GenerationTimeout},
		{name: "GENERATION_LOCK_TTL", value: c.GenerationLockTTL},
		{name: "AUTO_GENERATE_INTERVAL", value: c.AutoGenerateInterval, zero: true},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(d.value)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", d.name, err))
		case parsed < 0 || (parsed == 0 && !d.zero):
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", d.name, d.value))
		}
	}

	if _, err := time.LoadLocation(c.DeliveryTimezone); err != nil {
		errs = append(errs, fmt.Errorf("DELIVERY_TIMEZONE: %w", err))
	}
	if c.WorkerConcurrency < 1 {
		errs = append(errs, fmt.Errorf("WORKER_CONCURRENCY must be at least 1, got %d", c.WorkerConcurrency))
	}

	if strings.TrimSpace(c.OptimizerStaticToken) == "" {
		if strings.TrimSpace(c.OptimizerClientEmail) == "" || strings.TrimSpace(c.OptimizerPrivateKey) == "" {
			errs = append(errs, errors.New("OPTIMIZER_STATIC_TOKEN or OPTIMIZER_CLIENT_EMAIL and OPTIMIZER_PRIVATE_KEY are required"))
		}
	}

	return errors.Join(errs...)
}

// UsesServiceAccount reports whether optimizer tokens are minted from the
// service account key rather than taken from OPTIMIZER_STATIC_TOKEN.
func (c *Config) UsesServiceAccount() bool {
	return strings.TrimSpace(c.OptimizerStaticToken) == ""
}

func (c *Config) OptimizerTimeoutDuration() time.Duration {
	return mustDuration(c.OptimizerTimeout)
}

func (c *Config) GenerationTimeoutDuration() time.Duration {
	return mustDuration(c.GenerationTimeout)
}

func (c *Config) GenerationLockTTLDuration() time.Duration {
	return mustDuration(c.GenerationLockTTL)
}

// AutoGenerateIntervalDuration is zero when the scanner is disabled.
func (c *Config) AutoGenerateIntervalDuration() time.Duration {
	return mustDuration(c.AutoGenerateInterval)
}

func (c *Config) DeliveryLocation() *time.Location {
	loc, err := time.LoadLocation(c.DeliveryTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// mustDuration is only called on values validate has accepted.
func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}
