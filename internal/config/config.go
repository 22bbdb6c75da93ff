package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`

	GatewayBaseURL string `env:"GATEWAY_BASE_URL,required"`
	GatewayAPIKey  string `env:"GATEWAY_API_KEY,required"`

	CompletionAPIKey  string `env:"COMPLETION_API_KEY,required"`
	CompletionModel   string `env:"COMPLETION_MODEL" envDefault:"gemini-2.0-flash"`
	CompletionBaseURL string `env:"COMPLETION_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`

	TranscriberBaseURL string `env:"TRANSCRIBER_BASE_URL"`

	SweepIntervalSeconds    int `env:"SWEEP_INTERVAL_SECONDS" envDefault:"5"`
	ReminderIntervalMinutes int `env:"REMINDER_INTERVAL_MINUTES" envDefault:"10"`

	WebhookRateLimitPerMin int `env:"WEBHOOK_RATE_LIMIT_PER_MIN" envDefault:"600"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c *Config) ReminderInterval() time.Duration {
	return time.Duration(c.ReminderIntervalMinutes) * time.Minute
}

func (c *Config) Validate() error {
	if c.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL_SECONDS must be positive")
	}
	if c.ReminderIntervalMinutes <= 0 {
		return fmt.Errorf("REMINDER_INTERVAL_MINUTES must be positive")
	}
	if c.WebhookRateLimitPerMin <= 0 {
		return fmt.Errorf("WEBHOOK_RATE_LIMIT_PER_MIN must be positive")
	}
	if c.TranscriberBaseURL == "" {
		log.Warn().Msg("TRANSCRIBER_BASE_URL is empty: media messages will use placeholder text")
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
