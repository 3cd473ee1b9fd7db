package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// PageHost plays the role of the browser page's host: it picks the server endpoint.
	PageHost    string `env:"PAGE_HOST" envDefault:"localhost:8000"`
	ServerURL   string `env:"SERVER_URL"`
	LinkBaseURL string `env:"LINK_BASE_URL" envDefault:"http://localhost:8000/"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	// Redis mirror is disabled when RedisURL is empty
	RedisURL      string `env:"REDIS_URL"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisChannel  string `env:"REDIS_CHANNEL" envDefault:"connect4:events"`

	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	PongWait     time.Duration `env:"PONG_WAIT" envDefault:"60s"`
}

// LoadConfig reads the configuration from the environment. Load a .env file
// first if one should apply.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.PongWait <= 0 {
		return nil, fmt.Errorf("parse env: PONG_WAIT must be positive, got %s", cfg.PongWait)
	}
	return &cfg, nil
}

// RedisEnabled reports whether session events should be mirrored to Redis.
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != ""
}
