package config

import (
	"fmt"
	"strings"
	"time"

	libconfig "rentaldesk/libs/config"
)

// Config defines the rental desk service configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"RENTALDESK_HTTP_PORT"`
	} `yaml:"http"`
	Redis struct {
		Addr     string `yaml:"addr" env:"RENTALDESK_REDIS_ADDR"`
		Password string `yaml:"password" env:"RENTALDESK_REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"RENTALDESK_REDIS_DB"`
	} `yaml:"redis"`
	Clock struct {
		TickMillis int `yaml:"tickMillis" env:"RENTALDESK_TICK_MILLIS"`
	} `yaml:"clock"`
}

// Load reads configuration via shared helper. Redis is optional: with no
// addr configured the service runs on in-memory state only.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8080"
	cfg.Clock.TickMillis = 1000

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// RedisEnabled reports whether a redis address is configured.
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}

// TickPeriod returns the clock sampling period.
func (c *Config) TickPeriod() time.Duration {
	if c.Clock.TickMillis <= 0 {
		return time.Second
	}
	return time.Duration(c.Clock.TickMillis) * time.Millisecond
}
