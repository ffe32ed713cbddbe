// Package config loads the server settings from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the environment-driven settings. Every variable is
// optional. The API key exists for display parity with a real weather
// deployment; the mock data path never uses it.
type Config struct {
	WeatherAPIKey string `env:"WEATHER_API_KEY" envDefault:"demo_key"`
	ServerName    string `env:"SERVER_NAME" envDefault:"weather-mcp-server"`
	ServerVersion string `env:"SERVER_VERSION" envDefault:"1.0.0"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the configuration from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
