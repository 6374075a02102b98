package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config contains the application configuration, loaded from environment
// variables. DatabaseURL is optional; when empty the service keeps users and
// scans in process memory only.
type Config struct {
	Port          string `env:"PORT" envDefault:"8080"`
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	PexelsAPIKey  string `env:"PEXELS_API_KEY"`
	DatabaseURL   string `env:"DATABASE_URL"`
	AllowedOrigin string `env:"ALLOWED_ORIGIN" envDefault:"http://localhost:8081"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	return &cfg, nil
}
