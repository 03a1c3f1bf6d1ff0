package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server configuration loaded from environment variables.
type Config struct {
	// Server
	Port     string
	LogLevel string // debug, info, warn, error

	// Event source selection
	Source string // scripted, anthropic, openai
	Model  string
	System string

	// API keys
	AnthropicKey string
	OpenAIKey    string

	// Run config
	MaxTokens int
	Timeout   time.Duration
}

// LoadConfig loads configuration from environment variables.
// It loads a .env file if present (silent fail if not found).
func LoadConfig() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Port:         getEnvOrDefault("LOOMD_PORT", "8000"),
		LogLevel:     getEnvOrDefault("LOOMD_LOG_LEVEL", "info"),
		Source:       getEnvOrDefault("LOOM_SOURCE", "scripted"),
		Model:        os.Getenv("LOOM_MODEL"),
		System:       os.Getenv("LOOM_SYSTEM_PROMPT"),
		AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		MaxTokens:    getEnvIntOrDefault("LOOM_MAX_TOKENS", 4096),
		Timeout:      getEnvDurationOrDefault("LOOM_TIMEOUT", 2*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	switch c.Source {
	case "scripted":
	case "anthropic":
		if c.AnthropicKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic source")
		}
	case "openai":
		if c.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai source")
		}
	default:
		return fmt.Errorf("unknown source: %s (must be scripted, anthropic, or openai)", c.Source)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
