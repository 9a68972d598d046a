package client

import (
	"errors"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the settings for talking to a running converter's control API.
type Config struct {
	APIURL      string
	BearerToken string
	Timeout     time.Duration

	LogLevel  string
	LogFormat string
}

// LoadConfig reads client configuration from environment variables.
// BEARER_TOKEN is shared with the converter so one .env serves both.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		APIURL:      getEnvString("TTS_API_URL", "http://localhost:8080"),
		BearerToken: os.Getenv("BEARER_TOKEN"),
		Timeout:     getEnvDuration("TTS_API_TIMEOUT", 2*time.Minute),
		LogLevel:    getEnvString("LOG_LEVEL", "warn"),
		LogFormat:   getEnvString("LOG_FORMAT", "text"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("TTS_API_URL cannot be empty")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("TTS_API_URL must be an http or https URL")
	}

	if c.Timeout <= 0 {
		return errors.New("TTS_API_TIMEOUT must be positive")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.LogFormat] {
		return errors.New("LOG_FORMAT must be one of: text, json")
	}

	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
