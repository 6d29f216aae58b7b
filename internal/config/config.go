package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Telegram
	TelegramToken string

	// Database
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Job portal API
	API APIConfig

	// Bot settings
	PageSize            int
	CheckInterval       time.Duration
	MaxListingsPerCheck int

	// Logging
	LogLevel string
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
	// RPS caps outbound requests per second; zero disables the limiter.
	RPS float64
}

// LoadAPI reads only the portal API settings; the CLI needs nothing else.
func LoadAPI() (APIConfig, error) {
	api := APIConfig{
		BaseURL: "http://localhost:8000",
		Timeout: 15 * time.Second,
		RPS:     5,
	}

	if baseURL := os.Getenv("PORTAL_API_BASE_URL"); baseURL != "" {
		api.BaseURL = baseURL
	}

	if timeout := os.Getenv("PORTAL_API_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return api, fmt.Errorf("invalid PORTAL_API_TIMEOUT: %w", err)
		}
		api.Timeout = d
	}

	if rps := os.Getenv("PORTAL_API_RPS"); rps != "" {
		n, err := strconv.ParseFloat(rps, 64)
		if err != nil {
			return api, fmt.Errorf("invalid PORTAL_API_RPS: %w", err)
		}
		api.RPS = n
	}

	return api, nil
}

func Load() (*Config, error) {
	cfg := &Config{
		// Defaults
		PageSize:            10,
		CheckInterval:       5 * time.Minute,
		MaxListingsPerCheck: 10,
		LogLevel:            "info",
		RedisDB:             0,
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	cfg.PostgresDSN = os.Getenv("POSTGRES_DSN")
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required")
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.RedisAddr = addr
	} else {
		cfg.RedisAddr = "localhost:6379"
	}

	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		db, err := strconv.Atoi(redisDB)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		cfg.RedisDB = db
	}

	api, err := LoadAPI()
	if err != nil {
		return nil, err
	}
	cfg.API = api

	if pageSize := os.Getenv("PAGE_SIZE"); pageSize != "" {
		n, err := strconv.Atoi(pageSize)
		if err != nil {
			return nil, fmt.Errorf("invalid PAGE_SIZE: %w", err)
		}
		cfg.PageSize = n
	}

	if interval := os.Getenv("CHECK_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return nil, fmt.Errorf("invalid CHECK_INTERVAL: %w", err)
		}
		cfg.CheckInterval = d
	}

	if maxListings := os.Getenv("MAX_LISTINGS_PER_CHECK"); maxListings != "" {
		n, err := strconv.Atoi(maxListings)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_LISTINGS_PER_CHECK: %w", err)
		}
		cfg.MaxListingsPerCheck = n
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("telegram token is empty")
	}

	if c.PostgresDSN == "" {
		return fmt.Errorf("postgres DSN is empty")
	}

	if c.API.BaseURL == "" {
		return fmt.Errorf("portal API base URL is empty")
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("portal API timeout must be positive: %v", c.API.Timeout)
	}

	if c.PageSize < 1 || c.PageSize > 50 {
		return fmt.Errorf("page size must be between 1 and 50")
	}

	if c.CheckInterval < time.Minute {
		return fmt.Errorf("check interval too small: %v", c.CheckInterval)
	}

	if c.MaxListingsPerCheck < 1 || c.MaxListingsPerCheck > 100 {
		return fmt.Errorf("max listings per check must be between 1 and 100")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	return nil
}
