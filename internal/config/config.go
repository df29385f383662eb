package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Persistence
	DataBackend  string
	SQLiteDBPath string

	// AMQP analytics; empty URL means events are only logged
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Rates
	RatesURL             string
	RatesBaseCurrency    string
	RatesRefreshInterval time.Duration
	RatesMaxRetries      int
	RedisURL             string

	// Presentation
	DisplayCurrency string
	SpendingPeriod  string
	LogLevel        string

	// Gestures
	LongPressThreshold   time.Duration
	AutoScrollDelay      time.Duration
	AutoScrollEdgeMargin float64
}

func Load() *Config {
	cfg := &Config{
		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/walletflow.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "walletflow"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "analytics_events"),

		RatesURL:             getEnv("RATES_URL", ""),
		RatesBaseCurrency:    strings.ToUpper(getEnv("RATES_BASE_CURRENCY", "USD")),
		RatesRefreshInterval: getEnvDuration("RATES_REFRESH_INTERVAL", time.Hour),
		RatesMaxRetries:      getEnvInt("RATES_MAX_RETRIES", 3),
		RedisURL:             getEnv("REDIS_URL", ""),

		DisplayCurrency: strings.ToUpper(getEnv("DISPLAY_CURRENCY", "USD")),
		SpendingPeriod:  getEnv("SPENDING_PERIOD", "month"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		LongPressThreshold:   getEnvDuration("LONG_PRESS_THRESHOLD", 500*time.Millisecond),
		AutoScrollDelay:      getEnvDuration("AUTO_SCROLL_DELAY", 600*time.Millisecond),
		AutoScrollEdgeMargin: getEnvFloat("AUTO_SCROLL_EDGE_MARGIN", 40),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RatesURL != "" {
		if parsedURL, err := url.Parse(c.RatesURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid rates URL '%s': %v", c.RatesURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid rates URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
	}

	if c.RedisURL != "" {
		if parsedURL, err := url.Parse(c.RedisURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid Redis URL '%s': %v", c.RedisURL, err))
		} else if parsedURL.Scheme != "redis" && parsedURL.Scheme != "rediss" {
			errors = append(errors, fmt.Sprintf("invalid Redis URL scheme '%s': must be 'redis' or 'rediss'", parsedURL.Scheme))
		}
	}

	if !validCurrencyCode(c.RatesBaseCurrency) {
		errors = append(errors, fmt.Sprintf("invalid base currency '%s': must be a 3-letter code", c.RatesBaseCurrency))
	}
	if !validCurrencyCode(c.DisplayCurrency) {
		errors = append(errors, fmt.Sprintf("invalid display currency '%s': must be a 3-letter code", c.DisplayCurrency))
	}
	if c.SpendingPeriod != "week" && c.SpendingPeriod != "month" {
		errors = append(errors, fmt.Sprintf("invalid spending period '%s': must be 'week' or 'month'", c.SpendingPeriod))
	}

	if c.RatesRefreshInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid rates refresh interval %v: must be at least 1 minute", c.RatesRefreshInterval))
	} else if c.RatesRefreshInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid rates refresh interval %v: must be at most 24 hours", c.RatesRefreshInterval))
	}
	if c.RatesMaxRetries < 0 || c.RatesMaxRetries > 10 {
		errors = append(errors, fmt.Sprintf("invalid rates max retries %d: must be between 0 and 10", c.RatesMaxRetries))
	}

	if c.LongPressThreshold < 100*time.Millisecond || c.LongPressThreshold > 5*time.Second {
		errors = append(errors, fmt.Sprintf("invalid long press threshold %v: must be between 100ms and 5s", c.LongPressThreshold))
	}
	if c.AutoScrollDelay <= 0 {
		errors = append(errors, fmt.Sprintf("invalid auto-scroll delay %v: must be positive", c.AutoScrollDelay))
	}
	if c.AutoScrollEdgeMargin <= 0 {
		errors = append(errors, fmt.Sprintf("invalid auto-scroll edge margin %v: must be positive", c.AutoScrollEdgeMargin))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func validCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
